package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"taskdeck/internal/domain"
	"taskdeck/internal/localstore"
	"taskdeck/internal/offline"
	"taskdeck/internal/report"

	"github.com/spf13/cobra"
)

var (
	burndownStart string
	burndownEnd   string
	insightsDays  int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute reports from the local task cache",
}

var reportBurndownCmd = &cobra.Command{
	Use:   "burndown <sprint-id>",
	Short: "Ideal and actual remaining story points per sprint day",
	Long: `burndown computes the sprint's burndown from the local task cache,
including changes not yet synced. Sprint dates come from the server and are
remembered for offline use; --start and --end override them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sprintID := args[0]
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			window, err := s.loadSprint(ctx, sprintID)
			if err != nil {
				return err
			}
			if err := window.override(burndownStart, burndownEnd); err != nil {
				return err
			}
			if window.Start.IsZero() || window.End.IsZero() {
				return fmt.Errorf("sprint %s dates unknown offline: pass --start and --end", sprintID)
			}

			entities, err := s.tasks.List(ctx, nil)
			if err != nil {
				return err
			}
			tasks, err := toTasks(filterTasks(entities, "", sprintID, "", false), time.Now())
			if err != nil {
				return err
			}

			b := report.BuildBurndown(window.Start, window.End, domain.TaskMetrics(tasks))
			if flagJSON {
				return printJSON(cmd, b)
			}
			printBurndown(cmd.OutOrStdout(), window, b)
			return nil
		})
	},
}

var reportInsightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Task totals, breakdowns and estimation accuracy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if insightsDays <= 0 {
			return fmt.Errorf("--days must be a positive integer")
		}
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			entities, err := s.tasks.List(ctx, nil)
			if err != nil {
				return err
			}
			now := time.Now()
			tasks, err := toTasks(entities, now)
			if err != nil {
				return err
			}

			in := report.BuildInsights(domain.TaskMetrics(tasks), now.AddDate(0, 0, -insightsDays))
			if flagJSON {
				return printJSON(cmd, in)
			}
			printInsights(cmd.OutOrStdout(), insightsDays, in)
			return nil
		})
	},
}

func init() {
	reportBurndownCmd.Flags().StringVar(&burndownStart, "start", "", "sprint start date, YYYY-MM-DD")
	reportBurndownCmd.Flags().StringVar(&burndownEnd, "end", "", "sprint end date, YYYY-MM-DD")
	reportInsightsCmd.Flags().IntVar(&insightsDays, "days", 30, "completion-rate window in days")

	reportCmd.AddCommand(reportBurndownCmd)
	reportCmd.AddCommand(reportInsightsCmd)
}

// sprintWindow is the part of a sprint the burndown needs, cached under
// sprints:<id> so reports work offline.
type sprintWindow struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

func sprintKey(id string) string { return "sprints:" + id }

func (w *sprintWindow) override(start, end string) error {
	if start != "" {
		t, err := parseDate(start)
		if err != nil {
			return err
		}
		w.Start = t
	}
	if end != "" {
		t, err := parseDate(end)
		if err != nil {
			return err
		}
		w.End = t
	}
	return nil
}

// loadSprint asks the server for the sprint when online and falls back
// to the last copy seen. A sprint the server says is gone is an error.
func (s *session) loadSprint(ctx context.Context, id string) (*sprintWindow, error) {
	if s.monitor.Online() {
		sp, err := s.client.Sprint(ctx, id)
		switch {
		case err == nil:
			w := &sprintWindow{ID: sp.ID, Name: sp.Name, Start: sp.StartDate, End: sp.EndDate}
			if err := saveSprintWindow(s.store, w); err != nil {
				return nil, err
			}
			return w, nil
		case offline.IsNotFound(err):
			return nil, fmt.Errorf("sprint %s: %w", id, offline.ErrNotFound)
		}
		s.logger.Printf("[taskdeck] sprint %s unavailable, using cache: %v", id, err)
	}

	w := &sprintWindow{ID: id}
	raw, err := s.store.Load(sprintKey(id))
	if err != nil {
		return nil, fmt.Errorf("load sprint %s: %w", id, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, w); err != nil {
			return nil, fmt.Errorf("decode sprint %s: %w", id, err)
		}
	}
	return w, nil
}

func saveSprintWindow(store *localstore.SQLite, w *sprintWindow) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}
	if err := store.Save(sprintKey(w.ID), raw); err != nil {
		return fmt.Errorf("save sprint %s: %w", w.ID, err)
	}
	return nil
}

func printBurndown(out io.Writer, w *sprintWindow, b *report.Burndown) {
	title := w.ID
	if w.Name != "" {
		title = w.Name
	}
	fmt.Fprintf(out, "%s: %d/%d points done, %d/%d tasks\n\n",
		title, b.CompletedPoints, b.TotalPoints, b.CompletedTasksCount, b.TasksCount)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tIDEAL\tACTUAL\t")
	for i, d := range b.Dates {
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t\n", d, b.Ideal[i], b.Actual[i])
	}
	tw.Flush()
}

func printInsights(out io.Writer, days int, in *report.Insights) {
	fmt.Fprintf(out, "Tasks: %d total, %d completed, %d pending\n", in.Total, in.Completed, in.Pending)
	fmt.Fprintf(out, "Completion rate (last %d days): %d%%\n", days, in.CompletionRate)
	fmt.Fprintf(out, "Time: %d min logged, avg estimate %d min, avg actual %d min\n",
		in.TotalActualTime, in.AvgEstimatedTime, in.AvgActualTime)
	fmt.Fprintf(out, "Estimates: %d under, %d over, %d accurate\n", in.Underestimated, in.Overestimated, in.Accurate)
	fmt.Fprintf(out, "By priority: %s\n", formatCounts(in.ByPriority))
	fmt.Fprintf(out, "By category: %s\n", formatCounts(in.ByCategory))
}

func formatCounts(m map[string]int) string {
	if len(m) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
