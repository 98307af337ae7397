package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"taskdeck/internal/domain"
	"taskdeck/internal/offline"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"task", "t"},
	Short:   "Manage tasks",
}

// taskFlags holds the editable fields shared by add and update.
type taskFlags struct {
	title       string
	description string
	priority    string
	category    string
	status      string
	due         string
	estimate    int
	actual      int
	points      int
	sprint      string
	tags        []string
	today       bool
	notes       string
}

var (
	taskAdd    taskFlags
	taskUpdate taskFlags

	listStatus   string
	listSprint   string
	listPriority string
	listToday    bool

	doneUndo bool
)

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks (rows marked * exist only locally)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			entities, err := s.tasks.List(ctx, nil)
			if err != nil {
				return err
			}
			entities = filterTasks(entities, listStatus, listSprint, listPriority, listToday)
			sortEntities(entities)

			tasks, err := toTasks(entities, time.Now())
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cmd, tasks)
			}
			printTaskTable(cmd.OutOrStdout(), entities, tasks)
			return nil
		})
	},
}

var tasksShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			e, err := s.tasks.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("task %s: %w", args[0], err)
			}
			return printJSON(cmd, e)
		})
	},
}

var tasksAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskAdd.title = args[0]
		payload, err := taskAdd.payload(cmd, true)
		if err != nil {
			return err
		}
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			created, err := s.tasks.Create(ctx, payload)
			if err != nil {
				return err
			}
			return reportWrite(cmd, "Created", created, s.monitor.Online())
		})
	},
}

var tasksUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change fields of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := taskUpdate.payload(cmd, false)
		if err != nil {
			return err
		}
		if len(patch) == 0 {
			return fmt.Errorf("nothing to update")
		}
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			updated, err := s.tasks.Update(ctx, args[0], patch)
			if err != nil {
				return err
			}
			return reportWrite(cmd, "Updated", updated, s.monitor.Online())
		})
	},
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed (--undo reopens it)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := completionPatch(!doneUndo, time.Now().UTC())
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			updated, err := s.tasks.Update(ctx, args[0], patch)
			if err != nil {
				return err
			}
			return reportWrite(cmd, "Updated", updated, s.monitor.Online())
		})
	},
}

var tasksRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			if _, err := s.tasks.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s%s\n", args[0], queuedSuffix(s.monitor.Online()))
			return nil
		})
	},
}

func init() {
	registerTaskFlags(tasksAddCmd, &taskAdd, false)
	registerTaskFlags(tasksUpdateCmd, &taskUpdate, true)

	tasksListCmd.Flags().StringVar(&listStatus, "status", "", "only tasks with this status (new, in-progress, completed)")
	tasksListCmd.Flags().StringVar(&listSprint, "sprint", "", "only tasks in this sprint")
	tasksListCmd.Flags().StringVar(&listPriority, "priority", "", "only tasks with this priority")
	tasksListCmd.Flags().BoolVar(&listToday, "today", false, "only tasks planned for today")

	tasksDoneCmd.Flags().BoolVar(&doneUndo, "undo", false, "reopen the task")

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksShowCmd)
	tasksCmd.AddCommand(tasksAddCmd)
	tasksCmd.AddCommand(tasksUpdateCmd)
	tasksCmd.AddCommand(tasksDoneCmd)
	tasksCmd.AddCommand(tasksRmCmd)
}

func registerTaskFlags(cmd *cobra.Command, f *taskFlags, withTitle bool) {
	fl := cmd.Flags()
	if withTitle {
		fl.StringVar(&f.title, "title", "", "title")
		fl.StringVar(&f.status, "status", "", "status (new, in-progress, completed)")
	}
	fl.StringVarP(&f.description, "description", "d", "", "description")
	fl.StringVarP(&f.priority, "priority", "p", string(domain.PriorityMedium), "priority (low, medium, high)")
	fl.StringVarP(&f.category, "category", "c", string(domain.CategoryOther), "category (work, personal, health, finance, other)")
	fl.StringVar(&f.due, "due", "", "due date, YYYY-MM-DD")
	fl.IntVar(&f.estimate, "estimate", 0, "estimated time in minutes")
	fl.IntVar(&f.actual, "actual", 0, "actual time in minutes")
	fl.IntVar(&f.points, "points", 0, "story points")
	fl.StringVar(&f.sprint, "sprint", "", "sprint id")
	fl.StringSliceVarP(&f.tags, "tag", "t", nil, "tag (repeatable)")
	fl.BoolVar(&f.today, "today", false, "plan for today")
	fl.StringVar(&f.notes, "notes", "", "notes")
}

// payload builds the request body. For a create every field is sent so
// an offline row carries the server's defaults; for an update only the
// flags given on the command line are.
func (f *taskFlags) payload(cmd *cobra.Command, create bool) (offline.Entity, error) {
	set := func(name string) bool { return create || cmd.Flags().Changed(name) }
	p := offline.Entity{}

	if create || cmd.Flags().Changed("title") {
		p["title"] = f.title
	}
	if (create && f.description != "") || cmd.Flags().Changed("description") {
		p["description"] = f.description
	}
	if set("priority") {
		p["priority"] = f.priority
	}
	if set("category") {
		p["category"] = f.category
	}
	if cmd.Flags().Changed("due") {
		due, err := parseDate(f.due)
		if err != nil {
			return nil, err
		}
		p["due_date"] = due.Format(time.RFC3339)
	}
	if set("estimate") {
		p["estimated_time"] = f.estimate
	}
	if set("actual") {
		p["actual_time"] = f.actual
	}
	if set("points") {
		p["story_points"] = f.points
	}
	if cmd.Flags().Changed("sprint") {
		p["sprint_id"] = f.sprint
	}
	if set("tag") {
		tags := f.tags
		if tags == nil {
			tags = []string{}
		}
		p["tags"] = tags
	}
	if set("today") {
		p["planned_for_today"] = f.today
	}
	if cmd.Flags().Changed("notes") {
		p["notes"] = f.notes
	}
	if create {
		p["status"] = string(domain.TaskStatusNew)
		p["recurring"] = string(domain.RecurNone)
		p["completed"] = false
	} else if cmd.Flags().Changed("status") {
		done := f.status == string(domain.TaskStatusCompleted)
		p = merge(p, completionPatch(done, time.Now().UTC()))
		p["status"] = f.status
	}
	return p, nil
}

// completionPatch mirrors the server's completion bookkeeping so the
// cached row is right before the change is synced.
func completionPatch(done bool, now time.Time) offline.Entity {
	if done {
		return offline.Entity{
			"completed":    true,
			"status":       string(domain.TaskStatusCompleted),
			"completed_at": now.Format(time.RFC3339),
		}
	}
	return offline.Entity{
		"completed":    false,
		"status":       string(domain.TaskStatusInProgress),
		"completed_at": nil,
	}
}

func merge(base, patch offline.Entity) offline.Entity {
	for k, v := range patch {
		base[k] = v
	}
	return base
}

func filterTasks(entities []offline.Entity, status, sprint, priority string, today bool) []offline.Entity {
	out := entities[:0:0]
	for _, e := range entities {
		if status != "" && e["status"] != status {
			continue
		}
		if sprint != "" && e["sprint_id"] != sprint {
			continue
		}
		if priority != "" && e["priority"] != priority {
			continue
		}
		if today && e["planned_for_today"] != true {
			continue
		}
		out = append(out, e)
	}
	return out
}

// sortEntities orders rows by creation time, local rows last.
func sortEntities(entities []offline.Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		li, lj := offline.IsLocalID(offline.EntityID(entities[i])), offline.IsLocalID(offline.EntityID(entities[j]))
		if li != lj {
			return !li
		}
		ci, _ := entities[i]["created_at"].(string)
		cj, _ := entities[j]["created_at"].(string)
		return ci < cj
	})
}

func reportWrite(cmd *cobra.Command, verb string, e offline.Entity, online bool) error {
	if flagJSON {
		return printJSON(cmd, e)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s%s\n", verb, offline.EntityID(e), queuedSuffix(online && !offline.IsOffline(e)))
	return nil
}

func queuedSuffix(online bool) string {
	if online {
		return ""
	}
	return " (queued, will sync when online)"
}
