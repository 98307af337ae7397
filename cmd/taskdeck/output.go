package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"taskdeck/internal/domain"
	"taskdeck/internal/offline"

	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// decodeEntity converts a cached or server entity into a typed value.
func decodeEntity(e offline.Entity, out interface{}) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// toTasks converts entities to tasks. Tasks created offline have no
// server timestamps yet and are stamped with now.
func toTasks(entities []offline.Entity, now time.Time) ([]*domain.Task, error) {
	tasks := make([]*domain.Task, 0, len(entities))
	for _, e := range entities {
		var t domain.Task
		if err := decodeEntity(e, &t); err != nil {
			return nil, fmt.Errorf("decode task %s: %w", offline.EntityID(e), err)
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

func toKnowledge(entities []offline.Entity) ([]*domain.KnowledgeEntry, error) {
	entries := make([]*domain.KnowledgeEntry, 0, len(entities))
	for _, e := range entities {
		var k domain.KnowledgeEntry
		if err := decodeEntity(e, &k); err != nil {
			return nil, fmt.Errorf("decode knowledge entry %s: %w", offline.EntityID(e), err)
		}
		entries = append(entries, &k)
	}
	return entries, nil
}

// marker flags rows that exist only locally.
func marker(e offline.Entity) string {
	if offline.IsOffline(e) {
		return "*"
	}
	return ""
}

func printTaskTable(w io.Writer, entities []offline.Entity, tasks []*domain.Task) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE\tPOINTS\tSPRINT\t")
	for i, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format(dateLayout)
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\t%d\t%s\t\n",
			t.ID, marker(entities[i]), truncate(t.Title, 40), t.Status, t.Priority, due, t.StoryPoints, t.SprintID)
	}
	tw.Flush()
}

func printKnowledgeTable(w io.Writer, entities []offline.Entity, entries []*domain.KnowledgeEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tSTATUS\tTAGS\t")
	for i, k := range entries {
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\t\n",
			k.ID, marker(entities[i]), truncate(k.Title, 40), k.Category, k.Status, strings.Join(k.Tags, ","))
	}
	tw.Flush()
}

func printActionTable(w io.Writer, engine string, actions []*offline.Action) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLLECTION\tACTION\tENTITY\tQUEUED\tATTEMPTS\tLAST ERROR\t")
	for _, a := range actions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t\n",
			engine, a.Type, a.EntityID, a.EnqueuedAt.Local().Format(time.DateTime), a.Attempts, a.LastError)
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}
