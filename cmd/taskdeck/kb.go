package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"taskdeck/internal/domain"
	"taskdeck/internal/offline"

	"github.com/spf13/cobra"
)

var kbCmd = &cobra.Command{
	Use:     "kb",
	Aliases: []string{"knowledge"},
	Short:   "Manage the knowledge base",
}

var (
	kbFilter domain.KnowledgeFilter

	kbAdd  knowledgeFlags
	kbEdit knowledgeFlags
)

// knowledgeFlags holds the editable fields of add and update. The two
// commands need separate copies because flag defaults differ.
type knowledgeFlags struct {
	title    string
	content  string
	category string
	status   string
	tags     []string
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge entries (archived ones only with --status archived)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKnowledgeSearch(cmd, kbFilter)
	},
}

var kbSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search titles and content, case-insensitively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := kbFilter
		f.Search = args[0]
		return runKnowledgeSearch(cmd, f)
	},
}

var kbShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one knowledge entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			e, err := s.knowledge.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("knowledge entry %s: %w", args[0], err)
			}
			if flagJSON {
				return printJSON(cmd, e)
			}
			var k domain.KnowledgeEntry
			if err := decodeEntity(e, &k); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s%s  %s\n", k.ID, marker(e), k.Title)
			fmt.Fprintf(out, "category: %s  status: %s  version: %d\n", k.Category, k.Status, k.Version)
			if len(k.Tags) > 0 {
				fmt.Fprintf(out, "tags: %s\n", strings.Join(k.Tags, ", "))
			}
			fmt.Fprintf(out, "\n%s\n", k.Content)
			return nil
		})
	},
}

var kbAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a knowledge entry (content from --content or stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := readContent(cmd, kbAdd.content)
		if err != nil {
			return err
		}
		tags := kbAdd.tags
		if tags == nil {
			tags = []string{}
		}
		payload := offline.Entity{
			"title":           args[0],
			"content":         content,
			"category":        kbAdd.category,
			"status":          kbAdd.status,
			"tags":            tags,
			"related_entries": []string{},
			"related_tasks":   []string{},
		}
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			created, err := s.knowledge.Create(ctx, payload)
			if err != nil {
				return err
			}
			return reportWrite(cmd, "Created", created, s.monitor.Online())
		})
	},
}

var kbUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change fields of a knowledge entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := offline.Entity{}
		fl := cmd.Flags()
		if fl.Changed("title") {
			patch["title"] = kbEdit.title
		}
		if fl.Changed("content") {
			patch["content"] = kbEdit.content
		}
		if fl.Changed("category") {
			patch["category"] = kbEdit.category
		}
		if fl.Changed("status") {
			patch["status"] = kbEdit.status
		}
		if fl.Changed("tag") {
			patch["tags"] = kbEdit.tags
		}
		if len(patch) == 0 {
			return fmt.Errorf("nothing to update")
		}
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			updated, err := s.knowledge.Update(ctx, args[0], patch)
			if err != nil {
				return err
			}
			return reportWrite(cmd, "Updated", updated, s.monitor.Online())
		})
	},
}

var kbRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a knowledge entry",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			if _, err := s.knowledge.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s%s\n", args[0], queuedSuffix(s.monitor.Online()))
			return nil
		})
	},
}

var kbTagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			tags, err := s.knowledge.Tags(ctx)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cmd, tags)
			}
			for _, t := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{kbListCmd, kbSearchCmd} {
		c.Flags().StringVarP(&kbFilter.Category, "category", "c", "", "only entries in this category")
		c.Flags().StringVar(&kbFilter.Status, "status", "", "only entries with this status (default: all but archived)")
		c.Flags().StringVarP(&kbFilter.Tag, "tag", "t", "", "only entries carrying this tag")
	}
	kbListCmd.Flags().StringVarP(&kbFilter.Search, "search", "s", "", "case-insensitive text in title or content")

	kbAddCmd.Flags().StringVar(&kbAdd.content, "content", "", "content (read from stdin when empty)")
	kbAddCmd.Flags().StringVarP(&kbAdd.category, "category", "c", string(domain.KnowledgeOther), "category (incident, solution, process, reference, other)")
	kbAddCmd.Flags().StringVar(&kbAdd.status, "status", string(domain.KnowledgePublished), "status (draft, published, archived)")
	kbAddCmd.Flags().StringSliceVarP(&kbAdd.tags, "tag", "t", nil, "tag (repeatable)")

	kbUpdateCmd.Flags().StringVar(&kbEdit.title, "title", "", "title")
	kbUpdateCmd.Flags().StringVar(&kbEdit.content, "content", "", "content")
	kbUpdateCmd.Flags().StringVarP(&kbEdit.category, "category", "c", "", "category")
	kbUpdateCmd.Flags().StringVar(&kbEdit.status, "status", "", "status")
	kbUpdateCmd.Flags().StringSliceVarP(&kbEdit.tags, "tag", "t", nil, "replace tags (repeatable)")

	kbCmd.AddCommand(kbListCmd)
	kbCmd.AddCommand(kbSearchCmd)
	kbCmd.AddCommand(kbShowCmd)
	kbCmd.AddCommand(kbAddCmd)
	kbCmd.AddCommand(kbUpdateCmd)
	kbCmd.AddCommand(kbRmCmd)
	kbCmd.AddCommand(kbTagsCmd)
}

func runKnowledgeSearch(cmd *cobra.Command, f domain.KnowledgeFilter) error {
	return withSession(cmd, false, func(ctx context.Context, s *session) error {
		entities, err := s.knowledge.Search(ctx, f)
		if err != nil {
			return err
		}
		sortEntities(entities)

		entries, err := toKnowledge(entities)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd, entries)
		}
		printKnowledgeTable(cmd.OutOrStdout(), entities, entries)
		return nil
	})
}

func readContent(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	content := strings.TrimSpace(string(raw))
	if content == "" {
		return "", fmt.Errorf("content is required")
	}
	return content, nil
}
