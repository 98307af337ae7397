package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"taskdeck/internal/offline"
	"taskdeck/internal/websocket"

	"github.com/spf13/cobra"
)

var (
	syncDiscardRejected bool
	watchInterval       time.Duration
	watchDevice         string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay queued changes and refresh the local cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		var results []offline.SyncResult
		for _, e := range s.engines() {
			unsubscribe := e.OnSyncComplete(func(r offline.SyncResult) {
				results = append(results, r)
			})
			defer unsubscribe()
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		if err := s.connect(ctx); err != nil {
			if errors.Is(err, offline.ErrOffline) {
				return fmt.Errorf("%w; %d change(s) still queued", err, pendingCount(s))
			}
			return err
		}

		// A reconnect already replayed the queues; a pass with nothing
		// queued still refreshes the snapshot.
		for _, e := range s.engines() {
			if _, err := e.List(ctx, nil); err != nil {
				return err
			}
		}

		if syncDiscardRejected {
			for _, e := range s.engines() {
				if err := e.DiscardRejected(); err != nil {
					return err
				}
			}
		}

		if flagJSON {
			return printJSON(cmd, results)
		}
		printSyncResults(cmd.OutOrStdout(), results)
		for _, e := range s.engines() {
			if rejected := e.Rejected(); len(rejected) > 0 && !syncDiscardRejected {
				fmt.Fprintf(cmd.OutOrStdout(), "\nRejected by the server (%s):\n", e.Name())
				printActionTable(cmd.OutOrStdout(), e.Name(), rejected)
			}
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity and queued changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			statuses := make([]offline.Status, 0, 2)
			for _, e := range s.engines() {
				statuses = append(statuses, e.Status())
			}
			if flagJSON {
				return printJSON(cmd, map[string]interface{}{
					"server":      cfg.ServerURL,
					"user":        s.creds.Email,
					"collections": statuses,
				})
			}

			out := cmd.OutOrStdout()
			user := s.creds.Email
			if user == "" {
				user = "(not logged in)"
			}
			fmt.Fprintf(out, "Server: %s (%s)\nUser:   %s\n\n", cfg.ServerURL, connectivity(s.monitor.Online()), user)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "COLLECTION\tPENDING\tREJECTED\tLAST SYNC\t")
			for _, st := range statuses {
				last := "never"
				if !st.LastSync.IsZero() {
					last = st.LastSync.Local().Format(time.DateTime)
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t\n", st.Name, st.Pending, st.Rejected, last)
			}
			tw.Flush()

			for _, e := range s.engines() {
				if pending := e.Pending(); len(pending) > 0 {
					fmt.Fprintln(out)
					printActionTable(out, e.Name(), pending)
				}
			}
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay connected: replay on reconnect and follow server changes",
	Long: `watch probes the server every --interval. Each time it becomes
reachable the queued changes are replayed. While online it follows the
server's change stream and refreshes the local cache when another device
edits a task or knowledge entry. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()
		if s.creds.Token == "" {
			return errNotLoggedIn
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		for _, e := range s.engines() {
			defer e.OnSyncComplete(func(r offline.SyncResult) {
				if r.Attempted > 0 {
					fmt.Fprintf(out, "%s synced %s: %d ok, %d failed, %d rejected, %d queued\n",
						r.FinishedAt.Local().Format(time.TimeOnly), r.Name, r.Succeeded, r.Failed, len(r.Rejected), r.Remaining)
				}
			})()
		}

		streamCtx, cancelStream := context.WithCancel(ctx)
		defer cancelStream()
		defer s.monitor.Subscribe(func(online bool) {
			fmt.Fprintf(out, "%s %s\n", time.Now().Format(time.TimeOnly), connectivity(online))
			if online {
				go s.follow(streamCtx, out)
			}
		})()

		s.monitor.Run(ctx, s.probe, watchInterval)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDiscardRejected, "discard-rejected", false, "forget changes the server refused")

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 15*time.Second, "connectivity probe interval")
	watchCmd.Flags().StringVar(&watchDevice, "device", "cli", "device id announced on the change stream")
}

// probe checks reachability and keeps the access token fresh.
func (s *session) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := s.client.Ping(ctx); err != nil {
		return err
	}
	return s.refresh(ctx)
}

// follow refreshes the cache on every change pushed by the server until
// the stream drops or ctx is done.
func (s *session) follow(ctx context.Context, out io.Writer) {
	err := s.client.Changes(ctx, watchDevice, func(msg *websocket.Message) {
		var engine *offline.Engine
		switch msg.Type {
		case websocket.TypeTaskChanged:
			engine = s.tasks
		case websocket.TypeKnowledgeChanged:
			engine = s.knowledge.Engine
		default:
			return
		}
		var change websocket.ChangePayload
		if err := msg.UnmarshalPayload(&change); err != nil {
			s.logger.Printf("[taskdeck] bad change message: %v", err)
			return
		}

		listCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if _, err := engine.List(listCtx, nil); err != nil {
			s.logger.Printf("[taskdeck] refresh %s: %v", engine.Name(), err)
			return
		}
		fmt.Fprintf(out, "%s %s %s %s\n", time.Now().Format(time.TimeOnly), engine.Name(), change.ID, change.Operation)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Printf("[taskdeck] change stream closed: %v", err)
	}
}

func connectivity(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func pendingCount(s *session) int {
	n := 0
	for _, e := range s.engines() {
		n += e.Status().Pending
	}
	return n
}

func printSyncResults(w io.Writer, results []offline.SyncResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLLECTION\tATTEMPTED\tSUCCEEDED\tFAILED\tREJECTED\tQUEUED\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t\n", r.Name, r.Attempted, r.Succeeded, r.Failed, len(r.Rejected), r.Remaining)
	}
	tw.Flush()
}
