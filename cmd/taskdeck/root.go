package main

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	flagConfigDir string
	flagServer    string
	flagDataDir   string
	flagTimeout   time.Duration
	flagJSON      bool
	flagVerbose   bool
)

// cfg is resolved by PersistentPreRunE for every subcommand.
var cfg settings

var rootCmd = &cobra.Command{
	Use:   "taskdeck",
	Short: "Offline-first client for the taskdeck server",
	Long: `taskdeck manages tasks, knowledge entries and sprint reports against a
taskdeck server. Every command works without a connection: reads are served
from the local cache and writes are queued until the server is reachable.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir(flagConfigDir)
		if err != nil {
			return err
		}

		v, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		bindings := map[string]string{
			cfgKeyServerURL: "server",
			cfgKeyDataDir:   "data-dir",
			cfgKeyTimeout:   "timeout",
		}
		for key, name := range bindings {
			if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return fmt.Errorf("bind --%s: %w", name, err)
			}
		}

		cfg = settingsFrom(v)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: $TASKDECK_CONFIG_DIR or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "server base URL (default: "+defaultServerURL+")")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "local cache directory (default: <config dir>/data)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "network timeout per command (default: 10s)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log sync activity to stderr")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(reportCmd)
}

// newLogger returns the sync logger: silent unless --verbose.
func newLogger(cmd *cobra.Command) *log.Logger {
	var w io.Writer = io.Discard
	if flagVerbose {
		w = cmd.ErrOrStderr()
	}
	return log.New(w, "", log.LstdFlags)
}
