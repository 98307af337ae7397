// Package main provides the taskdeck CLI, an offline-first client for the
// taskdeck server. Writes made while the server is unreachable are kept in
// a local SQLite file and replayed on the next command that can reach it.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
