package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/todopro/todopro-cli/internal/config"
)

var profileName string

var rootCmd = &cobra.Command{
	Use:   "todopro",
	Short: "Offline-first todo manager with two-way sync",
	Long: `todopro keeps your tasks, projects, labels and friends in a local
embedded store for offline use and syncs them with the todopro service
for multi-device access.

Changes flow in two explicit directions: 'todopro sync pull' brings
remote changes down, 'todopro sync push' sends local changes up.
Records that changed on both sides since the last sync are surfaced as
conflicts for you to resolve, never merged silently.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", config.DefaultProfile,
		"configuration profile to use")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Synchronization:"},
		&cobra.Group{ID: "data", Title: "Task management:"},
	)

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(conflictsCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(taskCmd)
}

// loadProfile loads the selected profile or exits.
func loadProfile() *config.Profile {
	p, err := config.Load(profileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading profile %s: %v\n", profileName, err)
		os.Exit(1)
	}
	return p
}

// newLogger returns a component logger writing to the profile's rotating
// log file. CLI output stays on stdout/stderr; the log file keeps the
// detailed trail.
func newLogger(p *config.Profile, prefix string) *log.Logger {
	return log.New(&lumberjack.Logger{
		Filename:   p.LogPath(),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}, prefix, log.LstdFlags)
}
