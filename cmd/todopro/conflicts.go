package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/todopro/todopro-cli/internal/model"
	"github.com/todopro/todopro-cli/internal/sync"
	"github.com/todopro/todopro-cli/internal/ui"
)

var conflictsCmd = &cobra.Command{
	Use:     "conflicts",
	GroupID: "sync",
	Short:   "Review and clear sync conflicts",
	Long: `Review records that changed on both sides since the last sync.

The sync engine records conflicts instead of merging them. Inspect both
versions, fix whichever side should win (edit locally or remotely, then
sync), and clear the entry once resolved.`,
}

var conflictsListCmd = &cobra.Command{
	Use:   "list [collection]",
	Short: "List unresolved conflicts",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := loadProfile()
		tracker := sync.OpenTracker(p.ConflictsPath(), newLogger(p, "[sync] "))

		coll := model.Collection("")
		if len(args) == 1 {
			coll = model.Collection(args[0])
			if !coll.Valid() {
				fmt.Fprintf(os.Stderr, "Error: unknown collection %q\n", args[0])
				os.Exit(1)
			}
		}

		fmt.Print(ui.RenderConflicts(tracker.List(coll)))
	},
}

var conflictsClearCmd = &cobra.Command{
	Use:   "clear <collection> [id]",
	Short: "Clear resolved conflicts",
	Long: `Clear conflict entries after resolving them by hand. With only a
collection, clears every entry for that collection; with an id, clears
the single matching entry.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		p := loadProfile()
		tracker := sync.OpenTracker(p.ConflictsPath(), newLogger(p, "[sync] "))

		coll := model.Collection(args[0])
		if !coll.Valid() {
			fmt.Fprintf(os.Stderr, "Error: unknown collection %q\n", args[0])
			os.Exit(1)
		}
		id := ""
		if len(args) == 2 {
			id = args[1]
		}

		removed, err := tracker.Clear(coll, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing conflicts: %v\n", err)
			os.Exit(1)
		}
		if removed == 0 {
			fmt.Printf("%s No matching conflicts\n", ui.RenderWarn("⚠"))
			return
		}
		fmt.Printf("%s Cleared %d conflict(s)\n", ui.RenderPass("✓"), removed)
	},
}

func init() {
	conflictsCmd.AddCommand(conflictsListCmd)
	conflictsCmd.AddCommand(conflictsClearCmd)
}
