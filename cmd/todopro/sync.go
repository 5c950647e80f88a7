package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/todopro/todopro-cli/internal/remote"
	"github.com/todopro/todopro-cli/internal/store"
	"github.com/todopro/todopro-cli/internal/sync"
	"github.com/todopro/todopro-cli/internal/ui"
)

var (
	syncFull             bool
	syncDryRun           bool
	syncSerial           bool
	syncAbortOnConflicts bool
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Synchronize the local store with the todopro service",
	Long: `Synchronize data between the local embedded store and the todopro
service. Each direction is an explicit command:

  todopro sync pull    apply remote changes to the local store
  todopro sync push    apply local changes to the remote service

Both commands print per-collection counts and exit non-zero when
unresolved conflicts remain or a collection failed.`,
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Apply remote changes to the local store",
	Run: func(cmd *cobra.Command, args []string) {
		runPass(sync.Pull)
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Apply local changes to the remote service",
	Run: func(cmd *cobra.Command, args []string) {
		runPass(sync.Push)
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show last sync times and unresolved conflict count",
	Run: func(cmd *cobra.Command, args []string) {
		p := loadProfile()
		logger := newLogger(p, "[sync] ")

		state := sync.OpenState(p.StatePath(), logger)
		tracker := sync.OpenTracker(p.ConflictsPath(), logger)

		fmt.Print(ui.RenderCursors(state.All()))
		if n := tracker.Count(); n > 0 {
			fmt.Printf("\n%s %d unresolved conflict(s), run 'todopro conflicts list'\n",
				ui.RenderWarn("⚠"), n)
		}
	},
}

func init() {
	for _, cmd := range []*cobra.Command{syncPullCmd, syncPushCmd} {
		cmd.Flags().BoolVar(&syncFull, "full", false, "ignore the stored cursor and reconcile everything")
		cmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "preview changes without applying them")
		cmd.Flags().BoolVar(&syncSerial, "serial", false, "reconcile collections one at a time")
		cmd.Flags().BoolVar(&syncAbortOnConflicts, "abort-on-conflicts", false,
			"skip collections that already have unresolved conflicts")
	}

	syncCmd.AddCommand(syncPullCmd)
	syncCmd.AddCommand(syncPushCmd)
	syncCmd.AddCommand(syncStatusCmd)
}

// runPass wires up a pull or push pass and prints the summary. Exits
// non-zero when conflicts remain after the pass or any collection failed.
func runPass(direction sync.Direction) {
	p := loadProfile()
	logger := newLogger(p, "[sync] ")

	if p.Config.API.Token == "" {
		fmt.Fprintf(os.Stderr, "Error: not logged in (run 'todopro auth login')\n")
		os.Exit(1)
	}

	st, err := store.Open(p.DBPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening local store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.InitSchema(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing local store: %v\n", err)
		os.Exit(1)
	}

	client := remote.NewClient(p.Config.API.Endpoint, p.Config.API.Token, p.APITimeout(), newLogger(p, "[api] "))
	state := sync.OpenState(p.StatePath(), logger)
	tracker := sync.OpenTracker(p.ConflictsPath(), logger)

	opts := sync.Options{
		Full:             syncFull,
		DryRun:           syncDryRun,
		AbortOnConflicts: syncAbortOnConflicts,
		Parallel:         p.Config.Sync.Parallel && !syncSerial,
		MaxRetries:       p.Config.API.Retry,
	}

	var service *sync.Service
	if direction == sync.Pull {
		service = sync.NewPuller(st.Endpoint(), client.Endpoint(), state, tracker, opts, logger)
	} else {
		service = sync.NewPusher(st.Endpoint(), client.Endpoint(), state, tracker, opts, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	fmt.Printf("%s Running %s...\n", ui.RenderAccent("🔄"), direction)

	result, err := service.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during %s: %v\n", direction, err)
		os.Exit(1)
	}

	if syncDryRun {
		fmt.Printf("%s Dry run, no changes applied\n", ui.RenderWarn("⚠"))
	}
	fmt.Print(ui.RenderResult(result))

	if result.HasConflicts() {
		fmt.Printf("\n%s %d new conflict(s) detected:\n", ui.RenderWarn("⚠"), len(result.Conflicts))
		fmt.Print(ui.RenderConflicts(result.Conflicts))
	}

	switch {
	case !result.OK():
		fmt.Printf("\n%s %s finished with errors in %v\n", ui.RenderFail("✗"), direction, time.Since(start).Round(time.Millisecond))
		os.Exit(1)
	case tracker.Has():
		fmt.Printf("\n%s %s finished in %v, but conflicts need resolution\n", ui.RenderWarn("⚠"), direction, time.Since(start).Round(time.Millisecond))
		os.Exit(1)
	default:
		fmt.Printf("\n%s %s complete in %v\n", ui.RenderPass("✓"), direction, time.Since(start).Round(time.Millisecond))
	}
}
