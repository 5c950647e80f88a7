package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	stdsync "sync"
	"time"

	"github.com/todopro/todopro-cli/internal/model"
)

// Options tune a sync pass.
type Options struct {
	// Full ignores stored cursors and re-reconciles every record.
	Full bool

	// DryRun classifies every record without writing to the destination,
	// advancing cursors, or persisting conflicts. The Result reports
	// what a real pass would have done.
	DryRun bool

	// AbortOnConflicts skips any collection that already has unresolved
	// conflicts, to avoid compounding divergence until the user cleans
	// up. The policy lives here, not in the Tracker.
	AbortOnConflicts bool

	// Parallel reconciles the collections concurrently, one goroutine
	// per collection. Records within a collection are always applied
	// serially.
	Parallel bool

	// MaxRetries bounds retries of transient remote errors per record.
	// Zero means the default of 3.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	// Zero means the default of 1s.
	RetryBaseDelay time.Duration
}

func (o Options) maxRetries() int {
	if o.MaxRetries <= 0 {
		return 3
	}
	return o.MaxRetries
}

func (o Options) retryBaseDelay() time.Duration {
	if o.RetryBaseDelay <= 0 {
		return time.Second
	}
	return o.RetryBaseDelay
}

// Service runs sync passes in one direction over all collections. Use
// NewPuller or NewPusher to construct one; the reconciliation algorithm is
// identical either way, only the repository pairing differs.
type Service struct {
	direction Direction
	source    Endpoint
	dest      Endpoint
	state     *State
	tracker   *Tracker
	opts      Options
	logger    *log.Logger
}

func newService(dir Direction, source, dest Endpoint, state *State, tracker *Tracker, opts Options, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Service{
		direction: dir,
		source:    source,
		dest:      dest,
		state:     state,
		tracker:   tracker,
		opts:      opts,
		logger:    logger,
	}
}

// Run executes one pass over all collections and returns the aggregated
// Result. Per-collection failures are recorded in Result.Failed rather
// than aborting the rest of the pass; Run itself returns an error only
// when the context is cancelled before any work happens.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	result := &Result{
		Direction:   s.direction,
		Started:     started,
		Collections: make(map[model.Collection]Stats),
		Failed:      make(map[model.Collection]error),
	}

	s.logger.Printf("Starting %s pass (full=%v dry-run=%v)", s.direction, s.opts.Full, s.opts.DryRun)

	type outcome struct {
		collection model.Collection
		stats      Stats
		conflicts  []Conflict
		err        error
	}

	collections := model.Collections()
	outcomes := make([]outcome, len(collections))

	if s.opts.Parallel {
		var wg stdsync.WaitGroup
		for i, coll := range collections {
			wg.Add(1)
			go func(i int, coll model.Collection) {
				defer wg.Done()
				stats, conflicts, err := s.syncCollection(ctx, coll)
				outcomes[i] = outcome{coll, stats, conflicts, err}
			}(i, coll)
		}
		wg.Wait()
	} else {
		for i, coll := range collections {
			stats, conflicts, err := s.syncCollection(ctx, coll)
			outcomes[i] = outcome{coll, stats, conflicts, err}
		}
	}

	for _, o := range outcomes {
		result.Collections[o.collection] = o.stats
		result.Conflicts = append(result.Conflicts, o.conflicts...)
		if o.err != nil {
			result.Failed[o.collection] = o.err
			s.logger.Printf("WARNING: %s pass failed for %s: %v", s.direction, o.collection, o.err)
		}
	}

	result.Duration = time.Since(started)
	total := result.Total()
	s.logger.Printf("%s pass complete in %v: created=%d updated=%d skipped=%d conflicted=%d errors=%d",
		s.direction, result.Duration.Round(time.Millisecond),
		total.Created, total.Updated, total.Skipped, total.Conflicted, total.Errors)

	return result, nil
}

// syncCollection reconciles a single collection. A returned error is
// fatal for this collection only: the source fetch failed, the cursor
// could not be persisted, or conflict persistence failed.
func (s *Service) syncCollection(ctx context.Context, coll model.Collection) (Stats, []Conflict, error) {
	var stats Stats

	src, ok := s.source[coll]
	if !ok {
		return stats, nil, fmt.Errorf("no source repository for %s", coll)
	}
	dst, ok := s.dest[coll]
	if !ok {
		return stats, nil, fmt.Errorf("no destination repository for %s", coll)
	}

	if s.opts.AbortOnConflicts && s.tracker.HasFor(coll) {
		return stats, nil, fmt.Errorf("unresolved conflicts for %s, skipping (resolve them first)", coll)
	}

	var since time.Time
	if !s.opts.Full {
		if cursor, ok := s.state.LastSync(s.direction, coll); ok {
			since = cursor
		}
	}

	var records []model.Record
	err := s.withRetry(ctx, func() error {
		var listErr error
		records, listErr = src.ListChangedSince(ctx, since)
		return listErr
	})
	if err != nil {
		return stats, nil, fmt.Errorf("failed to list %s changed since %s: %w", coll, since.Format(time.RFC3339), err)
	}

	// Increasing (updated_at, version) order keeps the cursor advance
	// safe: everything up to the high-water mark has been visited.
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.Before(records[j].UpdatedAt)
		}
		return records[i].Version < records[j].Version
	})

	var (
		conflicts     []Conflict
		cursor        = since
		cursorBlocked bool
		cancelled     bool
	)

	for _, rec := range records {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		res, conflict, recErr := s.reconcile(ctx, coll, since, dst, rec)
		if recErr != nil {
			stats.Errors++
			// One failed record must not stop the batch, but the
			// cursor may never move past it.
			cursorBlocked = true
			s.logger.Printf("WARNING: failed to reconcile %s %s: %v", coll, rec.ID, recErr)
			continue
		}

		switch res {
		case outcomeCreated:
			stats.Created++
		case outcomeUpdated:
			stats.Updated++
		case outcomeSkipped:
			stats.Skipped++
		case outcomeConflicted:
			stats.Conflicted++
			if conflict != nil {
				conflicts = append(conflicts, *conflict)
			}
		}

		if !cursorBlocked && rec.UpdatedAt.After(cursor) {
			cursor = rec.UpdatedAt
		}
	}

	if cancelled {
		// Resume from the prior cursor on retry; skipped records make
		// the re-fetch idempotent.
		return stats, conflicts, ctx.Err()
	}

	if !s.opts.DryRun && cursor.After(since) {
		if err := s.state.SetLastSync(s.direction, coll, cursor); err != nil {
			return stats, conflicts, fmt.Errorf("failed to advance %s cursor: %w", coll, err)
		}
	}

	return stats, conflicts, nil
}

type reconcileOutcome int

const (
	outcomeCreated reconcileOutcome = iota
	outcomeUpdated
	outcomeSkipped
	outcomeConflicted
)

// reconcile applies a single source record to the destination and
// classifies the outcome. since is the cursor the batch was fetched with;
// a destination that changed after it has diverged independently.
func (s *Service) reconcile(ctx context.Context, coll model.Collection, since time.Time, dst Repository, rec model.Record) (reconcileOutcome, *Conflict, error) {
	var existing model.Record
	err := s.withRetry(ctx, func() error {
		var getErr error
		existing, getErr = dst.GetByID(ctx, rec.ID)
		return getErr
	})

	switch {
	case errors.Is(err, ErrNotFound):
		if rec.Deleted() {
			// Nothing to delete on this side.
			return outcomeSkipped, nil, nil
		}
		createErr := s.apply(ctx, func() error {
			_, err := dst.Create(ctx, rec)
			return err
		})
		if createErr != nil {
			return 0, nil, createErr
		}
		return outcomeCreated, nil, nil

	case err != nil:
		return 0, nil, err
	}

	if existing.EqualState(&rec) {
		return outcomeSkipped, nil, nil
	}

	if existing.UpdatedAt.After(since) {
		// Destination changed independently since the last cursor.
		if existing.UpdatedAt.Equal(rec.UpdatedAt) {
			// Same-instant writes are ordered by version: the higher
			// version wins, deterministically.
			if rec.Version > existing.Version {
				return s.applyUpdate(ctx, dst, rec, existing)
			}
			return outcomeSkipped, nil, nil
		}
		return s.recordConflict(coll, rec, existing)
	}

	return s.applyUpdate(ctx, dst, rec, existing)
}

// applyUpdate writes rec over existing, honouring the protected guard:
// protected records accept field updates but never deletion.
func (s *Service) applyUpdate(ctx context.Context, dst Repository, rec, existing model.Record) (reconcileOutcome, *Conflict, error) {
	if rec.Deleted() && existing.Protected {
		s.logger.Printf("WARNING: refusing to delete protected %s record %s", dst.Collection(), existing.ID)
		return outcomeSkipped, nil, nil
	}

	err := s.apply(ctx, func() error {
		_, err := dst.Update(ctx, rec.ID, rec)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return outcomeUpdated, nil, nil
}

// apply runs a destination write, respecting DryRun.
func (s *Service) apply(ctx context.Context, write func() error) error {
	if s.opts.DryRun {
		return nil
	}
	return s.withRetry(ctx, write)
}

// recordConflict builds the conflict record with local/remote snapshots
// oriented by pass direction and appends it to the tracker. A conflict is
// an outcome, never an error; the destination is left untouched.
func (s *Service) recordConflict(coll model.Collection, rec, existing model.Record) (reconcileOutcome, *Conflict, error) {
	local, remote := existing, rec
	if s.direction == Push {
		local, remote = rec, existing
	}

	conflict := Conflict{
		Collection:     coll,
		ID:             rec.ID,
		LocalVersion:   local.Version,
		RemoteVersion:  remote.Version,
		LocalSnapshot:  local.Fields,
		RemoteSnapshot: remote.Fields,
		DetectedAt:     time.Now().UTC(),
	}

	if s.opts.DryRun {
		return outcomeConflicted, &conflict, nil
	}

	added, err := s.tracker.Add(conflict)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to record conflict for %s %s: %w", coll, rec.ID, err)
	}
	if !added {
		// Already tracked from an earlier pass; still a conflicted
		// outcome, but not a new entry for this Result.
		return outcomeConflicted, nil, nil
	}
	return outcomeConflicted, &conflict, nil
}

// withRetry retries fn with bounded exponential backoff while it returns
// transient errors. Permanent errors (4xx rejections, local storage
// failures, not-found) return immediately.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	delay := s.opts.retryBaseDelay()

	var err error
	for attempt := 0; attempt <= s.opts.maxRetries(); attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}

		err = fn()
		if err == nil || !IsTransient(err) {
			return err
		}
	}
	return fmt.Errorf("retries exhausted: %w", err)
}
