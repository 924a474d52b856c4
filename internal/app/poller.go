package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/jibewatch/internal/follow"
	"github.com/five82/jibewatch/internal/jibe"
	"github.com/five82/jibewatch/internal/state"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second
)

// StartPoller launches a background goroutine that reloads the run and its
// mandate tree into the store and keeps the follower tracking exactly the
// tree's leaves. Failures back off exponentially. It returns immediately.
func StartPoller(ctx context.Context, store *state.Store, fetcher jibe.Fetcher, follower *follow.Follower, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		for {
			wait := calculateBackoff(store.Snapshot().ConsecutiveFailures, interval)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			_ = refresh(ctx, store, fetcher, follower, logger)
		}
	}()
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	wait := base
	for i := 0; i < failures && wait < maxBackoff; i++ {
		wait *= 2
	}
	return min(wait, maxBackoff)
}

func refresh(ctx context.Context, store *state.Store, fetcher jibe.Fetcher, follower *follow.Follower, logger zerolog.Logger) error {
	runID := follower.RunID()
	run, err := fetcher.FetchRun(ctx, runID)
	if err != nil {
		store.Update(nil, nil, err)
		logger.Warn().Err(err).Str("run", runID).Msg("run poll failed")
		return err
	}
	nodes, err := jibe.LoadTree(ctx, fetcher, runID)
	if err != nil {
		store.Update(nil, nil, err)
		logger.Warn().Err(err).Str("run", runID).Msg("mandate tree poll failed")
		return err
	}
	store.Update(run, nodes, nil)
	syncTracked(follower, nodes)
	return nil
}

// syncTracked tracks every leaf of the tree and drops mandates that left it.
func syncTracked(follower *follow.Follower, nodes []jibe.Node) {
	leaves := jibe.Leaves(nodes)
	present := make(map[string]struct{}, len(leaves))
	for _, leaf := range leaves {
		present[leaf.ID] = struct{}{}
		follower.Track(leaf.ID, leaf.ExecutiveStatus)
	}
	for _, id := range follower.Tracked() {
		if _, ok := present[id]; !ok {
			follower.Untrack(id)
		}
	}
}
