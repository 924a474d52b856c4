// Package follow polls the logs of a run's leaf mandates and decodes them
// incrementally, one logstream.Stream per mandate.
package follow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/jibewatch/internal/jibe"
	"github.com/five82/jibewatch/internal/logstream"
)

const defaultPollInterval = time.Second

var (
	// ErrNotTracked is returned for mandates the follower does not know.
	ErrNotTracked = errors.New("mandate not tracked")
	// ErrFetchInFlight is returned by Poll while an earlier fetch for the
	// same mandate has not completed.
	ErrFetchInFlight = errors.New("log fetch already in flight")
)

// Fetcher is the subset of the backend API the follower needs.
type Fetcher interface {
	FetchStatus(ctx context.Context, runID, mandateID string) (*jibe.MandateStatus, error)
	FetchLog(ctx context.Context, runID, mandateID string, offset int64) (string, error)
}

// View is a read-only copy of one mandate's decoded log.
type View struct {
	MandateID string
	Status    jibe.ExecutiveStatus
	Blocks    []logstream.Block
	Version   uint64
	Offset    int64
	Stats     logstream.Stats
	Done      bool
	LastError error
}

type tracked struct {
	id       string
	inFlight atomic.Bool

	mu      sync.Mutex
	stream  *logstream.Stream
	status  jibe.ExecutiveStatus
	done    bool
	lastErr error
}

// Follower keeps one log stream per leaf mandate of a run and feeds it
// from the backend.
type Follower struct {
	runID   string
	fetcher Fetcher
	logger  zerolog.Logger

	mu       sync.RWMutex
	mandates map[string]*tracked
	order    []string
}

// New returns a follower for runID with no mandates tracked.
func New(runID string, fetcher Fetcher, logger zerolog.Logger) *Follower {
	return &Follower{
		runID:    runID,
		fetcher:  fetcher,
		logger:   logger.With().Str("component", "follow").Str("run", runID).Logger(),
		mandates: make(map[string]*tracked),
	}
}

// RunID returns the run being followed.
func (f *Follower) RunID() string { return f.runID }

// Track starts following mandateID. Tracking a mandate twice only updates
// its status.
func (f *Follower) Track(mandateID string, status jibe.ExecutiveStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t, ok := f.mandates[mandateID]; ok {
		t.mu.Lock()
		t.status = status
		t.mu.Unlock()
		return
	}
	f.mandates[mandateID] = &tracked{
		id:     mandateID,
		stream: logstream.NewStream(mandateID, f.logger),
		status: status,
	}
	f.order = append(f.order, mandateID)
}

// Untrack discards the mandate's stream.
func (f *Follower) Untrack(mandateID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.mandates[mandateID]; !ok {
		return
	}
	delete(f.mandates, mandateID)
	for i, id := range f.order {
		if id == mandateID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// Tracked returns the followed mandate ids in tracking order.
func (f *Follower) Tracked() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.order...)
}

// Reset clears a mandate's decoded log so the next poll starts from byte 0.
// A reset mandate is followed again even if it had finished.
func (f *Follower) Reset(mandateID string) error {
	t := f.lookup(mandateID)
	if t == nil {
		return fmt.Errorf("reset %s: %w", mandateID, ErrNotTracked)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stream.Reset()
	t.done = false
	t.lastErr = nil
	return nil
}

// Poll fetches the unseen suffix of one mandate's log and decodes it. Only
// one fetch per mandate may be outstanding; a concurrent call returns
// ErrFetchInFlight without contacting the backend. It reports whether any
// new bytes were decoded.
func (f *Follower) Poll(ctx context.Context, mandateID string) (bool, error) {
	t := f.lookup(mandateID)
	if t == nil {
		return false, fmt.Errorf("poll %s: %w", mandateID, ErrNotTracked)
	}
	if !t.inFlight.CompareAndSwap(false, true) {
		return false, ErrFetchInFlight
	}
	defer t.inFlight.Store(false)

	t.mu.Lock()
	offset := t.stream.Offset()
	t.mu.Unlock()

	text, err := f.fetcher.FetchLog(ctx, f.runID, mandateID, offset)
	if err != nil {
		t.mu.Lock()
		t.lastErr = err
		t.mu.Unlock()
		return false, fmt.Errorf("fetch log %s at %d: %w", mandateID, offset, err)
	}

	t.mu.Lock()
	applied, decodeErr := t.stream.Apply(offset, text)
	advanced := t.stream.Offset() != offset
	t.lastErr = nil
	t.mu.Unlock()

	if !applied {
		return false, nil
	}
	if decodeErr != nil {
		f.logDecodeErrors(mandateID, decodeErr)
	}
	return advanced, nil
}

// Refresh updates the mandate's status and polls its log. A mandate that
// has reached a terminal status is marked done once a poll finds no new
// bytes, and is skipped afterwards.
func (f *Follower) Refresh(ctx context.Context, mandateID string) error {
	t := f.lookup(mandateID)
	if t == nil {
		return fmt.Errorf("refresh %s: %w", mandateID, ErrNotTracked)
	}
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done {
		return nil
	}

	status, err := f.fetcher.FetchStatus(ctx, f.runID, mandateID)
	if err != nil {
		t.mu.Lock()
		t.lastErr = err
		t.mu.Unlock()
		return fmt.Errorf("fetch status %s: %w", mandateID, err)
	}
	if status != nil {
		t.mu.Lock()
		t.status = status.ExecutiveStatus
		t.mu.Unlock()
	}

	advanced, err := f.Poll(ctx, mandateID)
	if errors.Is(err, ErrFetchInFlight) {
		return nil
	}
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.status.IsTerminal() && !advanced {
		t.done = true
		f.logger.Debug().Str("mandate", mandateID).Str("status", string(t.status)).Msg("log complete")
	}
	t.mu.Unlock()
	return nil
}

// RefreshAll refreshes every tracked mandate. Errors are logged, not
// returned, so one failing mandate does not starve the others.
func (f *Follower) RefreshAll(ctx context.Context) {
	for _, id := range f.Tracked() {
		if ctx.Err() != nil {
			return
		}
		if err := f.Refresh(ctx, id); err != nil && !errors.Is(err, ErrNotTracked) {
			f.logger.Warn().Err(err).Str("mandate", id).Msg("log refresh failed")
		}
	}
}

// Run refreshes all mandates every interval until ctx is cancelled.
func (f *Follower) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		f.RefreshAll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// View returns a copy of one mandate's decoded log.
func (f *Follower) View(mandateID string) (View, bool) {
	t := f.lookup(mandateID)
	if t == nil {
		return View{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return View{
		MandateID: t.id,
		Status:    t.status,
		Blocks:    t.stream.Blocks(),
		Version:   t.stream.Version(),
		Offset:    t.stream.Offset(),
		Stats:     t.stream.Stats(),
		Done:      t.done,
		LastError: t.lastErr,
	}, true
}

// Version returns the stream version of mandateID without copying blocks.
func (f *Follower) Version(mandateID string) (uint64, bool) {
	t := f.lookup(mandateID)
	if t == nil {
		return 0, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stream.Version(), true
}

func (f *Follower) lookup(mandateID string) *tracked {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.mandates[mandateID]
}

func (f *Follower) logDecodeErrors(mandateID string, err error) {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, e := range errs {
		event := f.logger.Warn().Str("mandate", mandateID)
		var lineErr *logstream.LineError
		if errors.As(e, &lineErr) {
			event = event.Int64("offset", lineErr.Offset).Str("line", lineErr.Raw)
		}
		event.Err(e).Msg("log line decode")
	}
}
