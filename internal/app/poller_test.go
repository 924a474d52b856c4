package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/jibewatch/internal/config"
	"github.com/five82/jibewatch/internal/follow"
	"github.com/five82/jibewatch/internal/jibe"
	"github.com/five82/jibewatch/internal/state"
)

// fakeBackend serves a fixed run and a mutable mandate tree.
type fakeBackend struct {
	mu       sync.Mutex
	runs     []jibe.Run
	children map[string][]jibe.MandateStatus
	runErr   error
}

func (b *fakeBackend) FetchRuns(_ context.Context, limit, _ int) ([]jibe.Run, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.runErr != nil {
		return nil, b.runErr
	}
	if limit > 0 && limit < len(b.runs) {
		return b.runs[:limit], nil
	}
	return b.runs, nil
}

func (b *fakeBackend) FetchRun(_ context.Context, runID string) (*jibe.Run, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.runErr != nil {
		return nil, b.runErr
	}
	for _, r := range b.runs {
		if r.Key() == runID {
			return &r, nil
		}
	}
	return nil, jibe.ErrNotFound
}

func (b *fakeBackend) FetchChildren(_ context.Context, _, mandateID string) ([]jibe.MandateStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.children[mandateID], nil
}

func (b *fakeBackend) FetchStatus(context.Context, string, string) (*jibe.MandateStatus, error) {
	return nil, nil
}

func (b *fakeBackend) FetchLog(context.Context, string, string, int64) (string, error) {
	return "", nil
}

func (b *fakeBackend) setChildren(parent string, children ...jibe.MandateStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.children[parent] = children
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		runs:     []jibe.Run{{ID: "r2"}, {ID: "r1"}},
		children: make(map[string][]jibe.MandateStatus),
	}
}

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 100; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff || got <= 0 {
			t.Errorf("calculateBackoff(%d, %v) = %v, outside (0, %v]", failures, baseInterval, got, maxBackoff)
		}
	}
}

func TestRefresh_TracksLeaves(t *testing.T) {
	backend := newFakeBackend()
	backend.setChildren(jibe.RootMandateID,
		jibe.MandateStatus{ID: "m1", ExecutiveStatus: jibe.StatusSuccess},
		jibe.MandateStatus{ID: "m2", Composite: true, ExecutiveStatus: jibe.StatusRunning},
	)
	backend.setChildren("m2",
		jibe.MandateStatus{ID: "m3", ExecutiveStatus: jibe.StatusRunning},
		jibe.MandateStatus{ID: "m4", ExecutiveStatus: jibe.StatusPending},
	)

	store := &state.Store{}
	follower := follow.New("r1", backend, zerolog.Nop())
	if err := refresh(context.Background(), store, backend, follower, zerolog.Nop()); err != nil {
		t.Fatalf("refresh returned error: %v", err)
	}

	snap := store.Snapshot()
	if !snap.HasRun || snap.Run.ID != "r1" || len(snap.Mandates) != 4 {
		t.Fatalf("snapshot = run %q (%v), %d mandates, want r1 and 4", snap.Run.ID, snap.HasRun, len(snap.Mandates))
	}
	if got := strings.Join(follower.Tracked(), ","); got != "m1,m3,m4" {
		t.Fatalf("Tracked = %s, want m1,m3,m4", got)
	}
	if view, _ := follower.View("m3"); view.Status != jibe.StatusRunning {
		t.Fatalf("m3 status = %s, want RUNNING", view.Status)
	}

	// m4 leaves the tree and m3 finishes.
	backend.setChildren("m2", jibe.MandateStatus{ID: "m3", ExecutiveStatus: jibe.StatusFailure})
	if err := refresh(context.Background(), store, backend, follower, zerolog.Nop()); err != nil {
		t.Fatalf("refresh returned error: %v", err)
	}
	if got := strings.Join(follower.Tracked(), ","); got != "m1,m3" {
		t.Fatalf("Tracked = %s, want m1,m3", got)
	}
	if view, _ := follower.View("m3"); view.Status != jibe.StatusFailure {
		t.Fatalf("m3 status = %s, want FAILURE", view.Status)
	}
}

func TestRefresh_ErrorKeepsTree(t *testing.T) {
	backend := newFakeBackend()
	backend.setChildren(jibe.RootMandateID, jibe.MandateStatus{ID: "m1", ExecutiveStatus: jibe.StatusRunning})

	store := &state.Store{}
	follower := follow.New("r1", backend, zerolog.Nop())
	if err := refresh(context.Background(), store, backend, follower, zerolog.Nop()); err != nil {
		t.Fatalf("refresh returned error: %v", err)
	}

	backend.mu.Lock()
	backend.runErr = errors.New("connection refused")
	backend.mu.Unlock()
	if err := refresh(context.Background(), store, backend, follower, zerolog.Nop()); err == nil {
		t.Fatal("refresh returned nil error")
	}

	snap := store.Snapshot()
	if snap.ConsecutiveFailures != 1 || len(snap.Mandates) != 1 {
		t.Fatalf("snapshot = %d failures, %d mandates, want 1, 1", snap.ConsecutiveFailures, len(snap.Mandates))
	}
	if got := follower.Tracked(); len(got) != 1 {
		t.Fatalf("Tracked = %v, want [m1]", got)
	}
}

func TestResolveRun(t *testing.T) {
	backend := newFakeBackend()
	ctx := context.Background()

	tests := []struct {
		ref  string
		want string
	}{
		{"", "r2"},
		{"latest", "r2"},
		{"LATEST", "r2"},
		{" r1 ", "r1"},
	}
	for _, tt := range tests {
		got, err := ResolveRun(ctx, backend, tt.ref)
		if err != nil || got != tt.want {
			t.Errorf("ResolveRun(%q) = %q, %v, want %q", tt.ref, got, err, tt.want)
		}
	}

	backend.runs = nil
	if _, err := ResolveRun(ctx, backend, ""); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("ResolveRun with no runs error = %v, want ErrNoRuns", err)
	}
}

func TestNewLogger_WritesFile(t *testing.T) {
	cfg := config.Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "state", "jibewatch.log")
	cfg.LogLevel = "warn"

	logger, closeLog, err := NewLogger(cfg, false)
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}
	logger.Info().Msg("filtered")
	logger.Warn().Str("run", "r1").Msg("kept")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "filtered") || !strings.Contains(string(data), `"run":"r1"`) {
		t.Fatalf("log contents = %q, want only the warn record", data)
	}
}
