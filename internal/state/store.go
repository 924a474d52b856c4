package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/jibewatch/internal/jibe"
)

// Snapshot represents the latest run data available to the UI.
type Snapshot struct {
	Run                 jibe.Run
	HasRun              bool
	Mandates            []jibe.Node
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Mandate returns the node for mandateID, if present.
func (s Snapshot) Mandate(mandateID string) (jibe.Node, bool) {
	for _, n := range s.Mandates {
		if n.ID == mandateID {
			return n, true
		}
	}
	return jibe.Node{}, false
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored snapshot. When err is non-nil the previous data is
// kept but the error is recorded for visibility.
func (s *Store) Update(run *jibe.Run, mandates []jibe.Node, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Mandates = cloneNodes(mandates)
	if run != nil {
		s.snapshot.Run = *run
		s.snapshot.HasRun = true
	} else {
		s.snapshot.HasRun = false
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// SetStatus records a fresher status for one mandate without touching the
// rest of the tree.
func (s *Store) SetStatus(mandateID string, status jibe.ExecutiveStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.snapshot.Mandates {
		if s.snapshot.Mandates[i].ID == mandateID {
			s.snapshot.Mandates[i].ExecutiveStatus = status
			return
		}
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Mandates = cloneNodes(s.snapshot.Mandates)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneNodes(nodes []jibe.Node) []jibe.Node {
	if len(nodes) == 0 {
		return nil
	}
	dup := make([]jibe.Node, len(nodes))
	copy(dup, nodes)
	return dup
}
