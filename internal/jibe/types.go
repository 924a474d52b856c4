package jibe

import (
	"strings"
	"time"
)

// ExecutiveStatus is the scheduler's verdict on a mandate.
type ExecutiveStatus string

const (
	StatusPending  ExecutiveStatus = "PENDING"
	StatusRunning  ExecutiveStatus = "RUNNING"
	StatusUnneeded ExecutiveStatus = "UNNEEDED"
	StatusFailure  ExecutiveStatus = "FAILURE"
	StatusSuccess  ExecutiveStatus = "SUCCESS"
	StatusNeeded   ExecutiveStatus = "NEEDED"
	StatusBlocked  ExecutiveStatus = "BLOCKED"
)

// IsTerminal reports whether the mandate will not change any more. Logs of
// terminal mandates need one final fetch and no further polling.
func (s ExecutiveStatus) IsTerminal() bool {
	return s != StatusPending && s != StatusRunning
}

// RootMandateID is the id of the top of every run's mandate tree.
const RootMandateID = "m0"

// Run mirrors the payload of /data/runs and /data/run/{id}/run.
type Run struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	StartTime   int64           `json:"startTime"`
	EndTime     int64           `json:"endTime"`
	Status      ExecutiveStatus `json:"executiveStatus"`
}

// runDescriptionLayout is how the backend names runs after their start time.
const runDescriptionLayout = "2006-01-02-15-04-05"

// Key returns the identifier used in /data/run/{key} paths. Older backends
// only report the description, which doubles as the id.
func (r Run) Key() string {
	if id := strings.TrimSpace(r.ID); id != "" {
		return id
	}
	return strings.TrimSpace(r.Description)
}

// Started returns the run start time, from StartTime when present and from
// the description otherwise.
func (r Run) Started() time.Time {
	if r.StartTime > 0 {
		return time.UnixMilli(r.StartTime)
	}
	if t, err := time.ParseInLocation(runDescriptionLayout, r.Description, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

// Duration returns the run time so far, or zero when unknown.
func (r Run) Duration() time.Duration {
	if r.StartTime <= 0 || r.EndTime < r.StartTime {
		return 0
	}
	return time.Duration(r.EndTime-r.StartTime) * time.Millisecond
}

// MandateStatus mirrors /data/run/{run}/{mandate}/status and /children.
type MandateStatus struct {
	ID              string          `json:"id"`
	Description     string          `json:"description"`
	Composite       bool            `json:"composite"`
	ExecutiveStatus ExecutiveStatus `json:"executiveStatus"`
	StartTime       int64           `json:"startTime"`
	EndTime         int64           `json:"endTime"`
}

// Elapsed returns the mandate's run time when both ends are known.
func (m MandateStatus) Elapsed() time.Duration {
	if m.StartTime <= 0 || m.EndTime < m.StartTime {
		return 0
	}
	return time.Duration(m.EndTime-m.StartTime) * time.Millisecond
}
