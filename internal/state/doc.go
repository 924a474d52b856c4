// Package state holds the run tree shared between the tree poller and the UI.
//
// # Overview
//
// The poller in package app reloads the run and its flattened mandate tree
// every few seconds and writes the result here. The dashboard reads a
// Snapshot on every tick to draw the tree pane and the header.
//
//	Producer (tree poller):         Consumer (UI):
//	┌──────────────────┐           ┌──────────────────┐
//	│ FetchRun()       │           │                  │
//	│ jibe.LoadTree()  │           │                  │
//	│      ↓           │           │                  │
//	│ store.Update()   │──────────→│ store.Snapshot() │
//	│      ↓           │  (mutex)  │      ↓           │
//	│ repeat...        │           │ render tree      │
//	└──────────────────┘           └──────────────────┘
//
// Decoded logs do not live here. Each leaf mandate's log stream is owned
// by follow.Follower, which has its own locking and version counters.
//
// # Update Semantics
//
//	// Success: replace run and mandates, clear the error
//	store.Update(run, nodes, nil)
//
//	// Failure: keep the last good tree, record the error
//	store.Update(nil, nil, err)
//
// Consecutive failures are counted. Snapshot.IsOffline reports true from
// the second failure on, which the header shows as OFFLINE while the last
// known tree stays on screen. The same counter drives the poller's
// exponential backoff.
//
// SetStatus patches one mandate's status between tree polls.
//
// # Copying
//
// Snapshot returns the mandate slice cloned and the error re-wrapped, so a
// caller may keep or modify it without racing the next Update.
package state
