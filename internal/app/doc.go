// Package app is the composition root of jibewatch.
//
// It loads config and prefs, opens the log file, resolves which run to
// follow and starts two background loops against the jibe backend:
//
//	┌──────────────┐ every run_poll_interval ┌──────────────┐
//	│ StartPoller  │ ──── run + tree ──────> │ state.Store  │ ──> ui / header
//	└──────┬───────┘                         └──────────────┘
//	       │ Track / Untrack leaves
//	       v
//	┌──────────────┐ every poll_interval     ┌──────────────┐
//	│ follow.Run   │ ──── log suffixes ────> │ log streams  │ ──> ui / server
//	└──────────────┘                         └──────────────┘
//
// Run hands both to the TUI. Serve hands the follower to the HTTP and
// WebSocket block feed instead. The tree poller backs off exponentially
// while the backend is failing, capped at 30 seconds; the follower keeps
// its own cadence and skips mandates whose logs are complete.
package app
