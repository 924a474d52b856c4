// Package ui provides the jibewatch terminal dashboard.
//
// # Architecture Overview
//
// The dashboard is a Bubble Tea program with two panes: the mandate tree of
// the watched run on the left, and the decoded log of the selected leaf
// mandate on the right. It is read-only; the only state it changes is the
// local decode of a log (reload) and the user's preferences.
//
// # Data Flow
//
//  1. A tick fires every poll interval.
//  2. The run tree is read from a SnapshotSource (state.Store).
//  3. The selected mandate's stream version is read from a LogSource
//     (follow.Follower). Blocks are copied and re-rendered only when the
//     version moved.
//  4. render.Renderer lays the blocks out; fold state is kept per mandate
//     and keyed by block ID so it survives the log growing.
//
// Fetching happens elsewhere. The UI never blocks on the network.
//
// # Key Bindings
//
//   - tab: Switch between tree and log
//   - j/k, g/G: Move the selection
//   - enter/space: Fold or unfold the selected stack trace or command
//   - f: Toggle follow (stick to the newest block)
//   - r: Reload the mandate's log from byte 0
//   - t: Toggle timestamps
//   - H: Toggle command highlighting
//   - T: Cycle theme
//   - h/?: Help
//   - q or Ctrl+C: Quit
package ui
