// Package config loads jibewatch's TOML configuration.
//
// # File Location
//
//  1. The path passed to Load (the --config flag), when non-empty
//  2. Otherwise ~/.config/jibewatch/config.toml
//
// A missing file is not an error: Load returns Default(). A file that
// exists but does not parse, or holds an invalid value, is.
//
// # Keys
//
//	api_base            = "http://127.0.0.1:8080"  # jibe backend, host:port or URL
//	poll_interval       = "1s"                     # log follower cadence
//	run_poll_interval   = "5s"                     # run tree cadence
//	requests_per_second = 10                       # client-side rate limit
//	user_agent          = ""                       # default jibewatch/<version>
//	listen_addr         = "127.0.0.1:7480"         # serve mode
//	log_file            = "~/.local/state/jibewatch/jibewatch.log"
//	log_level           = "info"
//
// Durations use Go syntax and must be positive. Paths starting with ~ are
// expanded against the user's home directory and made absolute; ExpandPath
// exposes the same rule to package prefs.
package config
