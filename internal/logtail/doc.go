// Package logtail reads jibe logs from local files.
//
// Read returns the last N lines of a file using a ring buffer, so only
// O(N) lines are held regardless of file size. ReadFrom returns the bytes
// after an offset, which is how a growing file is followed: File adapts
// it to the follower's fetch interface so a log copied off a worker can
// be decoded and tailed exactly like one served by the backend.
//
//	f := follow.New("local", logtail.File{Path: "build.log"}, logger)
//	f.Track("build.log", jibe.StatusRunning)
//	f.Run(ctx, time.Second)
package logtail
