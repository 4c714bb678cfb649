// Package workspace manages the per-request scratch directories used by the
// merge pipeline.
//
// Every merge owns one directory named <prefix><uuid> under the temp root.
// The Manager tracks each workspace's cleanup state in a mutex-guarded map so
// that Cleanup removes the directory exactly once, no matter how many
// termination paths ask for it. Finished entries are forgotten after a grace
// window, and unknown IDs are ignored, so the map stays bounded under
// sustained traffic without ever allowing a second removal.
//
// A workspace holds an advisory file lock (gofrs/flock) while alive.
// SweepOrphans, run once at startup, removes prefixed directories left by a
// crashed or killed process and skips any whose lock is still held.
package workspace
