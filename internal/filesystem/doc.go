/*
Package filesystem provides filesystem operations that retry transient errors.

Workspaces may live on network storage, where ESTALE (stale file handle) shows
up during server-side changes, and a directory can be briefly busy while an
engine process that was just killed still holds files in it. Both operations
here retry those errors with capped exponential backoff and fall through to
the plain os error for everything else:

	err := filesystem.RemoveAllWithRetry(dir, filesystem.DefaultRetryConfig())

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())

Retries are counted in mp4_creator_filesystem_retries_total by operation and
result.
*/
package filesystem
