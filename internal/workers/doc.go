/*
Package workers sizes and bounds concurrent work in containerized
environments.

Count and ForCPU derive a worker count from GOMAXPROCS rather than
runtime.NumCPU, so a pod limited to 2 CPUs on a 64-core node gets 2, not 64.
The default for MAX_CONCURRENT_MERGES is ForCPU(4): every merge runs one
CPU-heavy ffmpeg process at a time, so more merges than CPUs only adds
contention.

Pool is a counting semaphore used by the merge pipeline:

	pool := workers.NewPool(workers.ForCPU(4))

	release, err := pool.Acquire(ctx)
	if err != nil {
		return err // ctx done while waiting
	}
	defer release()
*/
package workers
