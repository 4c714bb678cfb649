package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mp4-creator/internal/logging"
	"mp4-creator/internal/metrics"
	"mp4-creator/internal/transcoder"
	"mp4-creator/internal/workers"
	"mp4-creator/internal/workspace"
)

// Gate reports whether the external engine is usable.
type Gate interface {
	Available() bool
}

// Deliverer streams the merged result to the client.
type Deliverer interface {
	Serve(ctx context.Context, w http.ResponseWriter, path string) (int64, error)
}

// ReceiveFunc materializes the request's uploads inside dir and returns them
// in arrival order together with the client order.
type ReceiveFunc func(ctx context.Context, dir string) (Submission, error)

// Options holds the collaborators of a Coordinator.
type Options struct {
	Gate       Gate
	Workspaces *workspace.Manager
	Transcoder *transcoder.Transcoder
	Delivery   Deliverer
	// Pool bounds concurrent merges. A nil Pool admits one merge per CPU
	// (at most 4).
	Pool *workers.Pool
}

// Coordinator runs merge requests end to end.
type Coordinator struct {
	gate       Gate
	workspaces *workspace.Manager
	stages     *transcoder.Transcoder
	delivery   Deliverer
	pool       *workers.Pool

	// onTransition is a test hook called after every state change.
	onTransition func(id string, s State)
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(opts Options) *Coordinator {
	pool := opts.Pool
	if pool == nil {
		pool = workers.NewPool(workers.ForCPU(4))
	}
	return &Coordinator{
		gate:       opts.Gate,
		workspaces: opts.Workspaces,
		stages:     opts.Transcoder,
		delivery:   opts.Delivery,
		pool:       pool,
	}
}

// Capacity returns the maximum number of merges that run at once.
func (c *Coordinator) Capacity() int {
	return c.pool.Size()
}

// Running returns the number of merges currently holding a slot.
func (c *Coordinator) Running() int {
	return c.pool.InUse()
}

// run is the per-request state.
type run struct {
	id       string
	state    State
	log      logging.Logger
	observer func(id string, s State)
}

func (r *run) advance(next State) {
	if !r.state.CanTransition(next) {
		// Only reachable through a coordinator bug.
		panic(fmt.Sprintf("merge %s: invalid transition %s -> %s", r.id, r.state, next))
	}
	r.log.Debug("state %s -> %s", r.state, next)
	r.state = next
	if r.observer != nil {
		r.observer(r.id, next)
	}
}

func (r *run) fail(err error) *Failure {
	f := AsFailure(err)
	if r.state != StateFailed {
		r.advance(StateFailed)
	}
	if f.Err != nil {
		r.log.Warn("merge failed (%s): %s: %v", f.Kind, f.Message, f.Err)
	} else {
		r.log.Info("merge rejected (%s): %s", f.Kind, f.Message)
	}
	return f
}

// Run executes one merge: it waits for a slot, creates a workspace, receives
// the uploads, resolves the order, normalizes, concatenates and streams
// merged.mp4 to w. The workspace is cleaned exactly once however Run ends.
//
// The returned error is nil or a *Failure. When Failure.Committed is false
// nothing has been written to w yet.
//
// Client disconnects never interrupt a running engine invocation; they are
// noticed between stages and during delivery.
func (c *Coordinator) Run(ctx context.Context, w http.ResponseWriter, receive ReceiveFunc) error {
	r := &run{id: uuid.NewString(), state: StateReceived, observer: c.onTransition}
	r.log = logging.With("merge", r.id)
	start := time.Now()

	metrics.MergesInProgress.Inc()
	defer metrics.MergesInProgress.Dec()

	failure := c.run(ctx, r, w, receive)
	if r.state == StateFailed {
		// Rejected before a workspace existed: nothing to remove.
		r.advance(StateCleaned)
	}

	outcome := "success"
	if failure != nil {
		outcome = failure.Kind.String()
	}
	metrics.MergesTotal.WithLabelValues(outcome).Inc()
	metrics.MergeDuration.Observe(time.Since(start).Seconds())

	if failure != nil {
		return failure
	}
	r.log.Info("merge completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}

func (c *Coordinator) run(ctx context.Context, r *run, w http.ResponseWriter, receive ReceiveFunc) *Failure {
	if !c.gate.Available() {
		return r.fail(engineUnavailable())
	}

	release, err := c.pool.Acquire(ctx)
	if err != nil {
		return r.fail(canceled(err))
	}
	defer release()

	ws, err := c.workspaces.Create()
	if err != nil {
		return r.fail(err)
	}
	defer func() {
		if !c.workspaces.Cleanup(ws) {
			r.log.Debug("workspace %s already cleaned", ws.ID)
		}
		r.advance(StateCleaned)
	}()
	r.log.Debug("workspace %s created at %s", ws.ID, ws.Path)

	// Engine work is never tied to the client connection.
	engineCtx := context.WithoutCancel(ctx)
	stages := c.stages.WithLogger(r.log)

	stageStart := time.Now()
	sub, err := receive(ctx, ws.Path)
	observeStage("receive", stageStart)
	if err != nil {
		return r.fail(err)
	}

	inputs, err := ResolveOrder(sub)
	if err != nil {
		return r.fail(err)
	}
	r.advance(StateOrderingResolved)
	metrics.MergeInputs.Observe(float64(len(inputs)))
	r.log.Info("merging %d videos", len(inputs))

	if err := ctx.Err(); err != nil {
		return r.fail(canceled(err))
	}

	r.advance(StateNormalizing)
	sources := make([]transcoder.Source, len(inputs))
	for i, in := range inputs {
		sources[i] = transcoder.Source{Name: in.DeclaredName, Path: in.StoredPath}
	}
	stageStart = time.Now()
	outputs, err := stages.Normalize(engineCtx, sources, ws.Path)
	observeStage("normalize", stageStart)
	if err != nil {
		return r.fail(err)
	}

	if err := ctx.Err(); err != nil {
		return r.fail(canceled(err))
	}

	r.advance(StateConcatenating)
	stageStart = time.Now()
	merged, err := stages.Concatenate(engineCtx, outputs, ws.Path)
	observeStage("concatenate", stageStart)
	if err != nil {
		return r.fail(err)
	}

	if err := ctx.Err(); err != nil {
		return r.fail(canceled(err))
	}

	r.advance(StateDelivering)
	stageStart = time.Now()
	n, err := c.delivery.Serve(ctx, w, merged)
	observeStage("deliver", stageStart)
	if err != nil {
		f := r.fail(err)
		if f.Committed {
			r.log.Info("delivery stopped after %d bytes", n)
		}
		return f
	}
	r.log.Debug("delivered %d bytes", n)
	return nil
}

func observeStage(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
