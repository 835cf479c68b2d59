package build

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aeliadev/cazan/internal/artifact"
	"github.com/aeliadev/cazan/internal/checksum"
	"github.com/aeliadev/cazan/internal/config"
	"github.com/aeliadev/cazan/internal/discovery"
	"github.com/aeliadev/cazan/internal/geometry"
	"github.com/aeliadev/cazan/internal/logging"
	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"
)

var (
	parsing = color.New(color.FgCyan, color.Bold).SprintFunc()
	parsed  = color.New(color.FgGreen, color.Bold).SprintFunc()
	failed  = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Orchestrator dispatches assets to a bounded pool of workers.
type Orchestrator struct {
	pipeline Pipeline
	opts     Options
}

// NewOrchestrator returns an orchestrator running p with opts.
func NewOrchestrator(p Pipeline, opts Options) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.KeyMode == "" {
		opts.KeyMode = config.KeyChecksum
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = config.DefaultEpsilon
	}
	return &Orchestrator{pipeline: p, opts: opts}
}

// Run processes assets and merges the successful results. Per-file failures
// are recorded in the result and never abort other files. When ctx is
// cancelled, unstarted assets fail with the context error, which Run also
// returns alongside the partial result.
func (o *Orchestrator) Run(ctx context.Context, assets []discovery.Asset) (*Result, error) {
	logger := logging.FromContext(ctx)
	if len(assets) == 0 {
		return &Result{Artifacts: artifact.Map{}}, nil
	}

	rep := o.opts.Reporter
	if rep == nil {
		rep = discardReporter{n: len(assets)}
	}
	n := rep.Slots()
	if n < 1 {
		n = 1
	}
	workers := min(o.opts.Workers, n, len(assets))

	// A slot is a buffered channel of size one: holding the token means
	// owning the line.
	slots := make([]chan struct{}, n)
	for i := range slots {
		slots[i] = make(chan struct{}, 1)
	}

	outcomes := make([]Outcome, len(assets))
	started := make([]bool, len(assets))
	jobs := make(chan int)

	logger.Debug("Starting worker pool.", "workers", workers, "slots", n, "assets", len(assets))

	var g errgroup.Group
	g.Go(func() error {
		defer close(jobs)
		for i := range assets {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		workerID := w
		g.Go(func() error {
			o.worker(ctx, workerID, jobs, assets, slots, rep, outcomes, started)
			return nil
		})
	}
	_ = g.Wait()

	for i, a := range assets {
		if !started[i] {
			outcomes[i] = Outcome{
				Asset:  a,
				Slot:   i % n,
				Status: StatusFailed,
				Err:    &FileError{Path: a.Path, Err: context.Cause(ctx)},
			}
		}
	}

	res := merge(outcomes)
	logger.Debug("Build finished.", "built", res.Built, "cached", res.Cached, "failed", res.Failed)
	return res, ctx.Err()
}

func (o *Orchestrator) worker(ctx context.Context, workerID int, jobs <-chan int, assets []discovery.Asset,
	slots []chan struct{}, rep Reporter, outcomes []Outcome, started []bool) {
	logger := logging.FromContext(ctx).With("workerID", workerID)
	logger.Debug("Worker started.")

	for i := range jobs {
		if ctx.Err() != nil {
			continue
		}
		slot := i % len(slots)
		select {
		case slots[slot] <- struct{}{}:
		case <-ctx.Done():
			continue
		}
		started[i] = true
		outcomes[i] = o.process(logging.WithLogger(ctx, logger), assets[i], slot, rep)
		<-slots[slot]
	}
	logger.Debug("Worker finished.")
}

// process runs one asset while its slot is held.
func (o *Orchestrator) process(ctx context.Context, a discovery.Asset, slot int, rep Reporter) Outcome {
	logger := logging.FromContext(ctx).With("asset", a.Path)
	name := filepath.Base(a.Path)
	start := time.Now()
	out := Outcome{Asset: a, Slot: slot}

	fail := func(err error) Outcome {
		out.Status = StatusFailed
		out.Err = &FileError{Path: a.Path, Err: err}
		out.Duration = time.Since(start)
		rep.Rewrite(slot, fmt.Sprintf("%s `%s`: %v", failed("Failed"), name, err))
		logger.Debug("Asset failed.", "error", err)
		return out
	}

	rep.Write(slot, fmt.Sprintf("%s %s", parsing("Parsing"), a.Path))

	digest, err := checksum.File(a.Abs)
	if err != nil {
		return fail(err)
	}
	out.Digest = digest
	out.Key = digest.String()
	if o.opts.KeyMode == config.KeyPath {
		out.Key = a.Path
	}

	if o.opts.Cache != nil {
		tris, ok, err := o.opts.Cache.Get(ctx, digest, o.opts.Epsilon)
		if err != nil {
			logger.Debug("Cache lookup failed.", "error", err)
		}
		if ok {
			out.Triangles = tris
			out.Status = StatusCached
			out.Duration = time.Since(start)
			rep.Rewrite(slot, fmt.Sprintf("%s `%s` to %d triangles (cached)", parsed("Parsed"), name, len(tris)))
			logger.Debug("Asset served from cache.", "triangles", len(tris))
			return out
		}
	}

	tris, err := o.runPipeline(ctx, a.Abs)
	if err != nil {
		return fail(err)
	}

	if o.opts.Cache != nil {
		if err := o.opts.Cache.Put(ctx, digest, o.opts.Epsilon, tris); err != nil {
			logger.Debug("Cache store failed.", "error", err)
		}
	}

	out.Triangles = tris
	out.Status = StatusBuilt
	out.Duration = time.Since(start)
	rep.Rewrite(slot, fmt.Sprintf("%s `%s` to %d triangles", parsed("Parsed"), name, len(tris)))
	logger.Debug("Asset built.", "triangles", len(tris), "duration", out.Duration)
	return out
}

// runPipeline bounds the pipeline call by the per-file timeout. The pipeline
// runs in its own goroutine so one that ignores its context cannot stall the
// worker.
func (o *Orchestrator) runPipeline(ctx context.Context, path string) ([]geometry.Triangle, error) {
	if o.opts.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, o.opts.FileTimeout,
			fmt.Errorf("%w after %s", ErrTimeout, o.opts.FileTimeout))
		defer cancel()
	}

	type result struct {
		tris []geometry.Triangle
		err  error
	}
	done := make(chan result, 1)
	go func() {
		tris, err := o.pipeline.Process(ctx, path, o.opts.Epsilon)
		done <- result{tris, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return nil, context.Cause(ctx)
		}
		return r.tris, r.err
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// merge folds outcomes into the artifact map in discovery order.
func merge(outcomes []Outcome) *Result {
	res := &Result{
		Outcomes:  outcomes,
		Artifacts: make(artifact.Map, len(outcomes)),
	}
	owner := make(map[string]string, len(outcomes))
	for _, oc := range outcomes {
		switch oc.Status {
		case StatusFailed:
			res.Failed++
			continue
		case StatusCached:
			res.Cached++
		default:
			res.Built++
		}
		if prev, ok := owner[oc.Key]; ok && prev != oc.Asset.Path {
			res.Collisions = append(res.Collisions, Collision{Key: oc.Key, Kept: oc.Asset.Path, Dropped: prev})
		}
		owner[oc.Key] = oc.Asset.Path
		res.Artifacts[oc.Key] = oc.Triangles
	}
	return res
}

type discardReporter struct{ n int }

func (discardReporter) Write(int, string)   {}
func (discardReporter) Rewrite(int, string) {}
func (r discardReporter) Slots() int        { return r.n }
