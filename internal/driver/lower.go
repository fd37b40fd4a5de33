// Package driver runs the lowering engine over a whole crate.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"trans/internal/ir"
	"trans/internal/layout"
	"trans/internal/lower"
	"trans/internal/mono"
	"trans/internal/observ"
	"trans/internal/tir"
	"trans/internal/trace"
)

// maxWaves bounds instance discovery. Every wave lowers the bodies queued
// by the previous one; polymorphic recursion would never settle.
const maxWaves = 64

// ErrInstanceLimit is returned when instance discovery does not settle.
var ErrInstanceLimit = errors.New("instance discovery did not settle")

// Options configures Lower.
type Options struct {
	// Jobs limits concurrent workers; 0 means GOMAXPROCS.
	Jobs   int
	Target layout.Target
	// ModuleName defaults to the crate name.
	ModuleName string

	Progress ProgressSink
	Metrics  *Metrics
	Timer    *observ.Timer
}

// Result is the outcome of lowering one crate.
type Result struct {
	Module    *ir.Module
	Context   *lower.Context
	Functions int
	Instances int
	Waves     int
	FnCache   mono.Stats
	GlueCache mono.Stats
}

// Lower lowers every root function of crate, then every instance the roots
// reach, wave by wave. The first fatal error cancels the remaining workers
// and is returned unchanged, so callers can errors.As it to a
// *lower.FatalError.
func Lower(ctx context.Context, crate *tir.Crate, opts Options) (*Result, error) {
	if crate == nil {
		return nil, errors.New("no crate to lower")
	}
	if err := crate.Validate(); err != nil {
		return nil, fmt.Errorf("crate %s: %w", crate.Name, err)
	}
	name := opts.ModuleName
	if name == "" {
		name = crate.Name
	}
	if opts.Target.PtrSize == 0 {
		opts.Target = layout.X86_64LinuxGNU()
	}

	tracer := trace.FromContext(ctx)
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "lower "+crate.Name)

	mod := ir.NewModule(name)
	cx := lower.NewContext(crate, opts.Target, mod)
	cx.Tracer = tracer
	res := &Result{Module: mod, Context: cx}

	err := opts.Timer.Measure(observ.PhaseLower, func() error {
		return lowerRoots(ctx, cx, crate.Roots(), opts, res)
	})
	if err == nil {
		err = opts.Timer.Measure(observ.PhaseInstances, func() error {
			return lowerInstances(ctx, cx, opts, res)
		})
	}

	res.FnCache = cx.Mono.Stats()
	res.GlueCache = cx.Glue.Stats()
	opts.Metrics.cache(res.FnCache, res.GlueCache)

	if err != nil {
		opts.Metrics.failed()
		report(opts.Progress, Event{Stage: StageLower, Status: StatusError, Err: err})
		span.End(err.Error())
		return res, err
	}
	span.End(fmt.Sprintf("%d functions, %d instances", res.Functions, res.Instances))
	report(opts.Progress, Event{Stage: StageLower, Status: StatusDone})
	return res, nil
}

func lowerRoots(ctx context.Context, cx *lower.Context, roots []*tir.FnDef, opts Options, res *Result) error {
	ctx, pass := trace.Start(ctx, trace.ScopePass, "roots")

	names := make([]string, len(roots))
	for i, def := range roots {
		names[i] = def.Name
	}
	err := parallel(ctx, opts, StageLower, names, func(ctx context.Context, i int) error {
		start := time.Now()
		if err := cx.LowerFn(ctx, roots[i]); err != nil {
			return err
		}
		opts.Metrics.root(start)
		return nil
	})
	if err == nil {
		res.Functions = len(roots)
	}
	return pass.SetInt("roots", len(roots)).EndErr(err)
}

func lowerInstances(ctx context.Context, cx *lower.Context, opts Options, res *Result) error {
	ctx, pass := trace.Start(ctx, trace.ScopePass, "instances")
	defer func() { pass.SetInt("instances", res.Instances).SetInt("waves", res.Waves).End("") }()

	for {
		wave := cx.TakePending()
		if len(wave) == 0 {
			return nil
		}
		if res.Waves == maxWaves {
			return fmt.Errorf("%w after %d waves (next: %s)", ErrInstanceLimit, maxWaves, wave[0].Symbol)
		}
		res.Waves++
		names := make([]string, len(wave))
		for i, inst := range wave {
			names[i] = inst.Symbol
		}
		err := parallel(ctx, opts, StageInstances, names, func(ctx context.Context, i int) error {
			start := time.Now()
			if err := cx.LowerInstance(ctx, wave[i]); err != nil {
				return err
			}
			opts.Metrics.lowered(wave[i].Key.Kind, start)
			return nil
		})
		if err != nil {
			return err
		}
		res.Instances += len(wave)
	}
}

// parallel runs fn for every name on at most opts.Jobs goroutines and
// reports per-function progress.
func parallel(ctx context.Context, opts Options, stage Stage, names []string, fn func(context.Context, int) error) error {
	if len(names) == 0 {
		return nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, name := range names {
		report(opts.Progress, Event{Func: name, Stage: stage, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(names)))
	for i, name := range names {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			report(opts.Progress, Event{Func: name, Stage: stage, Status: StatusWorking})
			start := time.Now()
			err := fn(gctx, i)
			evt := Event{Func: name, Stage: stage, Status: StatusDone, Elapsed: time.Since(start)}
			if err != nil {
				evt.Status = StatusError
				evt.Err = err
			}
			report(opts.Progress, evt)
			return err
		})
	}
	return g.Wait()
}
