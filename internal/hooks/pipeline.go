package hooks

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yidong72/chisel/internal/debug"
	"github.com/yidong72/chisel/internal/types"
)

// HookStore is the subset of storage.Storage the pipeline reads hooks from.
type HookStore interface {
	ListHooks(ctx context.Context, event string, includeDisabled bool) ([]*types.Hook, error)
}

// Options configures a Pipeline.
type Options struct {
	Dir         string        // working directory for hooks (the project root)
	Timeout     time.Duration // per-command timeout; zero means DefaultTimeout
	Parallelism int           // hooks run concurrently; <= 1 runs them in order
}

// Pipeline runs every enabled hook registered for an event.
type Pipeline struct {
	store HookStore
	exec  Executor
	opts  Options
}

// NewPipeline creates a Pipeline. A nil exec uses the ShellExecutor.
func NewPipeline(store HookStore, exec Executor, opts Options) *Pipeline {
	if exec == nil {
		exec = NewShellExecutor()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Pipeline{store: store, exec: exec, opts: opts}
}

// RunEvent executes the enabled hooks for event and returns one result per
// hook in registration order. A failing hook never stops the others. The
// error is non-nil only when the hooks could not be listed.
func (p *Pipeline) RunEvent(ctx context.Context, event, taskID string) ([]*types.HookResult, error) {
	hooks, err := p.store.ListHooks(ctx, event, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s hooks: %w", event, err)
	}
	if len(hooks) == 0 {
		return nil, nil
	}

	tracer := otel.Tracer("github.com/yidong72/chisel/hooks")
	ctx, span := tracer.Start(ctx, "hooks.run_event", trace.WithAttributes(
		attribute.String("hook.event", event),
		attribute.String("chisel.task_id", taskID),
		attribute.Int("hook.count", len(hooks)),
	))
	defer span.End()

	results := make([]*types.HookResult, len(hooks))
	if p.opts.Parallelism <= 1 {
		for i, h := range hooks {
			results[i] = p.runOne(ctx, h, taskID)
		}
	} else {
		// Each goroutine writes only its own slot, so order is preserved.
		var g errgroup.Group
		g.SetLimit(p.opts.Parallelism)
		for i, h := range hooks {
			g.Go(func() error {
				results[i] = p.runOne(ctx, h, taskID)
				return nil
			})
		}
		_ = g.Wait()
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("hook.failed", failed))
	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d hooks failed", failed, len(results)))
	}
	return results, nil
}

func (p *Pipeline) runOne(ctx context.Context, h *types.Hook, taskID string) *types.HookResult {
	tracer := otel.Tracer("github.com/yidong72/chisel/hooks")
	ctx, span := tracer.Start(ctx, "hook.exec", trace.WithAttributes(
		attribute.Int64("hook.id", h.ID),
		attribute.String("hook.event", h.Event),
		attribute.String("hook.command", h.Command),
	))
	defer span.End()

	env := []string{EventEnv + "=" + h.Event}
	if taskID != "" {
		env = append(env, TaskIDEnv+"="+taskID)
	}
	debug.Logf("hooks: running %s hook %d: %s\n", h.Event, h.ID, h.Command)
	res := p.exec.Execute(ctx, Command{
		Line:    h.Command,
		Env:     env,
		Dir:     p.opts.Dir,
		Timeout: p.opts.Timeout,
	})

	addOutputEvents(span, res.Stdout, res.Stderr)
	span.SetAttributes(attribute.Int("hook.exit_code", res.ExitCode))
	if !res.Success() {
		span.SetStatus(codes.Error, fmt.Sprintf("exit code %d", res.ExitCode))
		debug.LogEvent(debug.EventHookFailed, taskID, fmt.Sprintf("%s exit=%d", h.Command, res.ExitCode))
	}

	return &types.HookResult{
		HookID:   h.ID,
		Event:    h.Event,
		Command:  h.Command,
		Success:  res.Success(),
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Duration: res.Duration,
	}
}

// AllPassed reports whether every result succeeded. An empty set passes.
func AllPassed(results []*types.HookResult) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}

// Failed returns the unsuccessful results in order.
func Failed(results []*types.HookResult) []*types.HookResult {
	var out []*types.HookResult
	for _, r := range results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// QualityScore is passed/run, or nil when no hooks ran.
func QualityScore(results []*types.HookResult) *float64 {
	if len(results) == 0 {
		return nil
	}
	passed := 0
	for _, r := range results {
		if r.Success {
			passed++
		}
	}
	score := float64(passed) / float64(len(results))
	return &score
}
