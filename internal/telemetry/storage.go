package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/types"
)

const storageScopeName = "github.com/yidong72/chisel/storage"

// InstrumentedStorage wraps storage.Storage with OTel tracing and metrics.
// Every method gets a span and is counted in chisel.storage.* metrics.
type InstrumentedStorage struct {
	inner  storage.Storage
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

var _ storage.Storage = (*InstrumentedStorage)(nil)

// WrapStorage returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is.
func WrapStorage(s storage.Storage) storage.Storage {
	if !Enabled() {
		return s
	}
	return newInstrumented(s)
}

func newInstrumented(s storage.Storage) *InstrumentedStorage {
	m := Meter(storageScopeName)
	ops, _ := m.Int64Counter("chisel.storage.operations",
		metric.WithDescription("Total storage operations executed"),
	)
	dur, _ := m.Float64Histogram("chisel.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("chisel.storage.errors",
		metric.WithDescription("Total storage operation errors"),
	)
	return &InstrumentedStorage{
		inner:  s,
		tracer: Tracer(storageScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// Unwrap returns the decorated store.
func (s *InstrumentedStorage) Unwrap() storage.Storage {
	return s.inner
}

// Backend forwards to the inner store when it reports one.
func (s *InstrumentedStorage) Backend() string {
	if b, ok := s.inner.(interface{ Backend() string }); ok {
		return b.Backend()
	}
	return ""
}

func (s *InstrumentedStorage) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "storage."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

func (s *InstrumentedStorage) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

// ── Tasks ───────────────────────────────────────────────────────────────────

func (s *InstrumentedStorage) CreateTask(ctx context.Context, task *types.Task) error {
	attrs := []attribute.KeyValue{attribute.String("chisel.task.type", string(task.TaskType))}
	ctx, span, t := s.op(ctx, "CreateTask", attrs...)
	err := s.inner.CreateTask(ctx, task)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) GetTask(ctx context.Context, id string) (*types.Task, error) {
	ctx, span, t := s.op(ctx, "GetTask", attribute.String("chisel.task.id", id))
	v, err := s.inner.GetTask(ctx, id)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error) {
	ctx, span, t := s.op(ctx, "ListTasks")
	v, err := s.inner.ListTasks(ctx, filter)
	span.SetAttributes(attribute.Int("chisel.result.count", len(v)))
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) UpdateTask(ctx context.Context, id string, patch types.TaskPatch) (*types.Task, error) {
	ctx, span, t := s.op(ctx, "UpdateTask", attribute.String("chisel.task.id", id))
	v, err := s.inner.UpdateTask(ctx, id, patch)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) DeleteTask(ctx context.Context, id string) error {
	ctx, span, t := s.op(ctx, "DeleteTask", attribute.String("chisel.task.id", id))
	err := s.inner.DeleteTask(ctx, id)
	s.done(ctx, span, t, err)
	return err
}

// ── Dependencies ────────────────────────────────────────────────────────────

func (s *InstrumentedStorage) AddDependency(ctx context.Context, dep *types.Dependency) error {
	attrs := []attribute.KeyValue{attribute.String("chisel.dep.type", string(dep.Type))}
	ctx, span, t := s.op(ctx, "AddDependency", attrs...)
	err := s.inner.AddDependency(ctx, dep)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) RemoveDependency(ctx context.Context, taskID, dependsOnID string, depType types.DependencyType) error {
	ctx, span, t := s.op(ctx, "RemoveDependency")
	err := s.inner.RemoveDependency(ctx, taskID, dependsOnID, depType)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStorage) ListDependencies(ctx context.Context, filter types.DependencyFilter) ([]*types.Dependency, error) {
	ctx, span, t := s.op(ctx, "ListDependencies")
	v, err := s.inner.ListDependencies(ctx, filter)
	s.done(ctx, span, t, err)
	return v, err
}

// ── Hooks ───────────────────────────────────────────────────────────────────

func (s *InstrumentedStorage) CreateHook(ctx context.Context, hook *types.Hook) error {
	attrs := []attribute.KeyValue{attribute.String("hook.event", hook.Event)}
	ctx, span, t := s.op(ctx, "CreateHook", attrs...)
	err := s.inner.CreateHook(ctx, hook)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) ListHooks(ctx context.Context, event string, includeDisabled bool) ([]*types.Hook, error) {
	ctx, span, t := s.op(ctx, "ListHooks", attribute.String("hook.event", event))
	v, err := s.inner.ListHooks(ctx, event, includeDisabled)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) SetHookEnabled(ctx context.Context, id int64, enabled bool) error {
	ctx, span, t := s.op(ctx, "SetHookEnabled", attribute.Int64("hook.id", id))
	err := s.inner.SetHookEnabled(ctx, id, enabled)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStorage) DeleteHook(ctx context.Context, id int64) error {
	ctx, span, t := s.op(ctx, "DeleteHook", attribute.Int64("hook.id", id))
	err := s.inner.DeleteHook(ctx, id)
	s.done(ctx, span, t, err)
	return err
}

// ── Config ──────────────────────────────────────────────────────────────────

func (s *InstrumentedStorage) SetConfig(ctx context.Context, key, value string) error {
	ctx, span, t := s.op(ctx, "SetConfig", attribute.String("chisel.config.key", key))
	err := s.inner.SetConfig(ctx, key, value)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStorage) GetConfig(ctx context.Context, key string) (string, error) {
	ctx, span, t := s.op(ctx, "GetConfig", attribute.String("chisel.config.key", key))
	v, err := s.inner.GetConfig(ctx, key)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) GetAllConfig(ctx context.Context) (map[string]string, error) {
	ctx, span, t := s.op(ctx, "GetAllConfig")
	v, err := s.inner.GetAllConfig(ctx)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
