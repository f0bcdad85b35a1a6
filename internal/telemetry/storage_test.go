package telemetry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yidong72/chisel/internal/config"
	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/testutil/teststore"
	"github.com/yidong72/chisel/internal/types"
)

// withTelemetry loads config from an empty tree with telemetry.enabled
// taken from the environment.
func withTelemetry(t *testing.T, enabled string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CHISEL_DIR", "")
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("CHISEL_TELEMETRY_ENABLED", enabled)
	require.NoError(t, config.Initialize())
}

func TestWrapStorageDisabledReturnsSame(t *testing.T) {
	withTelemetry(t, "")
	s := teststore.New(t)
	assert.Same(t, s, WrapStorage(s))
}

func TestWrapStorageEnabledDecorates(t *testing.T) {
	withTelemetry(t, "true")
	s := teststore.New(t)
	wrapped := WrapStorage(s)
	inst, ok := wrapped.(*InstrumentedStorage)
	require.True(t, ok)
	assert.Same(t, s, inst.Unwrap())
	assert.Equal(t, "sqlite", inst.Backend())
}

func TestInstrumentedStorageRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx := context.Background()
	inst := newInstrumented(teststore.New(t))

	require.NoError(t, inst.CreateTask(ctx, &types.Task{ID: "test-1", Title: "traced"}))
	_, err := inst.GetTask(ctx, "test-404")
	require.True(t, errors.Is(err, storage.ErrNotFound))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "storage.CreateTask", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "storage.GetTask", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestInitDisabledInstallsNoop(t *testing.T) {
	withTelemetry(t, "")
	require.NoError(t, Init(context.Background(), "chisel", "test"))
	assert.False(t, Enabled())
	assert.NoError(t, Shutdown(context.Background()))
}

func TestLoadSettingsFromConfig(t *testing.T) {
	withTelemetry(t, "true")
	t.Setenv("CHISEL_TELEMETRY_STDOUT", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "fallback:4318")

	s := LoadSettings()
	assert.True(t, s.Enabled)
	assert.True(t, s.Stdout)
	assert.Equal(t, "fallback:4318", s.Endpoint, "empty telemetry.endpoint falls back to the OTel env var")

	t.Setenv("CHISEL_TELEMETRY_ENDPOINT", "collector:4318")
	assert.Equal(t, "collector:4318", LoadSettings().Endpoint)
}

func TestStartEnabledInstallsProviders(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	}()

	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")
	require.NoError(t, Start(context.Background(), Settings{Enabled: true}, "chisel", "test"))
	_, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, isSDK)
	assert.NoError(t, Shutdown(context.Background()))
}
