// Package telemetry wires chisel's OpenTelemetry tracing and metrics.
//
// Everything is off unless the telemetry.enabled config key is true. The
// keys live under telemetry.* in config.yaml and follow the usual CHISEL_
// environment overrides:
//
//	telemetry.enabled    CHISEL_TELEMETRY_ENABLED    install real providers
//	telemetry.stdout     CHISEL_TELEMETRY_STDOUT     pretty-print to stdout
//	telemetry.endpoint   CHISEL_TELEMETRY_ENDPOINT   OTLP/HTTP collector host:port
//
// An empty endpoint falls back to OTEL_EXPORTER_OTLP_ENDPOINT. Enabled with
// no exporter selected means spans go to stdout.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/yidong72/chisel/internal/config"
)

const instrumentationScope = "github.com/yidong72/chisel"

const (
	metricsInterval     = 30 * time.Second
	stdoutMetricsPeriod = 15 * time.Second
)

// Settings selects which providers and exporters Init installs.
type Settings struct {
	Enabled  bool
	Stdout   bool
	Endpoint string
}

// LoadSettings reads the telemetry.* keys from the merged config.
func LoadSettings() Settings {
	s := Settings{
		Enabled:  config.GetBool("telemetry.enabled"),
		Stdout:   config.GetBool("telemetry.stdout"),
		Endpoint: config.GetString("telemetry.endpoint"),
	}
	if s.Endpoint == "" {
		s.Endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	return s
}

// Enabled reports whether telemetry.enabled is set.
func Enabled() bool {
	return config.GetBool("telemetry.enabled")
}

var shutdownFns []func(context.Context) error

// Init installs providers for the current config. Disabled telemetry gets
// no-op providers.
func Init(ctx context.Context, serviceName, version string) error {
	return Start(ctx, LoadSettings(), serviceName, version)
}

// Start installs providers for s.
func Start(ctx context.Context, s Settings, serviceName, version string) error {
	if !s.Enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	spans, err := spanExporters(ctx, s)
	if err != nil {
		return fmt.Errorf("telemetry: trace exporters: %w", err)
	}
	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	for _, exp := range spans {
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(traceOpts...)

	readers, err := metricReaders(ctx, s)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("telemetry: metric readers: %w", err)
	}
	metricOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		metricOpts = append(metricOpts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(metricOpts...)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	shutdownFns = append(shutdownFns, tp.Shutdown, mp.Shutdown)
	return nil
}

// spanExporters never returns an empty slice for enabled settings.
func spanExporters(ctx context.Context, s Settings) ([]sdktrace.SpanExporter, error) {
	var out []sdktrace.SpanExporter
	if s.Endpoint != "" {
		exp, err := buildOTLPTraceExporter(ctx, s.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("otlp: %w", err)
		}
		out = append(out, exp)
	}
	if s.Stdout || len(out) == 0 {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	return out, nil
}

func metricReaders(ctx context.Context, s Settings) ([]sdkmetric.Reader, error) {
	var out []sdkmetric.Reader
	if s.Stdout {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		out = append(out, sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(stdoutMetricsPeriod)))
	}
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
	if endpoint == "" {
		endpoint = s.Endpoint
	}
	if endpoint != "" {
		exp, err := buildOTLPMetricExporter(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("otlp: %w", err)
		}
		out = append(out, sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(metricsInterval)))
	}
	return out, nil
}

// Tracer returns the named tracer, or chisel's scope when name is empty.
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Tracer(name)
}

// Meter returns the named meter, or chisel's scope when name is empty.
func Meter(name string) metric.Meter {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Meter(name)
}

// Shutdown flushes and stops every provider Start installed.
func Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range shutdownFns {
		errs = append(errs, fn(ctx))
	}
	shutdownFns = nil
	return errors.Join(errs...)
}
