package hooks

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxSpanOutputBytes caps hook output recorded on spans. Results keep the
// full text.
const maxSpanOutputBytes = 1024

// addOutputEvents records non-empty stdout/stderr as span events.
func addOutputEvents(span trace.Span, stdout, stderr string) {
	if stdout != "" {
		span.AddEvent("hook.stdout", trace.WithAttributes(
			attribute.String("output", truncateOutput(stdout)),
			attribute.Int("bytes", len(stdout)),
		))
	}
	if stderr != "" {
		span.AddEvent("hook.stderr", trace.WithAttributes(
			attribute.String("output", truncateOutput(stderr)),
			attribute.Int("bytes", len(stderr)),
		))
	}
}

func truncateOutput(s string) string {
	if len(s) <= maxSpanOutputBytes {
		return s
	}
	return s[:maxSpanOutputBytes] + "…(truncated)"
}
