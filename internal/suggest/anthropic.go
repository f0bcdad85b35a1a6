package suggest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/yidong72/chisel/internal/debug"
	"github.com/yidong72/chisel/internal/telemetry"
	"github.com/yidong72/chisel/internal/types"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-haiku-4-5"

// maxSuggestions caps how many model lines are kept.
const maxSuggestions = 10

// ErrAPIKeyRequired is returned when no Anthropic API key is available.
var ErrAPIKeyRequired = errors.New("API key required")

// AnthropicSuggester asks a Claude model for subtasks and falls back to
// another Suggester when the call fails or returns nothing usable.
type AnthropicSuggester struct {
	client   anthropic.Client
	model    anthropic.Model
	fallback Suggester
	prompt   *template.Template
}

// NewAnthropic creates an AnthropicSuggester. ANTHROPIC_API_KEY takes
// precedence over apiKey. Extra request options (e.g. a base URL) are
// passed to the client.
func NewAnthropic(apiKey, model string, fallback Suggester, opts ...option.RequestOption) (*AnthropicSuggester, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY", ErrAPIKeyRequired)
	}
	if model == "" {
		model = DefaultModel
	}
	if fallback == nil {
		fallback = Heuristic{}
	}
	tmpl, err := template.New("suggest").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	aiMetricsOnce.Do(initAIMetrics)

	clientOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicSuggester{
		client:   anthropic.NewClient(clientOpts...),
		model:    anthropic.Model(model),
		fallback: fallback,
		prompt:   tmpl,
	}, nil
}

// Suggest implements Suggester.
func (a *AnthropicSuggester) Suggest(ctx context.Context, task *types.Task) ([]string, error) {
	titles, err := a.ask(ctx, task)
	if err != nil {
		debug.Logf("suggest: model call failed, using heuristics: %v\n", err)
		return a.fallback.Suggest(ctx, task)
	}
	if len(titles) == 0 {
		return a.fallback.Suggest(ctx, task)
	}
	return titles, nil
}

var aiMetrics struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	duration     metric.Float64Histogram
}

var aiMetricsOnce sync.Once

func initAIMetrics() {
	m := telemetry.Meter("github.com/yidong72/chisel/ai")
	aiMetrics.inputTokens, _ = m.Int64Counter("chisel.ai.input_tokens",
		metric.WithDescription("Anthropic API input tokens consumed"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.outputTokens, _ = m.Int64Counter("chisel.ai.output_tokens",
		metric.WithDescription("Anthropic API output tokens generated"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.duration, _ = m.Float64Histogram("chisel.ai.request.duration",
		metric.WithDescription("Anthropic API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
}

func (a *AnthropicSuggester) ask(ctx context.Context, task *types.Task) ([]string, error) {
	tracer := telemetry.Tracer("github.com/yidong72/chisel/ai")
	ctx, span := tracer.Start(ctx, "anthropic.messages.new")
	defer span.End()
	span.SetAttributes(
		attribute.String("chisel.ai.model", string(a.model)),
		attribute.String("chisel.ai.operation", "suggest"),
	)

	var prompt bytes.Buffer
	if err := a.prompt.Execute(&prompt, task); err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	t0 := time.Now()
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.String())),
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	modelAttr := attribute.String("chisel.ai.model", string(a.model))
	if aiMetrics.inputTokens != nil {
		aiMetrics.inputTokens.Add(ctx, message.Usage.InputTokens, metric.WithAttributes(modelAttr))
		aiMetrics.outputTokens.Add(ctx, message.Usage.OutputTokens, metric.WithAttributes(modelAttr))
		aiMetrics.duration.Record(ctx, float64(time.Since(t0).Milliseconds()), metric.WithAttributes(modelAttr))
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
			text.WriteString("\n")
		}
	}
	return parseLines(text.String()), nil
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// parseLines turns a model reply into titles, one per non-empty line, with
// list markers removed.
func parseLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

const promptTemplate = `Break the following software task into 3 to 6 concrete subtasks.
Reply with one subtask title per line and nothing else.

Title: {{.Title}}
Type: {{.TaskType}}
{{- if .StoryPoints}}
Story points: {{.StoryPoints}}
{{- end}}
{{- if .Description}}

Description:
{{.Description}}
{{- end}}
{{- if .AcceptanceCriteria}}

Acceptance criteria:
{{- range .AcceptanceCriteria}}
- {{.}}
{{- end}}
{{- end}}
`
