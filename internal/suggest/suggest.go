// Package suggest proposes subtask titles for decomposing a task.
package suggest

import (
	"context"
	"strings"

	"github.com/yidong72/chisel/internal/types"
)

// Suggester proposes subtask titles for a task. An empty result means it has
// no suggestion.
type Suggester interface {
	Suggest(ctx context.Context, task *types.Task) ([]string, error)
}

// Heuristic suggests subtasks from the task's type, size and title keywords.
type Heuristic struct{}

// largeTaskPoints is the estimate above which a task counts as large.
const largeTaskPoints = 8

// Suggest implements Suggester. The first matching rule wins.
func (Heuristic) Suggest(_ context.Context, task *types.Task) ([]string, error) {
	title := task.Title
	lower := strings.ToLower(title)

	switch {
	case task.TaskType == types.TypeEpic || (task.StoryPoints != nil && *task.StoryPoints > largeTaskPoints):
		base := title
		for _, verb := range []string{"Implement ", "Add ", "Create "} {
			base = strings.TrimPrefix(base, verb)
		}
		return []string{
			"Design " + base,
			"Implement " + base,
			"Write tests for " + base,
			"Document " + base,
		}, nil
	case strings.Contains(title, "API") || strings.Contains(lower, "endpoint"):
		return []string{
			"Define API schema",
			"Implement endpoint handler",
			"Add input validation",
			"Write integration tests",
			"Update API documentation",
		}, nil
	case strings.Contains(title, "UI") || strings.Contains(lower, "component"):
		return []string{
			"Create component structure",
			"Implement styling",
			"Add interactivity",
			"Write component tests",
			"Add accessibility features",
		}, nil
	case task.TaskType == types.TypeBug:
		return []string{
			"Reproduce the bug",
			"Identify root cause",
			"Implement fix",
			"Add regression test",
		}, nil
	}
	return nil, nil
}
