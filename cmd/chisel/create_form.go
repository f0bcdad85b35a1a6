package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/yidong72/chisel/internal/timeparsing"
	"github.com/yidong72/chisel/internal/types"
	"github.com/yidong72/chisel/internal/ui"
	"github.com/yidong72/chisel/internal/workflow"
)

// runCreateForm collects a new task interactively.
func runCreateForm() (workflow.CreateInput, error) {
	var (
		title       string
		description string
		taskType    = string(types.TypeTask)
		priorityStr = "2"
		pointsStr   string
		parentID    string
		labelsInput string
		criteria    string
		dueInput    string
	)

	typeOptions := []huh.Option[string]{
		huh.NewOption("Task", string(types.TypeTask)),
		huh.NewOption("Bug", string(types.TypeBug)),
		huh.NewOption("Epic", string(types.TypeEpic)),
		huh.NewOption("Spike", string(types.TypeSpike)),
		huh.NewOption("Chore", string(types.TypeChore)),
	}
	priorityOptions := make([]huh.Option[string], 0, 5)
	for p := 0; p <= 4; p++ {
		priorityOptions = append(priorityOptions, huh.NewOption(ui.FormatPriority(p), strconv.Itoa(p)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("e.g., Add rate limiting to the login endpoint").
				Value(&title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					if len(s) > 500 {
						return fmt.Errorf("title must be 500 characters or less")
					}
					return nil
				}),
			huh.NewText().
				Title("Description").
				Description("Markdown is rendered by chisel show").
				Value(&description),
			huh.NewSelect[string]().Title("Type").Options(typeOptions...).Value(&taskType),
			huh.NewSelect[string]().Title("Priority").Options(priorityOptions...).Value(&priorityStr),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Story points").
				Description("Leave empty for none").
				Value(&pointsStr).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					if n, err := strconv.Atoi(s); err != nil || n <= 0 {
						return fmt.Errorf("points must be a positive integer")
					}
					return nil
				}),
			huh.NewInput().Title("Parent task id").Value(&parentID),
			huh.NewInput().Title("Labels").Description("Comma-separated").Value(&labelsInput),
			huh.NewText().Title("Acceptance criteria").Description("One per line").Value(&criteria),
			huh.NewInput().Title("Due").Description("+2d, 2025-06-01, next friday").Value(&dueInput),
		),
	)
	if err := form.Run(); err != nil {
		return workflow.CreateInput{}, err
	}

	in := workflow.CreateInput{
		Title:       title,
		Description: description,
		TaskType:    types.TaskType(taskType),
		ParentID:    strings.TrimSpace(parentID),
		Labels:      ui.ParseLabels(labelsInput),
	}
	p, _ := strconv.Atoi(priorityStr)
	in.Priority = &p
	if pointsStr != "" {
		n, _ := strconv.Atoi(pointsStr)
		in.StoryPoints = &n
	}
	for _, line := range strings.Split(criteria, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			in.AcceptanceCriteria = append(in.AcceptanceCriteria, line)
		}
	}
	if strings.TrimSpace(dueInput) != "" {
		due, err := timeparsing.Parse(dueInput, time.Now())
		if err != nil {
			return in, fmt.Errorf("invalid due date: %w", err)
		}
		in.DueAt = &due
	}
	return in, nil
}
