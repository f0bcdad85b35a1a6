package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/rollup"
	"github.com/yidong72/chisel/internal/types"
	"github.com/yidong72/chisel/internal/ui"
)

// taskDetails is the JSON shape of chisel show.
type taskDetails struct {
	*types.Task
	DependsOn  []*types.Dependency `json:"depends_on,omitempty"`
	Dependents []*types.Dependency `json:"dependents,omitempty"`
	Children   []*types.Task       `json:"children,omitempty"`
	Progress   *types.Progress     `json:"progress,omitempty"`
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: GroupTasks,
	Short:   "Show a task with its dependencies and subtasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		task, err := store.GetTask(ctx, args[0])
		if err != nil {
			return err
		}
		d := &taskDetails{Task: task}
		if d.DependsOn, err = store.ListDependencies(ctx, types.DependencyFilter{TaskID: task.ID}); err != nil {
			return err
		}
		if d.Dependents, err = store.ListDependencies(ctx, types.DependencyFilter{DependsOnID: task.ID}); err != nil {
			return err
		}
		parentID := task.ID
		if d.Children, err = store.ListTasks(ctx, types.TaskFilter{ParentID: &parentID}); err != nil {
			return err
		}
		if len(d.Children) > 0 {
			d.Progress = rollup.Summarize(task.ID, d.Children)
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), d)
		}
		printTaskDetails(cmd.OutOrStdout(), d)
		return nil
	},
}

func printTaskDetails(out io.Writer, d *taskDetails) {
	t := d.Task
	fmt.Fprintf(out, "%s %s: %s\n", ui.RenderStatus(t.Status), ui.RenderID(t.ID), t.Title)
	fmt.Fprintln(out, ui.RenderSeparator())
	fmt.Fprintf(out, "Status:    %s\n", t.Status)
	fmt.Fprintf(out, "Type:      %s\n", t.TaskType)
	fmt.Fprintf(out, "Priority:  %s\n", ui.FormatPriority(t.Priority))
	if t.StoryPoints != nil {
		fmt.Fprintf(out, "Points:    %d\n", *t.StoryPoints)
	}
	if t.EstimatedMinutes != nil {
		fmt.Fprintf(out, "Estimate:  %s\n", (time.Duration(*t.EstimatedMinutes) * time.Minute).String())
	}
	if t.ParentID != "" {
		fmt.Fprintf(out, "Parent:    %s\n", ui.RenderID(t.ParentID))
	}
	if t.Assignee != "" {
		fmt.Fprintf(out, "Assignee:  %s\n", t.Assignee)
	}
	if len(t.Labels) > 0 {
		fmt.Fprintf(out, "Labels:    %s\n", strings.Join(t.Labels, ", "))
	}
	if t.QualityScore != nil {
		fmt.Fprintf(out, "Quality:   %.0f%%\n", *t.QualityScore*100)
	}
	if t.DueAt != nil {
		due := formatTime(*t.DueAt)
		if !t.Status.IsFinished() && t.DueAt.Before(time.Now()) {
			due += " " + ui.RenderWarn(ui.IconWarn+" overdue")
		}
		fmt.Fprintf(out, "Due:       %s\n", due)
	}
	if t.DeferUntil != nil {
		fmt.Fprintf(out, "Deferred:  until %s\n", formatTime(*t.DeferUntil))
	}
	fmt.Fprintf(out, "Created:   %s\n", formatTime(t.CreatedAt))
	fmt.Fprintf(out, "Updated:   %s\n", formatTime(t.UpdatedAt))
	if t.ClosedAt != nil {
		fmt.Fprintf(out, "Closed:    %s\n", formatTime(*t.ClosedAt))
	}

	if strings.TrimSpace(t.Description) != "" {
		fmt.Fprintf(out, "\n%s\n", ui.RenderHeader("description"))
		fmt.Fprintln(out, strings.TrimRight(ui.RenderMarkdown(t.Description), "\n"))
	}
	if len(t.AcceptanceCriteria) > 0 {
		fmt.Fprintf(out, "\n%s\n", ui.RenderHeader("acceptance criteria"))
		for _, c := range t.AcceptanceCriteria {
			fmt.Fprintf(out, "  - %s\n", c)
		}
	}
	if len(d.DependsOn) > 0 {
		fmt.Fprintf(out, "\n%s\n", ui.RenderHeader("depends on"))
		for _, dep := range d.DependsOn {
			fmt.Fprintf(out, "  %s %s\n", ui.RenderID(dep.DependsOnID), ui.RenderMuted("("+string(dep.Type)+")"))
		}
	}
	if len(d.Dependents) > 0 {
		fmt.Fprintf(out, "\n%s\n", ui.RenderHeader("needed by"))
		for _, dep := range d.Dependents {
			fmt.Fprintf(out, "  %s %s\n", ui.RenderID(dep.TaskID), ui.RenderMuted("("+string(dep.Type)+")"))
		}
	}
	if len(d.Children) > 0 {
		fmt.Fprintf(out, "\n%s %s\n", ui.RenderHeader("subtasks"),
			ui.RenderMuted(fmt.Sprintf("%.1f%% done", d.Progress.PercentDone)))
		for _, c := range d.Children {
			fmt.Fprintf(out, "  %s\n", formatTaskLine(c))
		}
	}
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func init() {
	rootCmd.AddCommand(showCmd)
}
