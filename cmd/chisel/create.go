package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/debug"
	"github.com/yidong72/chisel/internal/timeparsing"
	"github.com/yidong72/chisel/internal/types"
	"github.com/yidong72/chisel/internal/ui"
	"github.com/yidong72/chisel/internal/workflow"
)

var createCmd = &cobra.Command{
	Use:     "create [title]",
	Aliases: []string{"new"},
	GroupID: GroupTasks,
	Short:   "Create a new task",
	Long: `Create a new task. Post-create hooks run afterwards; their failures are
reported but never undo the create.

Examples:
  chisel create "Add login endpoint" -t task -p 1 --points 3
  chisel create "Fix crash on empty input" -t bug -l backend,urgent
  chisel create "Write migration" --parent ch-a1b2c3 --due "next friday"
  chisel create --form`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		form, _ := cmd.Flags().GetBool("form")
		var in workflow.CreateInput
		var err error
		if form {
			in, err = runCreateForm()
		} else {
			if len(args) == 0 {
				return fmt.Errorf("title is required (or use --form)")
			}
			in, err = createInputFromFlags(cmd, args[0], time.Now())
		}
		if err != nil {
			return err
		}

		res, err := svc.Create(rootCtx, in)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Created %s: %s\n", ui.RenderPass(ui.IconPass), ui.RenderID(res.Task.ID), res.Task.Title)
		printHookResults(out, res.HookResults)
		return nil
	},
}

// createInputFromFlags collects the create flags for title.
func createInputFromFlags(cmd *cobra.Command, title string, now time.Time) (workflow.CreateInput, error) {
	f := cmd.Flags()
	in := workflow.CreateInput{Title: title}
	in.Description, _ = f.GetString("description")
	taskType, _ := f.GetString("type")
	in.TaskType = types.TaskType(taskType)
	if f.Changed("priority") {
		p, _ := f.GetInt("priority")
		in.Priority = &p
	}
	if f.Changed("points") {
		p, _ := f.GetInt("points")
		in.StoryPoints = &p
	}
	if f.Changed("estimate") {
		m, _ := f.GetInt("estimate")
		in.EstimatedMinutes = &m
	}
	in.ParentID, _ = f.GetString("parent")
	in.Assignee, _ = f.GetString("assignee")
	labels, _ := f.GetString("labels")
	in.Labels = ui.ParseLabels(labels)
	in.AcceptanceCriteria, _ = f.GetStringArray("criteria")

	var err error
	if in.DueAt, err = timeFlag(cmd, "due", now); err != nil {
		return in, err
	}
	if in.DeferUntil, err = timeFlag(cmd, "defer", now); err != nil {
		return in, err
	}
	return in, nil
}

// timeFlag parses a --due/--defer style flag. Unset flags yield nil.
func timeFlag(cmd *cobra.Command, name string, now time.Time) (*time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := timeparsing.Parse(raw, now)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return &t, nil
}

// printHookResults lists each hook outcome, with stderr for failures.
func printHookResults(out io.Writer, results []*types.HookResult) {
	if len(results) == 0 || debug.IsQuiet() {
		return
	}
	for _, r := range results {
		fmt.Fprintf(out, "  %s %s %s\n", ui.RenderResultIcon(r.Success), r.Command,
			ui.RenderMuted(fmt.Sprintf("(exit %d, %s)", r.ExitCode, r.Duration.Round(time.Millisecond))))
		if !r.Success {
			if msg := strings.TrimSpace(r.Stderr); msg != "" {
				fmt.Fprintln(out, ui.Indent(ui.RenderFail(msg), "      "))
			}
		}
	}
}

func registerTaskFieldFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("description", "d", "", "Task description (markdown)")
	cmd.Flags().StringP("type", "t", "", "Task type (task|epic|bug|spike|chore)")
	cmd.Flags().IntP("priority", "p", 2, "Priority 0-4 (0 = critical; default from project config)")
	cmd.Flags().Int("points", 0, "Story points")
	cmd.Flags().Int("estimate", 0, "Estimated minutes")
	cmd.Flags().String("parent", "", "Parent task id")
	cmd.Flags().String("assignee", "", "Assignee")
	cmd.Flags().StringP("labels", "l", "", "Comma-separated labels")
	cmd.Flags().StringArray("criteria", nil, "Acceptance criterion (repeatable)")
	cmd.Flags().String("due", "", "Due date (+2d, 2025-06-01, \"next friday\")")
	cmd.Flags().String("defer", "", "Hide from ready work until (+1w, 2025-06-01, tomorrow)")
}

func init() {
	registerTaskFieldFlags(createCmd)
	createCmd.Flags().Bool("form", false, "Fill in the task with an interactive form")
	rootCmd.AddCommand(createCmd)
}
