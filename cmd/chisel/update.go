package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/types"
	"github.com/yidong72/chisel/internal/ui"
)

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	GroupID: GroupTasks,
	Short:   "Update fields of a task",
	Long: `Update only the fields passed as flags. Changing the status of a subtask
re-evaluates its parent and every ancestor above it.

Examples:
  chisel update ch-a1b2c3 -s in_progress
  chisel update ch-a1b2c3 --title "Better title" -p 0
  chisel update ch-a1b2c3 --parent ""          # detach from parent
  chisel update ch-a1b2c3 --defer ""           # clear defer date`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := patchFromFlags(cmd, time.Now())
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			return fmt.Errorf("nothing to update (pass at least one field flag)")
		}
		task, err := svc.Update(rootCtx, args[0], patch)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), task)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Updated %s: %s\n", ui.RenderPass(ui.IconPass), ui.RenderID(task.ID), task.Title)
		return nil
	},
}

// patchFromFlags builds a patch from the flags that were set explicitly.
func patchFromFlags(cmd *cobra.Command, now time.Time) (types.TaskPatch, error) {
	f := cmd.Flags()
	var p types.TaskPatch
	if f.Changed("title") {
		v, _ := f.GetString("title")
		p.Title = &v
	}
	if f.Changed("description") {
		v, _ := f.GetString("description")
		p.Description = &v
	}
	if f.Changed("type") {
		v, _ := f.GetString("type")
		t := types.TaskType(v)
		p.TaskType = &t
	}
	if f.Changed("priority") {
		v, _ := f.GetInt("priority")
		p.Priority = &v
	}
	if f.Changed("points") {
		v, _ := f.GetInt("points")
		p.StoryPoints = &v
	}
	if f.Changed("estimate") {
		v, _ := f.GetInt("estimate")
		p.EstimatedMinutes = &v
	}
	if f.Changed("status") {
		v, _ := f.GetString("status")
		s := types.Status(v)
		p.Status = &s
	}
	if f.Changed("parent") {
		v, _ := f.GetString("parent")
		p.ParentID = &v
	}
	if f.Changed("assignee") {
		v, _ := f.GetString("assignee")
		p.Assignee = &v
	}
	if f.Changed("labels") {
		v, _ := f.GetString("labels")
		labels := ui.ParseLabels(v)
		p.Labels = &labels
	}
	if f.Changed("criteria") {
		v, _ := f.GetStringArray("criteria")
		p.AcceptanceCriteria = &v
	}
	if f.Changed("due") {
		due, err := timeFlag(cmd, "due", now)
		if err != nil {
			return p, err
		}
		p.DueAt = due
		p.ClearDueAt = due == nil
	}
	if f.Changed("defer") {
		until, err := timeFlag(cmd, "defer", now)
		if err != nil {
			return p, err
		}
		p.DeferUntil = until
		p.ClearDeferUntil = until == nil
	}
	return p, nil
}

func init() {
	registerTaskFieldFlags(updateCmd)
	updateCmd.Flags().String("title", "", "New title")
	updateCmd.Flags().StringP("status", "s", "", "New status (open|in_progress|blocked|review|done|cancelled)")
	rootCmd.AddCommand(updateCmd)
}
