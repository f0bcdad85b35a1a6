package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/types"
	"github.com/yidong72/chisel/internal/ui"
	"github.com/yidong72/chisel/internal/workflow"
)

var closeCmd = &cobra.Command{
	Use:     "close <id>",
	Aliases: []string{"done"},
	GroupID: GroupTasks,
	Short:   "Close a task after its pre-close hooks pass",
	Long: `Run every enabled pre-close hook and mark the task done only if all of
them pass. The parent and ancestors are then re-evaluated.

Examples:
  chisel close ch-a1b2c3 --reason "merged in #42"
  chisel close ch-a1b2c3 --force     # skip the hooks`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		force, _ := cmd.Flags().GetBool("force")

		res, err := svc.Close(rootCtx, args[0], reason, force)
		out := cmd.OutOrStdout()
		var gate *workflow.GateError
		if errors.As(err, &gate) {
			if jsonOutput {
				if werr := writeJSON(out, gateFailure{Error: err.Error(), HookResults: gate.Results}); werr != nil {
					return werr
				}
				return reported{err}
			}
			fmt.Fprintf(out, "%s Pre-close hooks failed for %s\n", ui.RenderFail(ui.IconFail), ui.RenderID(args[0]))
			printHookResults(out, gate.Results)
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(out, res)
		}
		printHookResults(out, res.HookResults)
		fmt.Fprintf(out, "%s Closed %s: %s\n", ui.RenderPass(ui.IconPass), ui.RenderID(res.Task.ID), res.Task.Title)
		return nil
	},
}

// gateFailure is the --json body of a close refused by its hooks.
type gateFailure struct {
	Error       string              `json:"error"`
	HookResults []*types.HookResult `json:"hook_results"`
}

var reopenCmd = &cobra.Command{
	Use:     "reopen <id>",
	GroupID: GroupTasks,
	Short:   "Reopen a done or cancelled task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := svc.Reopen(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), task)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Reopened %s: %s\n", ui.RenderPass(ui.IconPass), ui.RenderID(task.ID), task.Title)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	GroupID: GroupTasks,
	Short:   "Delete a task and its dependency edges",
	Long: `Delete a task. Dependency edges pointing to or from it are removed too.
A task with subtasks is refused unless --force is given, in which case
the subtasks become top-level tasks.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if err := svc.Delete(rootCtx, args[0], force); err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", ui.RenderPass(ui.IconPass), ui.RenderID(args[0]))
		return nil
	},
}

func init() {
	closeCmd.Flags().StringP("reason", "r", "", "Reason appended to the description")
	closeCmd.Flags().BoolP("force", "f", false, "Close without running pre-close hooks")
	deleteCmd.Flags().BoolP("force", "f", false, "Delete even if the task has subtasks")
	rootCmd.AddCommand(closeCmd, reopenCmd, deleteCmd)
}
