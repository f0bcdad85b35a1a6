package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/resolver"
	"github.com/yidong72/chisel/internal/types"
	"github.com/yidong72/chisel/internal/ui"
)

var readyCmd = &cobra.Command{
	Use:     "ready",
	GroupID: GroupTasks,
	Short:   "Show open tasks with no unfinished blockers",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		tasks, err := resolver.New(store).Ready(rootCtx, types.WorkFilter{Limit: limit})
		if err != nil {
			return err
		}
		if jsonOutput {
			if tasks == nil {
				tasks = []*types.Task{}
			}
			return writeJSON(cmd.OutOrStdout(), tasks)
		}
		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No ready work. Check 'chisel blocked' for what is holding things up.")
			return nil
		}
		fmt.Fprintf(out, "%s\n", ui.RenderHeader(fmt.Sprintf("ready work (%d)", len(tasks))))
		for _, t := range tasks {
			fmt.Fprintln(out, formatTaskLine(t))
		}
		return nil
	},
}

var blockedCmd = &cobra.Command{
	Use:     "blocked",
	GroupID: GroupTasks,
	Short:   "Show tasks waiting on unfinished prerequisites",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		blocked, err := resolver.New(store).Blocked(rootCtx)
		if err != nil {
			return err
		}
		if jsonOutput {
			if blocked == nil {
				blocked = []*types.BlockedTask{}
			}
			return writeJSON(cmd.OutOrStdout(), blocked)
		}
		out := cmd.OutOrStdout()
		if len(blocked) == 0 {
			fmt.Fprintln(out, "Nothing is blocked.")
			return nil
		}
		fmt.Fprintf(out, "%s\n", ui.RenderHeader(fmt.Sprintf("blocked (%d)", len(blocked))))
		for _, b := range blocked {
			fmt.Fprintln(out, formatTaskLine(&b.Task))
			for _, by := range b.BlockedBy {
				fmt.Fprintf(out, "    %s%s %s %s\n", ui.TreeLast, ui.RenderStatus(by.Status),
					ui.RenderID(by.ID), ui.TruncateTitle(by.Title))
			}
		}
		return nil
	},
}

func init() {
	readyCmd.Flags().IntP("limit", "n", 10, "Maximum number of tasks")
	rootCmd.AddCommand(readyCmd, blockedCmd)
}
