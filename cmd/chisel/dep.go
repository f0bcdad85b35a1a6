package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/types"
	"github.com/yidong72/chisel/internal/ui"
)

var depCmd = &cobra.Command{
	Use:     "dep",
	GroupID: GroupDeps,
	Short:   "Manage dependencies between tasks",
}

var depAddCmd = &cobra.Command{
	Use:   "add <id> --blocked-by <id>",
	Short: "Record that a task depends on another",
	Long: `Record that <id> depends on the --blocked-by task. Only "blocks" edges
(the default) keep a task out of ready work; parent, related and discovered
edges are informational.

Examples:
  chisel dep add ch-deploy --blocked-by ch-tests
  chisel dep add ch-a --blocked-by ch-b --type related`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blockedBy, _ := cmd.Flags().GetString("blocked-by")
		if blockedBy == "" {
			return fmt.Errorf("--blocked-by is required")
		}
		depType, _ := cmd.Flags().GetString("type")
		dep, err := svc.AddDependency(rootCtx, args[0], blockedBy, types.DependencyType(depType))
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), dep)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s now depends on %s (%s)\n", ui.RenderPass(ui.IconPass),
			ui.RenderID(dep.TaskID), ui.RenderID(dep.DependsOnID), dep.Type)
		return nil
	},
}

var depRemoveCmd = &cobra.Command{
	Use:     "remove <id> <depends-on-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a dependency",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		depType, _ := cmd.Flags().GetString("type")
		if err := svc.RemoveDependency(rootCtx, args[0], args[1], types.DependencyType(depType)); err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), map[string]string{"task_id": args[0], "depends_on_id": args[1]})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Removed dependency %s -> %s\n", ui.RenderPass(ui.IconPass),
			ui.RenderID(args[0]), ui.RenderID(args[1]))
		return nil
	},
}

// depListing is the JSON shape of chisel dep list.
type depListing struct {
	TaskID     string              `json:"task_id"`
	DependsOn  []*types.Dependency `json:"depends_on"`
	Dependents []*types.Dependency `json:"dependents"`
}

var depListCmd = &cobra.Command{
	Use:   "list <id>",
	Short: "List what a task depends on and what depends on it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		if _, err := store.GetTask(ctx, args[0]); err != nil {
			return err
		}
		l := depListing{TaskID: args[0], DependsOn: []*types.Dependency{}, Dependents: []*types.Dependency{}}
		deps, err := store.ListDependencies(ctx, types.DependencyFilter{TaskID: args[0]})
		if err != nil {
			return err
		}
		l.DependsOn = append(l.DependsOn, deps...)
		deps, err = store.ListDependencies(ctx, types.DependencyFilter{DependsOnID: args[0]})
		if err != nil {
			return err
		}
		l.Dependents = append(l.Dependents, deps...)

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), l)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", ui.RenderHeader("depends on"))
		printEdges(cmd, l.DependsOn, func(d *types.Dependency) string { return d.DependsOnID })
		fmt.Fprintf(out, "\n%s\n", ui.RenderHeader("needed by"))
		printEdges(cmd, l.Dependents, func(d *types.Dependency) string { return d.TaskID })
		return nil
	},
}

func printEdges(cmd *cobra.Command, deps []*types.Dependency, other func(*types.Dependency) string) {
	out := cmd.OutOrStdout()
	if len(deps) == 0 {
		fmt.Fprintf(out, "  %s\n", ui.RenderMuted("(none)"))
		return
	}
	for _, d := range deps {
		id := other(d)
		title := ""
		status := types.Status("?")
		if t, err := store.GetTask(rootCtx, id); err == nil {
			title, status = ui.TruncateTitle(t.Title), t.Status
		}
		fmt.Fprintf(out, "  %s %s %s %s\n", ui.RenderStatus(status), ui.RenderID(id), title,
			ui.RenderMuted("("+string(d.Type)+")"))
	}
}

func init() {
	depAddCmd.Flags().String("blocked-by", "", "Prerequisite task id")
	depAddCmd.Flags().String("type", string(types.DepBlocks), "Dependency type (blocks|parent|related|discovered)")
	depRemoveCmd.Flags().String("type", "", "Only remove edges of this type")
	depCmd.AddCommand(depAddCmd, depRemoveCmd, depListCmd)
	rootCmd.AddCommand(depCmd)
}
