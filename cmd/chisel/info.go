package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/project"
	"github.com/yidong72/chisel/internal/types"
	"github.com/yidong72/chisel/internal/ui"
)

// projectInfo is the JSON shape of chisel info.
type projectInfo struct {
	Name    string               `json:"name"`
	Root    string               `json:"root"`
	Backend string               `json:"backend"`
	Prefix  string               `json:"id_prefix"`
	Total   int                  `json:"total"`
	Counts  map[types.Status]int `json:"counts"`
}

var infoCmd = &cobra.Command{
	Use:     "info",
	GroupID: GroupSetup,
	Short:   "Show project name, location, backend and task counts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		name, err := store.GetConfig(ctx, project.KeyProjectName)
		if err != nil {
			return err
		}
		tasks, err := store.ListTasks(ctx, types.TaskFilter{})
		if err != nil {
			return err
		}
		info := projectInfo{
			Name:    name,
			Root:    proj.Root,
			Backend: backendName(),
			Prefix:  project.IDPrefixFrom(ctx, store),
			Total:   len(tasks),
			Counts:  map[types.Status]int{},
		}
		for _, t := range tasks {
			info.Counts[t.Status]++
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), info)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", ui.RenderHeader("project"))
		fmt.Fprintf(out, "  Name:     %s\n", info.Name)
		fmt.Fprintf(out, "  Root:     %s\n", info.Root)
		fmt.Fprintf(out, "  Backend:  %s\n", info.Backend)
		fmt.Fprintf(out, "  Prefix:   %s\n", info.Prefix)
		fmt.Fprintf(out, "\n%s\n", ui.RenderHeader("tasks"))
		fmt.Fprintf(out, "  Total:    %d\n", info.Total)
		for _, s := range types.AllStatuses {
			fmt.Fprintf(out, "  %s %-12s %d\n", ui.RenderStatus(s), s, info.Counts[s])
		}
		return nil
	},
}

func backendName() string {
	if b, ok := store.(interface{ Backend() string }); ok {
		return b.Backend()
	}
	return "unknown"
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
