package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/config"
	"github.com/yidong72/chisel/internal/debug"
	"github.com/yidong72/chisel/internal/decompose"
	"github.com/yidong72/chisel/internal/rollup"
	"github.com/yidong72/chisel/internal/suggest"
	"github.com/yidong72/chisel/internal/types"
	"github.com/yidong72/chisel/internal/ui"
)

var decomposeCmd = &cobra.Command{
	Use:     "decompose <id> [title...]",
	Aliases: []string{"split"},
	GroupID: GroupDeps,
	Short:   "Break a task into subtasks",
	Long: `Create one subtask per title under the given task. The subtasks inherit
the parent's priority and the parent becomes an epic.

Without titles (or with --suggest) chisel proposes subtasks instead of
creating them. Suggestions come from built-in heuristics, or from Claude
when ai.enabled is set and ANTHROPIC_API_KEY is available.

Examples:
  chisel decompose ch-a1b2c3 "Write schema" "Add handler" --points 2,3
  chisel decompose ch-a1b2c3 --suggest`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := rootCtx
		id, titles := args[0], args[1:]
		wantSuggest, _ := cmd.Flags().GetBool("suggest")
		if wantSuggest || len(titles) == 0 {
			return runSuggest(cmd, id)
		}

		points, _ := cmd.Flags().GetIntSlice("points")
		res, err := decompose.New(store, svc.IDs(ctx)).Decompose(ctx, id, titles, points)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Split %s into %d subtasks\n", ui.RenderPass(ui.IconPass), ui.RenderID(res.Parent.ID), len(res.Subtasks))
		for i, t := range res.Subtasks {
			branch := ui.TreeBranch
			if i == len(res.Subtasks)-1 {
				branch = ui.TreeLast
			}
			fmt.Fprintf(out, "  %s%s %s\n", branch, ui.RenderID(t.ID), t.Title)
		}
		return nil
	},
}

// suggestion is the JSON shape of chisel decompose --suggest.
type suggestion struct {
	TaskID      string   `json:"task_id"`
	Suggestions []string `json:"suggestions"`
}

func runSuggest(cmd *cobra.Command, id string) error {
	ctx := rootCtx
	task, err := store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	titles, err := newSuggester().Suggest(ctx, task)
	if err != nil {
		return err
	}
	if jsonOutput {
		if titles == nil {
			titles = []string{}
		}
		return writeJSON(cmd.OutOrStdout(), suggestion{TaskID: id, Suggestions: titles})
	}
	out := cmd.OutOrStdout()
	if len(titles) == 0 {
		fmt.Fprintf(out, "No suggestions for %s. Pass titles explicitly:\n", ui.RenderID(id))
		fmt.Fprintf(out, "  chisel decompose %s \"First step\" \"Second step\"\n", id)
		return nil
	}
	fmt.Fprintf(out, "Suggested subtasks for %s:\n", ui.RenderID(id))
	quoted := make([]string, len(titles))
	for i, t := range titles {
		fmt.Fprintf(out, "  %d. %s\n", i+1, t)
		quoted[i] = fmt.Sprintf("%q", t)
	}
	fmt.Fprintf(out, "\nCreate them with:\n  chisel decompose %s %s\n", id, strings.Join(quoted, " "))
	return nil
}

func newSuggester() suggest.Suggester {
	if !config.GetBool("ai.enabled") {
		return suggest.Heuristic{}
	}
	s, err := suggest.NewAnthropic(config.GetString("ai.api-key"), config.GetString("ai.model"), suggest.Heuristic{})
	if err != nil {
		if errors.Is(err, suggest.ErrAPIKeyRequired) {
			WarnError("ai.enabled is set but no API key is configured; using heuristics")
		} else {
			debug.Logf("anthropic suggester unavailable: %v\n", err)
		}
		return suggest.Heuristic{}
	}
	return s
}

var treeCmd = &cobra.Command{
	Use:     "tree <id>",
	GroupID: GroupDeps,
	Short:   "Show a task and all of its descendants",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := decompose.New(store, nil).Tree(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), node)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, formatTaskLine(node.Task))
		printTreeChildren(out, node.Children, "")
		return nil
	},
}

func printTreeChildren(out io.Writer, children []*types.TreeNode, prefix string) {
	for i, child := range children {
		branch, next := ui.TreeBranch, ui.TreePipe
		if i == len(children)-1 {
			branch, next = ui.TreeLast, ui.TreeSpace
		}
		fmt.Fprintf(out, "%s%s%s\n", prefix, branch, formatTaskLine(child.Task))
		printTreeChildren(out, child.Children, prefix+next)
	}
}

var progressCmd = &cobra.Command{
	Use:     "progress <id>",
	GroupID: GroupDeps,
	Short:   "Summarize the state of a task's direct subtasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := rollup.New(store).Progress(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), p)
		}
		printProgress(cmd.OutOrStdout(), p)
		return nil
	},
}

func printProgress(out io.Writer, p *types.Progress) {
	if p.Total == 0 {
		fmt.Fprintf(out, "%s has no subtasks\n", ui.RenderID(p.TaskID))
		return
	}
	fmt.Fprintf(out, "%s %.0f%% done (%d subtasks)\n", ui.RenderID(p.TaskID), p.PercentDone, p.Total)
	for _, s := range types.AllStatuses {
		if n := p.Counts[s]; n > 0 {
			fmt.Fprintf(out, "  %s %-12s %d\n", ui.RenderStatus(s), s, n)
		}
	}
	if p.TotalPoints > 0 {
		fmt.Fprintf(out, "  Points: %d/%d\n", p.CompletedPoints, p.TotalPoints)
	}
}

func init() {
	decomposeCmd.Flags().IntSlice("points", nil, "Story points per subtask, in title order (e.g. 3,5,2)")
	decomposeCmd.Flags().Bool("suggest", false, "Propose subtasks instead of creating them")
	rootCmd.AddCommand(decomposeCmd, treeCmd, progressCmd)
}
