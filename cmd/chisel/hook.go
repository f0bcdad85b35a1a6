package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/hooks"
	"github.com/yidong72/chisel/internal/project"
	"github.com/yidong72/chisel/internal/types"
	"github.com/yidong72/chisel/internal/ui"
)

var knownEvents = []string{types.EventPreClose, types.EventPostCreate}

var hookCmd = &cobra.Command{
	Use:     "hook",
	GroupID: GroupGates,
	Short:   "Manage quality-gate hooks",
	Long: `Hooks are shell commands bound to a lifecycle event. Every enabled
pre-close hook must exit 0 before a task can be closed; post-create hooks
run after a task is created and never block it.

Hooks run from the project root with CHISEL_TASK_ID set.`,
}

var hookSetCmd = &cobra.Command{
	Use:   "set <event> <command|template>",
	Short: "Register a hook for an event",
	Long: `Register a hook. The command may be a template name from
'chisel hook templates', which expands to the template's command.

Examples:
  chisel hook set pre-close go-test
  chisel hook set pre-close "make lint"
  chisel hook set post-create "notify-send 'new task'"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		event := strings.TrimSpace(args[0])
		arg := strings.Join(args[1:], " ")
		if event == "" || strings.TrimSpace(arg) == "" {
			return fmt.Errorf("event and command must not be empty")
		}
		if !isKnownEvent(event) {
			WarnError("%q is not an event chisel fires (known: %s)", event, strings.Join(knownEvents, ", "))
		}

		templates, err := hooks.Templates(proj.Dir)
		if err != nil {
			return err
		}
		command, fromTemplate := hooks.ResolveCommand(templates, arg)
		h := &types.Hook{Event: event, Command: command, Enabled: true}
		if err := store.CreateHook(rootCtx, h); err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), h)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Added %s hook #%d: %s\n", ui.RenderPass(ui.IconPass), event, h.ID, command)
		if fromTemplate {
			fmt.Fprintf(out, "  %s\n", ui.RenderMuted("expanded from template "+strings.TrimSpace(arg)))
		}
		return nil
	},
}

func isKnownEvent(event string) bool {
	for _, e := range knownEvents {
		if e == event {
			return true
		}
	}
	return false
}

var hookListCmd = &cobra.Command{
	Use:     "list [event]",
	Aliases: []string{"ls"},
	Short:   "List hooks, optionally for one event",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		event := ""
		if len(args) == 1 {
			event = args[0]
		}
		list, err := store.ListHooks(rootCtx, event, true)
		if err != nil {
			return err
		}
		if jsonOutput {
			if list == nil {
				list = []*types.Hook{}
			}
			return writeJSON(cmd.OutOrStdout(), list)
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No hooks configured. Add one with 'chisel hook set pre-close <command>'.")
			return nil
		}
		for _, h := range list {
			state := ui.RenderPass("enabled")
			if !h.Enabled {
				state = ui.RenderMuted("disabled")
			}
			fmt.Fprintf(out, "#%-4d %-12s %-9s %s\n", h.ID, h.Event, state, h.Command)
		}
		return nil
	},
}

func hookToggleCmd(use string, enabled bool) *cobra.Command {
	verb := "Disable"
	if enabled {
		verb = "Enable"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: verb + " a hook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseHookID(args[0])
			if err != nil {
				return err
			}
			if err := store.SetHookEnabled(rootCtx, id, enabled); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"id": id, "enabled": enabled})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %sd hook #%d\n", ui.RenderPass(ui.IconPass), verb, id)
			return nil
		},
	}
}

var hookRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a hook",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseHookID(args[0])
		if err != nil {
			return err
		}
		if err := store.DeleteHook(rootCtx, id); err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), map[string]int64{"deleted": id})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Removed hook #%d\n", ui.RenderPass(ui.IconPass), id)
		return nil
	},
}

func parseHookID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid hook id %q", s)
	}
	return id, nil
}

var hookTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List hook templates usable with 'hook set'",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Works outside a project; user templates are only read when one is found.
		dir := ""
		if p, err := project.Discover(); err == nil {
			dir = p.Dir
		}
		templates, err := hooks.Templates(dir)
		if err != nil {
			return err
		}
		sorted := hooks.SortedTemplates(templates)
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), sorted)
		}
		out := cmd.OutOrStdout()
		for _, t := range sorted {
			fmt.Fprintf(out, "%-14s %-42s %s\n", t.Name, t.Command, ui.RenderMuted(t.Description))
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:     "validate <id>",
	GroupID: GroupGates,
	Short:   "Run pre-close hooks without closing and record a quality score",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.Validate(rootCtx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		out := cmd.OutOrStdout()
		if len(res.HookResults) == 0 {
			fmt.Fprintf(out, "No pre-close hooks configured for %s\n", ui.RenderID(res.Task.ID))
			return nil
		}
		printHookResults(out, res.HookResults)
		passed := hooks.AllPassed(res.HookResults)
		icon := ui.RenderPass(ui.IconPass)
		if !passed {
			icon = ui.RenderFail(ui.IconFail)
		}
		fmt.Fprintf(out, "%s %s quality score %.2f (%d of %d passed)\n", icon, ui.RenderID(res.Task.ID),
			*res.QualityScore, len(res.HookResults)-len(hooks.Failed(res.HookResults)), len(res.HookResults))
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookSetCmd, hookListCmd, hookToggleCmd("enable", true), hookToggleCmd("disable", false),
		hookRemoveCmd, hookTemplatesCmd)
	rootCmd.AddCommand(hookCmd, validateCmd)
}
