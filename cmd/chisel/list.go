package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/config"
	"github.com/yidong72/chisel/internal/project"
	"github.com/yidong72/chisel/internal/types"
	"github.com/yidong72/chisel/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	GroupID: GroupTasks,
	Short:   "List tasks",
	Long: `List tasks ordered by priority, then creation time. Filters combine with AND;
--labels matches tasks carrying any of the given labels.

Examples:
  chisel list -s open -p 1
  chisel list --parent ch-a1b2c3
  chisel list -l backend,urgent --watch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := taskFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		watch, _ := cmd.Flags().GetBool("watch")
		if watch {
			return watchTasks(rootCtx, cmd.OutOrStdout(), filter)
		}

		tasks, err := store.ListTasks(rootCtx, filter)
		if err != nil {
			return err
		}
		if jsonOutput {
			if tasks == nil {
				tasks = []*types.Task{}
			}
			return writeJSON(cmd.OutOrStdout(), tasks)
		}
		printTaskList(cmd.OutOrStdout(), tasks)
		return nil
	},
}

func taskFilterFromFlags(cmd *cobra.Command) (types.TaskFilter, error) {
	f := cmd.Flags()
	var filter types.TaskFilter
	if f.Changed("status") {
		raw, _ := f.GetString("status")
		s := types.Status(raw)
		if !s.IsValid() {
			return filter, fmt.Errorf("invalid status %q", raw)
		}
		filter.Status = &s
	}
	if f.Changed("priority") {
		p, _ := f.GetInt("priority")
		filter.Priority = &p
	}
	if f.Changed("type") {
		raw, _ := f.GetString("type")
		t := types.TaskType(raw)
		if !t.IsValid() {
			return filter, fmt.Errorf("invalid type %q", raw)
		}
		filter.TaskType = &t
	}
	if f.Changed("parent") {
		parent, _ := f.GetString("parent")
		filter.ParentID = &parent
	}
	if f.Changed("assignee") {
		assignee, _ := f.GetString("assignee")
		filter.Assignee = &assignee
	}
	labels, _ := f.GetString("labels")
	filter.LabelsAny = ui.ParseLabels(labels)
	filter.Limit, _ = f.GetInt("limit")
	return filter, nil
}

// printTaskList renders one line per task.
func printTaskList(out io.Writer, tasks []*types.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found.")
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(out, formatTaskLine(t))
	}
	fmt.Fprintf(out, "\n%s\n", ui.RenderMuted(fmt.Sprintf("%d task(s)", len(tasks))))
}

func formatTaskLine(t *types.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s  %-*s", ui.RenderStatus(t.Status), ui.RenderID(t.ID),
		ui.RenderPriority(t.Priority), ui.TitleWidth, ui.TruncateTitle(t.Title))
	if t.TaskType != types.TypeTask {
		fmt.Fprintf(&b, " %s", ui.RenderMuted("("+string(t.TaskType)+")"))
	}
	if t.StoryPoints != nil {
		fmt.Fprintf(&b, " %s", ui.RenderMuted(fmt.Sprintf("%dpt", *t.StoryPoints)))
	}
	if len(t.Labels) > 0 {
		fmt.Fprintf(&b, " %s", ui.RenderMuted("["+strings.Join(t.Labels, ", ")+"]"))
	}
	return strings.TrimRight(b.String(), " ")
}

// watchTasks redraws the list whenever the database files change, until
// ctx is cancelled.
func watchTasks(ctx context.Context, out io.Writer, filter types.TaskFilter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(proj.Dir); err != nil {
		return fmt.Errorf("error watching %s: %w", proj.Dir, err)
	}

	redraw := func() {
		tasks, err := store.ListTasks(ctx, filter)
		if err != nil {
			WarnError("refreshing tasks: %v", err)
			return
		}
		if ui.IsTerminal() {
			fmt.Fprint(out, "\033[H\033[2J")
		}
		printTaskList(out, tasks)
		fmt.Fprintf(out, "\n%s\n", ui.RenderMuted("Watching for changes... (Ctrl+C to exit)"))
	}
	redraw()

	delay := config.GetDuration("list.watch-debounce")
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isDatabaseWrite(event) {
				fire = time.After(delay)
			}
		case <-fire:
			fire = nil
			redraw()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			WarnError("watcher: %v", err)
		}
	}
}

// isDatabaseWrite matches writes to the SQLite file, its WAL/journal, or
// the embedded Dolt directory.
func isDatabaseWrite(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	base := filepath.Base(event.Name)
	return strings.HasPrefix(base, project.DBFile) || base == project.DoltDir
}

func init() {
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	listCmd.Flags().IntP("priority", "p", 0, "Filter by priority")
	listCmd.Flags().StringP("type", "t", "", "Filter by type")
	listCmd.Flags().String("parent", "", "Only children of this task")
	listCmd.Flags().String("assignee", "", "Filter by assignee")
	listCmd.Flags().StringP("labels", "l", "", "Comma-separated labels (any match)")
	listCmd.Flags().IntP("limit", "n", 0, "Maximum number of tasks")
	listCmd.Flags().Bool("watch", false, "Redraw when tasks change")
	rootCmd.AddCommand(listCmd)
}
