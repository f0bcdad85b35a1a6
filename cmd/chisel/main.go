// Command chisel is a local, dependency-aware task tracker with hierarchical
// rollup and hook-based quality gates.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/config"
	"github.com/yidong72/chisel/internal/debug"
	"github.com/yidong72/chisel/internal/hooks"
	"github.com/yidong72/chisel/internal/project"
	"github.com/yidong72/chisel/internal/storage"
	"github.com/yidong72/chisel/internal/storage/factory"
	"github.com/yidong72/chisel/internal/telemetry"
	"github.com/yidong72/chisel/internal/ui"
	"github.com/yidong72/chisel/internal/workflow"
)

var (
	dbPath      string
	actor       string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool

	// Set by PersistentPreRunE for commands that need the store.
	proj     *project.Project
	store    storage.Storage
	pipeline *hooks.Pipeline
	svc      *workflow.Service

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

// Command groups for help output
const (
	GroupTasks = "tasks"
	GroupDeps  = "deps"
	GroupGates = "gates"
	GroupSetup = "setup"
)

// noDBCommands run without opening the store.
var noDBCommands = map[string]bool{
	"chisel":                true,
	"chisel init":           true,
	"chisel version":        true,
	"chisel hook templates": true,
	"chisel help":           true,
}

func isNoDBCommand(cmd *cobra.Command) bool {
	if noDBCommands[cmd.CommandPath()] {
		return true
	}
	for c := cmd.Parent(); c != nil; c = c.Parent() {
		if c.Name() == "completion" {
			return true
		}
	}
	return false
}

func init() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: .chisel/chisel.db in the project)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "Actor name recorded in the event log (default: $USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")

	rootCmd.AddGroup(&cobra.Group{ID: GroupTasks, Title: "Working With Tasks:"})
	rootCmd.AddGroup(&cobra.Group{ID: GroupDeps, Title: "Dependencies & Structure:"})
	rootCmd.AddGroup(&cobra.Group{ID: GroupGates, Title: "Quality Gates:"})
	rootCmd.AddGroup(&cobra.Group{ID: GroupSetup, Title: "Setup & Configuration:"})
}

var rootCmd = &cobra.Command{
	Use:           "chisel",
	Short:         "chisel - dependency-aware task tracker",
	Long:          `Tasks carved into subtasks. A local task tracker with blocking dependencies, parent rollup and hook-gated closing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		applyVerbosityFlags(cmd)
		if rootCtx == nil {
			rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		}
		if err := telemetry.Init(rootCtx, "chisel", Version); err != nil {
			debug.Logf("telemetry init failed: %v\n", err)
		}
		if isNoDBCommand(cmd) {
			return nil
		}
		return openStore(rootCtx)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeStore()
	},
}

// applyVerbosityFlags merges flags over viper-provided defaults.
func applyVerbosityFlags(cmd *cobra.Command) {
	if !cmd.Flags().Changed("json") {
		jsonOutput = config.GetBool("json")
	}
	if !cmd.Flags().Changed("actor") && actor == "" {
		actor = config.GetString("actor")
	}
	if !cmd.Flags().Changed("db") && dbPath == "" {
		dbPath = config.GetString("db")
	}
	debug.SetVerbose(verboseFlag)
	debug.SetQuiet(quietFlag)
	ui.InitColor(jsonOutput)
}

// openStore discovers the project and opens the configured backend.
func openStore(ctx context.Context) error {
	p, err := project.Discover()
	if err != nil && dbPath == "" {
		return err
	}
	if p == nil {
		abs, absErr := filepath.Abs(dbPath)
		if absErr != nil {
			return absErr
		}
		cwd, _ := os.Getwd()
		p = &project.Project{Root: cwd, Dir: filepath.Dir(abs)}
	}

	s, err := factory.New(ctx, storageOptions(p))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	proj = p
	store = telemetry.WrapStorage(s)
	pipeline = hooks.NewPipeline(store, nil, hooks.Options{
		Dir:         p.Root,
		Timeout:     config.GetDuration("hooks.timeout"),
		Parallelism: config.GetInt("hooks.parallelism"),
	})
	svc = workflow.New(store, pipeline, actor)
	debug.SetEventLog(p.Dir, actor)
	return nil
}

func storageOptions(p *project.Project) factory.Options {
	opts := factory.Options{
		Backend:        config.GetString("storage.backend"),
		Path:           p.DBPath(),
		ServerHost:     config.GetString("storage.dolt.host"),
		ServerPort:     config.GetInt("storage.dolt.port"),
		ServerUser:     config.GetString("storage.dolt.user"),
		ServerPassword: config.GetString("storage.dolt.password"),
		Database:       config.GetString("storage.dolt.database"),
	}
	if opts.Backend == factory.BackendDolt {
		opts.ServerMode = !config.GetBool("storage.dolt.embedded")
		opts.Path = p.DoltPath()
	}
	if dbPath != "" {
		opts.Path = dbPath
	}
	return opts
}

func closeStore() {
	if store != nil {
		if err := store.Close(); err != nil {
			debug.Logf("close store: %v\n", err)
		}
	}
	store, pipeline, svc, proj = nil, nil, nil, nil
}

func main() {
	err := rootCmd.Execute()
	closeStore()
	if rootCtx != nil {
		if serr := telemetry.Shutdown(context.Background()); serr != nil {
			debug.Logf("telemetry shutdown: %v\n", serr)
		}
		rootCancel()
	}
	if err != nil {
		exitWithError(err)
	}
}

// exitWithError prints err (as JSON under --json) with a hint when one
// applies, then exits 1.
func exitWithError(err error) {
	var done reported
	if errors.As(err, &done) {
		os.Exit(1)
	}
	if jsonOutput {
		outputJSONError(err)
	}
	if hint := hintFor(err); hint != "" {
		FatalErrorWithHint(err.Error(), hint)
	}
	FatalError("%v", err)
}

func hintFor(err error) string {
	var gate *workflow.GateError
	switch {
	case errors.Is(err, project.ErrNotInitialized):
		return "Run 'chisel init' to create a project here"
	case errors.As(err, &gate):
		return "Fix the failing hooks, or use --force to close anyway"
	case errors.Is(err, storage.ErrNotFound):
		return "Run 'chisel list' to see task ids"
	case errors.Is(err, config.ErrNoProjectConfig):
		return "Run 'chisel init' first"
	}
	return ""
}
