package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/config"
	"github.com/yidong72/chisel/internal/project"
	"github.com/yidong72/chisel/internal/storage/factory"
	"github.com/yidong72/chisel/internal/ui"
)

var (
	initPrefix string
	initName   string
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: GroupSetup,
	Short:   "Initialize chisel in the current directory",
	Long: `Create .chisel/ with a starter config.yaml and an empty database.

Running init again is safe: existing tasks and config are kept, and only
the values passed explicitly are changed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		p, err := project.Init(cwd)
		if err != nil {
			return err
		}
		name, prefix, err := initProject(rootCtx, p, initName, initPrefix)
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"root":    p.Root,
				"dir":     p.Dir,
				"name":    name,
				"prefix":  prefix,
				"backend": storageOptions(p).Backend,
			})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Initialized chisel project %q in %s\n", ui.RenderPass(ui.IconPass), name, p.Dir)
		fmt.Fprintf(out, "  Task ids will look like %s-a1b2c3\n", prefix)
		fmt.Fprintf(out, "  Next: chisel create \"My first task\"\n")
		return nil
	},
}

// initProject opens the store for p just long enough to seed its settings.
func initProject(ctx context.Context, p *project.Project, name, prefix string) (string, string, error) {
	// config.yaml may have just been written; pick it up.
	if err := config.Initialize(); err != nil {
		return "", "", err
	}
	s, err := factory.New(ctx, storageOptions(p))
	if err != nil {
		return "", "", fmt.Errorf("failed to create database: %w", err)
	}
	defer func() { _ = s.Close() }()

	if err := project.Seed(ctx, s, p, name, prefix); err != nil {
		return "", "", err
	}
	gotName, err := s.GetConfig(ctx, project.KeyProjectName)
	if err != nil {
		return "", "", err
	}
	return gotName, project.IDPrefixFrom(ctx, s), nil
}

func init() {
	initCmd.Flags().StringVar(&initPrefix, "prefix", "", "Task id prefix (default: ch)")
	initCmd.Flags().StringVar(&initName, "name", "", "Project name (default: directory name)")
	rootCmd.AddCommand(initCmd)
}
