package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yidong72/chisel/internal/config"
	"github.com/yidong72/chisel/internal/idgen"
	"github.com/yidong72/chisel/internal/project"
)

// projectKeys live in the store's config table rather than config.yaml.
var projectKeys = map[string]func(string) error{
	project.KeyProjectName: func(string) error { return nil },
	project.KeyIDPrefix:    idgen.ValidatePrefix,
	project.KeyDefaultPriority: func(v string) error {
		p, err := strconv.Atoi(v)
		if err != nil || p < 0 || p > 4 {
			return fmt.Errorf("default_priority must be an integer 0-4 (got %q)", v)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: GroupSetup,
	Short:   "Read and change configuration",
	Long: `Project keys (project_name, id_prefix, default_priority) are stored in
the task database. Every other key is written to .chisel/config.yaml and
can be overridden with CHISEL_* environment variables, e.g.
CHISEL_HOOKS_TIMEOUT=60s.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		var value string
		if _, ok := projectKeys[key]; ok {
			v, err := store.GetConfig(rootCtx, key)
			if err != nil {
				return err
			}
			value = v
		} else {
			if !config.IsSet(key) {
				return fmt.Errorf("unknown config key %q", key)
			}
			value = config.GetString(key)
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), map[string]string{"key": key, "value": value})
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if validate, ok := projectKeys[key]; ok {
			if err := validate(value); err != nil {
				return err
			}
			if err := store.SetConfig(rootCtx, key, value); err != nil {
				return err
			}
		} else {
			path, err := yamlConfigPath()
			if err != nil {
				return err
			}
			if err := config.SetYamlConfig(path, key, value); err != nil {
				return err
			}
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), map[string]string{"key": key, "value": value})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

func yamlConfigPath() (string, error) {
	if proj != nil && proj.Dir != "" {
		return proj.ConfigPath(), nil
	}
	return config.ProjectConfigPath()
}

var configListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Print every configuration value",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all := map[string]string{}
		for k, v := range config.AllSettings() {
			all[k] = fmt.Sprint(v)
		}
		stored, err := store.GetAllConfig(rootCtx)
		if err != nil {
			return err
		}
		for k, v := range stored {
			all[k] = v
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), all)
		}
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := cmd.OutOrStdout()
		for _, k := range keys {
			fmt.Fprintf(out, "%s = %s\n", k, all[k])
		}
		if f := config.ConfigFileUsed(); f != "" {
			fmt.Fprintf(out, "\n# file: %s\n", f)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
