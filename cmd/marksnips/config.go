// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/marksnips/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and modify the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the full configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print one configuration value by dotted path",
	Long:  `get prints a single value, e.g. "marksnips config get watcher.polling_interval".`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := config.Get(configPath(cmd), args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%v\n", value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set one configuration value by dotted path",
	Long: `set updates a single value and saves the file, e.g.
"marksnips config set backup.max_backup_sets 10". Values that parse as
integers or booleans are stored typed; everything else is a string.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Update(configPath(cmd), args[0], parseValue(args[1])); err != nil {
			return fmt.Errorf("updating %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Interactively update configuration values",
	Long: `edit prompts for dotted key and value pairs, applying each one as it is
entered. An empty key finishes the session.`,
	RunE: runConfigEdit,
}

func init() {
	configCmd.AddCommand(configShowCmd, configGetCmd, configSetCmd, configEditCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	reader := bufio.NewReader(cmd.InOrStdin())

	for {
		fmt.Fprint(cmd.OutOrStdout(), "key (empty to finish): ")
		key, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		key = strings.TrimSpace(key)
		if key == "" {
			break
		}

		current, err := config.Get(path, key)
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "current: %v\n", current)
		}
		fmt.Fprint(cmd.OutOrStdout(), "value: ")
		value, err := reader.ReadString('\n')
		if err != nil {
			break
		}

		if _, err := config.Update(path, key, parseValue(strings.TrimSpace(value))); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "error: %v\n", err)
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), "saved")
	}

	fmt.Fprintln(cmd.OutOrStdout(), "done")
	return nil
}

// parseValue keeps ints and bools typed so YAML round-trips cleanly.
func parseValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
