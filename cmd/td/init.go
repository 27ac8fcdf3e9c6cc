package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/taskdeck/taskdeck/internal/storage/sqlite"
	"github.com/taskdeck/taskdeck/internal/ui"
)

// initConfig is the scaffold written to .taskdeck/config.yaml.
type initConfig struct {
	Actor        string `yaml:"actor,omitempty"`
	StaleTimeout string `yaml:"stale-timeout"`
	RetryBudget  int    `yaml:"retry-budget"`
}

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "admin",
	Short:   "Create a .taskdeck workspace in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir := filepath.Join(cwd, ".taskdeck")
		dbFile := filepath.Join(dir, "taskdeck.db")

		if _, err := os.Stat(dbFile); err == nil {
			return fmt.Errorf("workspace already initialized: %s", dbFile)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}

		// Opening the store applies the schema and migrations.
		store, err := sqlite.New(cmd.Context(), dbFile)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		if err := store.Close(); err != nil {
			return err
		}

		configPath := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			scaffold := initConfig{
				Actor:        actorFlag,
				StaleTimeout: "24h",
				RetryBudget:  5,
			}
			data, err := yaml.Marshal(scaffold)
			if err != nil {
				return err
			}
			if err := os.WriteFile(configPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
		}

		if jsonOutput {
			outputJSON(map[string]string{
				"database": dbFile,
				"config":   configPath,
			})
			return nil
		}
		fmt.Printf("\n%s Initialized task workspace\n\n", ui.RenderPass("✓"))
		fmt.Print(ui.RenderKV([][2]string{
			{"Database", dbFile},
			{"Config", configPath},
		}))
		fmt.Printf("\n%s\n", ui.RenderMuted("Next: td create \"Your first task\" --instruction \"...\""))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
