package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/sweeper"
	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var staleCmd = &cobra.Command{
	Use:     "stale",
	GroupID: "views",
	Short:   "Show reservations held past the stale threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		hours, _ := cmd.Flags().GetFloat64("older-than")
		limit, _ := cmd.Flags().GetInt("limit")

		params := map[string]any{"limit": limit}
		if hours > 0 {
			params["older_than_hours"] = hours
		}

		var result struct {
			Tasks []*types.Task `json:"tasks"`
		}
		if err := invokeInto("get_stale_tasks", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			if result.Tasks == nil {
				result.Tasks = []*types.Task{}
			}
			outputJSON(result.Tasks)
			return nil
		}
		if len(result.Tasks) == 0 {
			fmt.Printf("\n%s No stale reservations\n\n", ui.RenderPass("✓"))
			return nil
		}
		fmt.Printf("\n%s %d stale reservations:\n\n", ui.RenderWarn("⏰"), len(result.Tasks))
		now := time.Now()
		for _, task := range result.Tasks {
			held := "?"
			if task.AssignedAt != nil {
				held = fmt.Sprintf("%.1fh", now.Sub(*task.AssignedAt).Hours())
			}
			fmt.Printf("  %s %s\n", ui.RenderID(task.ID), task.Title)
			fmt.Printf("    held by %s for %s\n", task.AssignedAgent, held)
		}
		fmt.Printf("\n%s\n", ui.RenderMuted("Release with: td sweep, or td unlock --force <id>"))
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:     "sweep",
	GroupID: "admin",
	Short:   "Release expired reservations now",
	Long: `Run one sweep pass: every in_progress task whose reservation exceeds
the stale timeout is released back to available, marked stale, and gets
a finding update recording the release.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureBackend(); err != nil {
			return err
		}
		if daemonClient != nil {
			return fmt.Errorf("a daemon is running; it sweeps on its own schedule (stop it or use --no-daemon)")
		}

		released, err := sweeper.New(eng, 0).Sweep(rootCtx)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]int{"released": released})
			return nil
		}
		if released == 0 {
			fmt.Printf("\n%s Nothing to release\n\n", ui.RenderPass("✓"))
		} else {
			fmt.Printf("\n%s Released %d stale reservations\n\n", ui.RenderPass("✓"), released)
		}
		return nil
	},
}

func init() {
	staleCmd.Flags().Float64("older-than", 0, "Override the stale threshold in hours")
	staleCmd.Flags().IntP("limit", "n", 100, "Maximum tasks to show")
	rootCmd.AddCommand(staleCmd)
	rootCmd.AddCommand(sweepCmd)
}
