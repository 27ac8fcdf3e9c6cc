package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var reserveCmd = &cobra.Command{
	Use:     "reserve TASK_ID",
	GroupID: "lifecycle",
	Short:   "Atomically claim an available task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		var result struct {
			Task         *types.Task         `json:"task"`
			StaleWarning *types.StaleWarning `json:"stale_warning"`
		}
		err = invokeInto("reserve_task", map[string]any{
			"task_id":  taskID,
			"agent_id": actor,
		}, &result)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result)
			return nil
		}
		fmt.Printf("\n%s Reserved %s for %s\n", ui.RenderPass("✓"), ui.RenderID(result.Task.ID), actor)
		displayStaleWarning(result.StaleWarning)
		displayTask(result.Task)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reserveCmd)
}
