package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var verifyCmd = &cobra.Command{
	Use:     "verify TASK_ID",
	GroupID: "lifecycle",
	Short:   "Confirm a completed task's outcome",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		var result struct {
			Task *types.Task `json:"task"`
		}
		err = invokeInto("verify_task", map[string]any{
			"task_id":  taskID,
			"agent_id": actor,
		}, &result)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Task)
			return nil
		}
		fmt.Printf("\n%s Verified %s: %s\n\n", ui.RenderPass("✓"), ui.RenderID(result.Task.ID), result.Task.Title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
