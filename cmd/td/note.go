package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var noteCmd = &cobra.Command{
	Use:     "note TASK_ID CONTENT",
	GroupID: "lifecycle",
	Short:   "Append a narrative update to a task",
	Long: `Append a narrative update to a task's immutable log. Updates record
progress, findings, blockers and questions; they never change the task's
version number.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		updateType, _ := cmd.Flags().GetString("type")

		var result struct {
			Update *types.Update `json:"update"`
		}
		err = invokeInto("add_task_update", map[string]any{
			"task_id":     taskID,
			"agent_id":    actor,
			"update_type": updateType,
			"content":     args[1],
		}, &result)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Update)
			return nil
		}
		fmt.Printf("\n%s Added %s update to %s\n\n",
			ui.RenderPass("✓"), result.Update.UpdateType, ui.RenderID(taskID))
		return nil
	},
}

func init() {
	noteCmd.Flags().StringP("type", "t", "note", "Update type (progress|note|blocker|question|finding)")
	rootCmd.AddCommand(noteCmd)
}
