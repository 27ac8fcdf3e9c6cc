package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var unlockCmd = &cobra.Command{
	Use:     "unlock TASK_ID [TASK_ID...]",
	GroupID: "lifecycle",
	Short:   "Release reserved tasks back to available",
	Long: `Release one or more in_progress tasks back to available. Only the
holding agent may unlock; --force overrides for administrative recovery.
Multiple ids are released in one all-or-nothing batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if len(args) == 1 {
			taskID, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			var result struct {
				Task *types.Task `json:"task"`
			}
			err = invokeInto("unlock_task", map[string]any{
				"task_id":  taskID,
				"agent_id": actor,
				"force":    force,
			}, &result)
			if err != nil {
				return err
			}
			if jsonOutput {
				outputJSON(result.Task)
				return nil
			}
			fmt.Printf("\n%s Unlocked %s\n\n", ui.RenderPass("✓"), ui.RenderID(result.Task.ID))
			return nil
		}

		ids := make([]any, len(args))
		for i, arg := range args {
			id, err := parseTaskID(arg)
			if err != nil {
				return err
			}
			ids[i] = id
		}
		var result struct {
			Results  []types.BulkOutcome `json:"results"`
			Released bool                `json:"released"`
		}
		err := invokeInto("bulk_unlock_tasks", map[string]any{
			"task_ids": ids,
			"agent_id": actor,
			"force":    force,
		}, &result)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(result)
			return nil
		}
		if !result.Released {
			fmt.Println()
			for _, outcome := range result.Results {
				if !outcome.OK {
					fmt.Printf("%s Task %s: %s\n", ui.RenderFail("✗"), ui.RenderID(outcome.TaskID), outcome.Error)
				}
			}
			fmt.Println()
			return fmt.Errorf("batch rolled back; no tasks released")
		}
		fmt.Printf("\n%s Unlocked %d tasks\n\n", ui.RenderPass("✓"), len(result.Results))
		return nil
	},
}

func init() {
	unlockCmd.Flags().BoolP("force", "f", false, "Unlock even if held by another agent")
	rootCmd.AddCommand(unlockCmd)
}
