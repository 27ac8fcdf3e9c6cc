package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

func parseTaskID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

var completeCmd = &cobra.Command{
	Use:     "complete TASK_ID",
	GroupID: "lifecycle",
	Short:   "Finish a task you hold",
	Long: `Finish a task reserved by you. Completing a task that is already
complete but unverified verifies it instead. A follow-up task can be
created in the same atomic step with --followup-title.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		hours, _ := cmd.Flags().GetFloat64("hours")
		notes, _ := cmd.Flags().GetString("notes")
		followupTitle, _ := cmd.Flags().GetString("followup-title")
		followupInstruction, _ := cmd.Flags().GetString("followup-instruction")
		followupVerify, _ := cmd.Flags().GetString("followup-verify")

		params := map[string]any{
			"task_id":  taskID,
			"agent_id": actor,
		}
		if hours > 0 {
			params["actual_hours"] = hours
		}
		if notes != "" {
			params["completion_notes"] = notes
		}
		if followupTitle != "" {
			if followupInstruction == "" || followupVerify == "" {
				return fmt.Errorf("--followup-instruction and --followup-verify are required with --followup-title")
			}
			params["followup"] = map[string]any{
				"title":                    followupTitle,
				"task_instruction":         followupInstruction,
				"verification_instruction": followupVerify,
			}
		}

		var result struct {
			Task     *types.Task `json:"task"`
			Verified bool        `json:"verified"`
			Followup *types.Task `json:"followup"`
		}
		if err := invokeInto("complete_task", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result)
			return nil
		}
		if result.Verified {
			fmt.Printf("\n%s Task %s was already complete; verified it instead\n\n",
				ui.RenderPass("✓"), ui.RenderID(result.Task.ID))
			return nil
		}
		fmt.Printf("\n%s Completed %s: %s\n", ui.RenderPass("✓"), ui.RenderID(result.Task.ID), result.Task.Title)
		if result.Followup != nil {
			fmt.Printf("%s Follow-up created: %s %s\n",
				ui.RenderPass("✓"), ui.RenderID(result.Followup.ID), result.Followup.Title)
		}
		fmt.Printf("%s\n\n", ui.RenderMuted("Verification pending: td verify "+args[0]))
		return nil
	},
}

func init() {
	completeCmd.Flags().Float64("hours", 0, "Actual hours spent")
	completeCmd.Flags().String("notes", "", "Completion notes (recorded as a progress update)")
	completeCmd.Flags().String("followup-title", "", "Create a follow-up task with this title")
	completeCmd.Flags().String("followup-instruction", "", "Instruction for the follow-up task")
	completeCmd.Flags().String("followup-verify", "", "Verification instruction for the follow-up task")
	rootCmd.AddCommand(completeCmd)
}
