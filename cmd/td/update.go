package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var updateCmd = &cobra.Command{
	Use:     "update TASK_ID",
	GroupID: "lifecycle",
	Short:   "Edit a task's fields",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		params := map[string]any{
			"task_id":  taskID,
			"agent_id": actor,
		}
		setIfChanged := func(flag, param string) {
			if cmd.Flags().Changed(flag) {
				value, _ := cmd.Flags().GetString(flag)
				params[param] = value
			}
		}
		setIfChanged("title", "title")
		setIfChanged("instruction", "task_instruction")
		setIfChanged("verify", "verification_instruction")
		setIfChanged("notes", "notes")
		setIfChanged("priority", "priority")
		setIfChanged("type", "task_type")
		setIfChanged("issue-url", "github_issue_url")
		setIfChanged("pr-url", "github_pr_url")

		if cmd.Flags().Changed("estimate") {
			estimate, _ := cmd.Flags().GetFloat64("estimate")
			params["estimated_hours"] = estimate
		}
		if cmd.Flags().Changed("project") {
			projectID, _ := cmd.Flags().GetInt64("project")
			if projectID == 0 {
				params["clear_project"] = true
			} else {
				params["project_id"] = projectID
			}
		}
		if cmd.Flags().Changed("due") {
			due, _ := cmd.Flags().GetString("due")
			if due == "" {
				params["clear_due_date"] = true
			} else {
				dueTime, err := parseDue(due)
				if err != nil {
					return err
				}
				params["due_date"] = dueTime.Format(time.RFC3339)
			}
		}

		if len(params) == 2 {
			return fmt.Errorf("nothing to update; pass at least one field flag")
		}

		var result struct {
			Task *types.Task `json:"task"`
		}
		if err := invokeInto("update_task", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Task)
			return nil
		}
		fmt.Printf("\n%s Updated %s\n\n", ui.RenderPass("✓"), ui.RenderID(result.Task.ID))
		return nil
	},
}

func init() {
	updateCmd.Flags().String("title", "", "New title")
	updateCmd.Flags().String("instruction", "", "New task instruction")
	updateCmd.Flags().String("verify", "", "New verification instruction")
	updateCmd.Flags().String("notes", "", "New notes")
	updateCmd.Flags().StringP("priority", "p", "", "New priority")
	updateCmd.Flags().StringP("type", "t", "", "New task type")
	updateCmd.Flags().Float64P("estimate", "e", 0, "New estimated hours")
	updateCmd.Flags().Int64("project", 0, "New project id (0 clears)")
	updateCmd.Flags().StringP("due", "d", "", "New due date (empty clears)")
	updateCmd.Flags().String("issue-url", "", "GitHub issue URL")
	updateCmd.Flags().String("pr-url", "", "GitHub pull request URL")
	rootCmd.AddCommand(updateCmd)
}
