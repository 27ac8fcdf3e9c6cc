package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var createCmd = &cobra.Command{
	Use:     "create TITLE",
	GroupID: "lifecycle",
	Short:   "Create a task",
	Long: `Create a task. The due date accepts natural language ("tomorrow 5pm",
"next friday") as well as ISO-8601 timestamps.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instruction, _ := cmd.Flags().GetString("instruction")
		verification, _ := cmd.Flags().GetString("verify")
		notes, _ := cmd.Flags().GetString("notes")
		taskType, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetString("priority")
		projectID, _ := cmd.Flags().GetInt64("project")
		parentID, _ := cmd.Flags().GetInt64("parent")
		relation, _ := cmd.Flags().GetString("relation")
		dependsOn, _ := cmd.Flags().GetInt64Slice("depends-on")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		due, _ := cmd.Flags().GetString("due")
		estimate, _ := cmd.Flags().GetFloat64("estimate")

		params := map[string]any{
			"title":                    args[0],
			"task_instruction":         instruction,
			"verification_instruction": verification,
			"task_type":                taskType,
			"priority":                 priority,
			"agent_id":                 actor,
		}
		if notes != "" {
			params["notes"] = notes
		}
		if projectID > 0 {
			params["project_id"] = projectID
		}
		if parentID > 0 {
			params["parent_task_id"] = parentID
			params["relationship_type"] = relation
		}
		if len(dependsOn) > 0 {
			deps := make([]any, len(dependsOn))
			for i, id := range dependsOn {
				deps[i] = id
			}
			params["depends_on"] = deps
		}
		if len(tags) > 0 {
			tagList := make([]any, len(tags))
			for i, tag := range tags {
				tagList[i] = tag
			}
			params["tags"] = tagList
		}
		if due != "" {
			dueTime, err := parseDue(due)
			if err != nil {
				return err
			}
			params["due_date"] = dueTime.Format(time.RFC3339)
		}
		if estimate > 0 {
			params["estimated_hours"] = estimate
		}

		var result struct {
			Task *types.Task `json:"task"`
		}
		if err := invokeInto("create_task", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Task)
			return nil
		}
		fmt.Printf("\n%s Created task %s: %s\n\n", ui.RenderPass("✓"), ui.RenderID(result.Task.ID), result.Task.Title)
		return nil
	},
}

// parseDue resolves a due date: natural language first, ISO-8601 as the
// fallback.
func parseDue(input string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	if r, err := w.Parse(input, time.Now()); err == nil && r != nil {
		return r.Time, nil
	}
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", input, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("could not parse due date %q", input)
}

func init() {
	createCmd.Flags().StringP("instruction", "i", "", "What the agent must do (required, min 10 characters)")
	createCmd.Flags().String("verify", "", "How to verify the outcome (required, min 10 characters)")
	createCmd.Flags().String("notes", "", "Free-form notes")
	createCmd.Flags().StringP("type", "t", "concrete", "Task type (concrete|abstract|epic)")
	createCmd.Flags().StringP("priority", "p", "medium", "Priority (low|medium|high|critical)")
	createCmd.Flags().Int64("project", 0, "Project id")
	createCmd.Flags().Int64("parent", 0, "Parent task id")
	createCmd.Flags().String("relation", "subtask", "Edge type to the parent (subtask|blocking|blocked_by|followup|related)")
	createCmd.Flags().Int64Slice("depends-on", nil, "Task ids this task is blocked by")
	createCmd.Flags().StringSlice("tag", nil, "Tags to assign")
	createCmd.Flags().StringP("due", "d", "", "Due date (natural language or ISO-8601)")
	createCmd.Flags().Float64P("estimate", "e", 0, "Estimated hours")
	_ = createCmd.MarkFlagRequired("instruction")
	_ = createCmd.MarkFlagRequired("verify")
	rootCmd.AddCommand(createCmd)
}
