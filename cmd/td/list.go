package main

import (
	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "views",
	Short:   "List tasks with filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		taskType, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetString("priority")
		projectID, _ := cmd.Flags().GetInt64("project")
		agent, _ := cmd.Flags().GetString("agent")
		verification, _ := cmd.Flags().GetString("verification")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		sortBy, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		params := map[string]any{
			"sort_by": sortBy,
			"limit":   limit,
		}
		if status != "" {
			params["status"] = status
		}
		if taskType != "" {
			params["task_type"] = taskType
		}
		if priority != "" {
			params["priority"] = priority
		}
		if projectID > 0 {
			params["project_id"] = projectID
		}
		if agent != "" {
			params["assigned_agent"] = agent
		}
		if verification != "" {
			params["verification"] = verification
		}
		if len(tags) > 0 {
			tagList := make([]any, len(tags))
			for i, tag := range tags {
				tagList[i] = tag
			}
			params["tags"] = tagList
		}
		if offset > 0 {
			params["offset"] = offset
		}

		var result struct {
			Tasks []*types.Task `json:"tasks"`
			Total int           `json:"total"`
		}
		if err := invokeInto("query_tasks", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			if result.Tasks == nil {
				result.Tasks = []*types.Task{}
			}
			outputJSON(result)
			return nil
		}
		displayTaskList(result.Tasks)
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("status", "s", "", "Filter by status (available|in_progress|complete|blocked|cancelled)")
	listCmd.Flags().StringP("type", "t", "", "Filter by task type")
	listCmd.Flags().StringP("priority", "p", "", "Filter by priority")
	listCmd.Flags().Int64("project", 0, "Filter by project id")
	listCmd.Flags().String("agent", "", "Filter by assigned agent")
	listCmd.Flags().String("verification", "", "Filter by verification state")
	listCmd.Flags().StringSlice("tag", nil, "Filter by tags (all must match)")
	listCmd.Flags().String("sort", "created_at", "Sort order (priority|priority_asc|created_at|updated_at|due_date)")
	listCmd.Flags().IntP("limit", "n", 50, "Maximum tasks to show")
	listCmd.Flags().Int("offset", 0, "Skip this many tasks")
	rootCmd.AddCommand(listCmd)
}
