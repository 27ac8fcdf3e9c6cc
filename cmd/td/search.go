package main

import (
	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
)

var searchCmd = &cobra.Command{
	Use:     "search QUERY",
	GroupID: "views",
	Short:   "Search task titles and instructions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		projectID, _ := cmd.Flags().GetInt64("project")

		params := map[string]any{
			"query": args[0],
			"limit": limit,
		}
		if projectID > 0 {
			params["project_id"] = projectID
		}

		var result struct {
			Tasks []*types.Task `json:"tasks"`
		}
		if err := invokeInto("search_tasks", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			if result.Tasks == nil {
				result.Tasks = []*types.Task{}
			}
			outputJSON(result.Tasks)
			return nil
		}
		displayTaskList(result.Tasks)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntP("limit", "n", 50, "Maximum tasks to show")
	searchCmd.Flags().Int64("project", 0, "Filter by project id")
	rootCmd.AddCommand(searchCmd)
}
