package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var availableCmd = &cobra.Command{
	Use:     "available",
	GroupID: "views",
	Short:   "List tasks ready to reserve",
	Long: `List tasks an agent can reserve right now: available, not blocked by
incomplete dependencies, highest priority first. Implementation agents
see concrete tasks; breakdown agents see abstract and epic tasks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		agentType, _ := cmd.Flags().GetString("agent-type")
		projectID, _ := cmd.Flags().GetInt64("project")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		limit, _ := cmd.Flags().GetInt("limit")

		params := map[string]any{
			"agent_type": agentType,
			"limit":      limit,
		}
		if projectID > 0 {
			params["project_id"] = projectID
		}
		if len(tags) > 0 {
			tagList := make([]any, len(tags))
			for i, tag := range tags {
				tagList[i] = tag
			}
			params["tags"] = tagList
		}

		var result struct {
			Tasks []*types.Task `json:"tasks"`
		}
		if err := invokeInto("list_available_tasks", params, &result); err != nil {
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
			fmt.Printf("\n%s No tasks available for %s agents\n\n", ui.RenderMuted("∅"), agentType)
			return nil
		}
		displayTaskList(result.Tasks)
		fmt.Printf("%s\n", ui.RenderMuted(fmt.Sprintf("Reserve with: td reserve <id> (acting as %s)", actor)))
		return nil
	},
}

func init() {
	availableCmd.Flags().String("agent-type", "implementation", "Agent projection (implementation|breakdown)")
	availableCmd.Flags().Int64("project", 0, "Filter by project id")
	availableCmd.Flags().StringSlice("tag", nil, "Filter by tags")
	availableCmd.Flags().IntP("limit", "n", 50, "Maximum tasks to show")
	rootCmd.AddCommand(availableCmd)
}
