package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var activityCmd = &cobra.Command{
	Use:     "activity",
	GroupID: "views",
	Short:   "Show the merged change and update feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, _ := cmd.Flags().GetInt64("task")
		projectID, _ := cmd.Flags().GetInt64("project")
		agent, _ := cmd.Flags().GetString("agent")
		limit, _ := cmd.Flags().GetInt("limit")

		params := map[string]any{"limit": limit}
		if taskID > 0 {
			params["task_id"] = taskID
		}
		if projectID > 0 {
			params["project_id"] = projectID
		}
		if agent != "" {
			params["agent_id_filter"] = agent
		}

		var result struct {
			Entries []*types.ActivityEntry `json:"entries"`
		}
		if err := invokeInto("get_activity_feed", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			if result.Entries == nil {
				result.Entries = []*types.ActivityEntry{}
			}
			outputJSON(result.Entries)
			return nil
		}
		if len(result.Entries) == 0 {
			fmt.Printf("\n%s\n\n", ui.RenderMuted("No activity."))
			return nil
		}
		for _, e := range result.Entries {
			stamp := ui.RenderMuted(e.CreatedAt.Local().Format("01-02 15:04"))
			switch e.Kind {
			case "update":
				fmt.Printf("%s %s %s %s %s\n",
					stamp, ui.RenderID(e.TaskID), ui.RenderWarn("["+e.Type+"]"),
					ui.RenderMuted(e.AgentID+":"), e.Content)
			default:
				detail := e.Type
				if e.Field != "" {
					detail = fmt.Sprintf("%s: %s → %s", e.Field, orDash(e.OldValue), orDash(e.NewValue))
				}
				fmt.Printf("%s %s %s %s\n",
					stamp, ui.RenderID(e.TaskID), ui.RenderMuted(e.AgentID+":"), detail)
			}
		}
		return nil
	},
}

func init() {
	activityCmd.Flags().Int64("task", 0, "Scope to one task")
	activityCmd.Flags().Int64("project", 0, "Scope to one project")
	activityCmd.Flags().String("agent", "", "Scope to one agent")
	activityCmd.Flags().IntP("limit", "n", 100, "Maximum entries")
	rootCmd.AddCommand(activityCmd)
}
