package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var showCmd = &cobra.Command{
	Use:     "show TASK_ID",
	GroupID: "views",
	Short:   "Show a task with its full working context",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		var result struct {
			Context *types.TaskContext `json:"context"`
		}
		if err := invokeInto("get_task_context", map[string]any{"task_id": taskID}, &result); err != nil {
			return err
		}
		tc := result.Context

		if jsonOutput {
			outputJSON(tc)
			return nil
		}

		displayTask(tc.Task)

		if tc.Project != nil {
			fmt.Printf("\n%s %s", ui.RenderHeader("Project"), tc.Project.Name)
			if tc.Project.Description != "" {
				fmt.Printf(" %s", ui.RenderMuted("— "+tc.Project.Description))
			}
			fmt.Println()
		}

		if len(tc.Ancestry) > 0 {
			fmt.Printf("\n%s\n", ui.RenderHeader("Ancestry"))
			for i, ancestor := range tc.Ancestry {
				fmt.Printf("  %*s%s %s\n", i*2, "", ui.RenderID(ancestor.ID), ancestor.Title)
			}
		}

		displayStaleWarning(tc.StaleInfo)

		if len(tc.Updates) > 0 {
			fmt.Printf("\n%s\n", ui.RenderHeader("Updates"))
			for _, u := range tc.Updates {
				fmt.Printf("  %s %s %s %s\n",
					ui.RenderMuted(u.CreatedAt.Local().Format("01-02 15:04")),
					ui.RenderWarn("["+string(u.UpdateType)+"]"),
					ui.RenderMuted(u.AgentID+":"),
					u.Content)
			}
		}

		if len(tc.RecentChanges) > 0 {
			fmt.Printf("\n%s\n", ui.RenderHeader("Recent changes"))
			for _, c := range tc.RecentChanges {
				line := c.ChangeType
				if c.FieldName != "" {
					line = fmt.Sprintf("%s: %s → %s", c.FieldName, orDash(c.OldValue), orDash(c.NewValue))
				}
				fmt.Printf("  %s %s %s\n",
					ui.RenderMuted(c.CreatedAt.Local().Format("01-02 15:04")),
					ui.RenderMuted(c.AgentID+":"),
					line)
			}
		}
		fmt.Println()
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(showCmd)
}
