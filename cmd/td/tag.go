package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var tagCmd = &cobra.Command{
	Use:     "tag",
	GroupID: "admin",
	Short:   "Manage task tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add TASK_ID TAG",
	Short: "Attach a tag to a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		err = invokeInto("assign_tag", map[string]any{
			"task_id":  taskID,
			"tag":      args[1],
			"agent_id": actor,
		}, nil)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(map[string]string{"tag": args[1]})
			return nil
		}
		fmt.Printf("\n%s Tagged %s with %s\n\n",
			ui.RenderPass("✓"), ui.RenderID(taskID), ui.RenderWarn(args[1]))
		return nil
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove TASK_ID TAG",
	Short: "Detach a tag from a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		err = invokeInto("remove_tag", map[string]any{
			"task_id":  taskID,
			"tag":      args[1],
			"agent_id": actor,
		}, nil)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(map[string]bool{"removed": true})
			return nil
		}
		fmt.Printf("\n%s Untagged %s\n\n", ui.RenderPass("✓"), ui.RenderID(taskID))
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list [TASK_ID]",
	Short: "List tags, workspace-wide or for one task",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		method := "list_tags"
		params := map[string]any{}
		if len(args) == 1 {
			taskID, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			method = "get_tags"
			params["task_id"] = taskID
		}

		var result struct {
			Tags []*types.Tag `json:"tags"`
		}
		if err := invokeInto(method, params, &result); err != nil {
			return err
		}

		if jsonOutput {
			if result.Tags == nil {
				result.Tags = []*types.Tag{}
			}
			outputJSON(result.Tags)
			return nil
		}
		if len(result.Tags) == 0 {
			fmt.Printf("\n%s\n\n", ui.RenderMuted("No tags."))
			return nil
		}
		names := make([]string, len(result.Tags))
		for i, t := range result.Tags {
			names[i] = t.Name
		}
		fmt.Printf("\n%s\n\n", strings.Join(names, ", "))
		return nil
	},
}

func init() {
	tagCmd.AddCommand(tagAddCmd, tagRemoveCmd, tagListCmd)
	rootCmd.AddCommand(tagCmd)
}
