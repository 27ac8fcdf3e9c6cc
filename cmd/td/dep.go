package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var depCmd = &cobra.Command{
	Use:     "dep",
	GroupID: "admin",
	Short:   "Manage task relationships",
}

var depAddCmd = &cobra.Command{
	Use:   "add PARENT_ID CHILD_ID",
	Short: "Add an edge between two tasks",
	Long: `Add a directed edge. Edge types:
  subtask     child is a subtask of parent
  blocked_by  child cannot start until parent completes
  blocking    parent cannot start until child completes
  followup    child continues work found while closing parent
  related     informational link only

Dependency edges (subtask, blocking, blocked_by) are cycle-checked.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		parentID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		childID, err := parseTaskID(args[1])
		if err != nil {
			return err
		}
		relType, _ := cmd.Flags().GetString("type")

		var result struct {
			Relationship *types.Relationship `json:"relationship"`
		}
		err = invokeInto("create_relationship", map[string]any{
			"parent_task_id":    parentID,
			"child_task_id":     childID,
			"relationship_type": relType,
			"agent_id":          actor,
		}, &result)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Relationship)
			return nil
		}
		fmt.Printf("\n%s %s %s %s\n\n",
			ui.RenderPass("✓"), ui.RenderID(parentID), relType, ui.RenderID(childID))
		return nil
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove PARENT_ID CHILD_ID",
	Short: "Remove an edge between two tasks",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		parentID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		childID, err := parseTaskID(args[1])
		if err != nil {
			return err
		}
		relType, _ := cmd.Flags().GetString("type")

		err = invokeInto("delete_relationship", map[string]any{
			"parent_task_id":    parentID,
			"child_task_id":     childID,
			"relationship_type": relType,
			"agent_id":          actor,
		}, nil)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(map[string]bool{"removed": true})
			return nil
		}
		fmt.Printf("\n%s Removed edge\n\n", ui.RenderPass("✓"))
		return nil
	},
}

var depListCmd = &cobra.Command{
	Use:   "list TASK_ID",
	Short: "List every edge touching a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		var result struct {
			Relationships []*types.Relationship `json:"relationships"`
		}
		if err := invokeInto("get_relationships", map[string]any{"task_id": taskID}, &result); err != nil {
			return err
		}

		if jsonOutput {
			if result.Relationships == nil {
				result.Relationships = []*types.Relationship{}
			}
			outputJSON(result.Relationships)
			return nil
		}
		if len(result.Relationships) == 0 {
			fmt.Printf("\n%s\n\n", ui.RenderMuted("No relationships."))
			return nil
		}
		fmt.Println()
		for _, rel := range result.Relationships {
			fmt.Printf("  %s %s %s\n",
				ui.RenderID(rel.ParentTaskID),
				ui.RenderWarn(string(rel.RelationshipType)),
				ui.RenderID(rel.ChildTaskID))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	depAddCmd.Flags().StringP("type", "t", "blocked_by", "Edge type (subtask|blocking|blocked_by|followup|related)")
	depRemoveCmd.Flags().StringP("type", "t", "blocked_by", "Edge type")
	depCmd.AddCommand(depAddCmd, depRemoveCmd, depListCmd)
	rootCmd.AddCommand(depCmd)
}
