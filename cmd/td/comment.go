package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var commentCmd = &cobra.Command{
	Use:     "comment",
	GroupID: "admin",
	Short:   "Manage task comments",
}

var commentAddCmd = &cobra.Command{
	Use:   "add TASK_ID CONTENT",
	Short: "Comment on a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		parentID, _ := cmd.Flags().GetInt64("reply-to")
		mentions, _ := cmd.Flags().GetStringSlice("mention")

		params := map[string]any{
			"task_id":  taskID,
			"content":  args[1],
			"agent_id": actor,
		}
		if parentID > 0 {
			params["parent_comment_id"] = parentID
		}
		if len(mentions) > 0 {
			arr := make([]any, len(mentions))
			for i, m := range mentions {
				arr[i] = m
			}
			params["mentions"] = arr
		}

		var result struct {
			Comment *types.Comment `json:"comment"`
		}
		if err := invokeInto("create_comment", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Comment)
			return nil
		}
		fmt.Printf("\n%s Comment %d added to %s\n\n",
			ui.RenderPass("✓"), result.Comment.ID, ui.RenderID(taskID))
		return nil
	},
}

var commentEditCmd = &cobra.Command{
	Use:   "edit COMMENT_ID CONTENT",
	Short: "Edit your own comment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		commentID, err := parseTaskID(args[0])
		if err != nil {
			return fmt.Errorf("invalid comment id %q", args[0])
		}

		var result struct {
			Comment *types.Comment `json:"comment"`
		}
		err = invokeInto("update_comment", map[string]any{
			"comment_id": commentID,
			"content":    args[1],
			"agent_id":   actor,
		}, &result)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Comment)
			return nil
		}
		fmt.Printf("\n%s Comment %d updated\n\n", ui.RenderPass("✓"), commentID)
		return nil
	},
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete COMMENT_ID",
	Short: "Delete your own comment and its replies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		commentID, err := parseTaskID(args[0])
		if err != nil {
			return fmt.Errorf("invalid comment id %q", args[0])
		}
		err = invokeInto("delete_comment", map[string]any{
			"comment_id": commentID,
			"agent_id":   actor,
		}, nil)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(map[string]int64{"deleted": commentID})
			return nil
		}
		fmt.Printf("\n%s Comment %d deleted\n\n", ui.RenderPass("✓"), commentID)
		return nil
	},
}

var commentListCmd = &cobra.Command{
	Use:   "list TASK_ID",
	Short: "List a task's comments in thread order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		var result struct {
			Comments []*types.Comment `json:"comments"`
		}
		if err := invokeInto("get_comments", map[string]any{"task_id": taskID}, &result); err != nil {
			return err
		}

		if jsonOutput {
			if result.Comments == nil {
				result.Comments = []*types.Comment{}
			}
			outputJSON(result.Comments)
			return nil
		}
		if len(result.Comments) == 0 {
			fmt.Printf("\n%s\n\n", ui.RenderMuted("No comments."))
			return nil
		}
		fmt.Println()
		for _, c := range result.Comments {
			prefix := ""
			if c.ParentCommentID != nil {
				prefix = "  ↳ "
			}
			stamp := c.CreatedAt.Local().Format("2006-01-02 15:04")
			if c.UpdatedAt != nil {
				stamp += " (edited)"
			}
			fmt.Printf("%s%s %s %s\n", prefix,
				ui.RenderMuted(fmt.Sprintf("[%d]", c.ID)),
				ui.RenderHeader(c.AgentID),
				ui.RenderMuted(stamp))
			fmt.Printf("%s    %s\n", prefix, c.Content)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	commentAddCmd.Flags().Int64("reply-to", 0, "Parent comment id for a threaded reply")
	commentAddCmd.Flags().StringSlice("mention", nil, "Agent to mention (repeatable)")
	commentCmd.AddCommand(commentAddCmd, commentEditCmd, commentDeleteCmd, commentListCmd)
	rootCmd.AddCommand(commentCmd)
}
