package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/ui"
)

var deleteCmd = &cobra.Command{
	Use:     "delete TASK_ID",
	GroupID: "admin",
	Short:   "Delete a task",
	Long: `Delete a task. Its relationships, tags and comments go with it; the
audit trail, narrative updates and version history remain queryable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")

		if !force && ui.IsTerminal() {
			fmt.Printf("Delete task #%d? [y/N] ", taskID)
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
				fmt.Println("Aborted.")
				return nil
			}
		}

		err = invokeInto("delete_task", map[string]any{
			"task_id":  taskID,
			"agent_id": actor,
		}, nil)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(map[string]int64{"deleted": taskID})
			return nil
		}
		fmt.Printf("\n%s Deleted %s\n\n", ui.RenderPass("✓"), ui.RenderID(taskID))
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolP("force", "f", false, "Skip confirmation")
	rootCmd.AddCommand(deleteCmd)
}
