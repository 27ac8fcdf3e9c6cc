package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var versionsCmd = &cobra.Command{
	Use:     "versions TASK_ID",
	GroupID: "views",
	Short:   "List a task's version snapshots",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		var result struct {
			Versions []*types.TaskVersion `json:"versions"`
		}
		if err := invokeInto("list_task_versions", map[string]any{"task_id": taskID}, &result); err != nil {
			return err
		}

		if jsonOutput {
			if result.Versions == nil {
				result.Versions = []*types.TaskVersion{}
			}
			outputJSON(result.Versions)
			return nil
		}
		if len(result.Versions) == 0 {
			fmt.Printf("\n%s\n\n", ui.RenderMuted("No versions."))
			return nil
		}
		fmt.Printf("\n%s %s\n\n", ui.RenderHeader("Versions of"), ui.RenderID(taskID))
		for _, v := range result.Versions {
			var payload struct {
				TaskStatus string `json:"task_status"`
				Title      string `json:"title"`
			}
			_ = json.Unmarshal(v.Payload, &payload)
			fmt.Printf("  v%-3d %s %s %s\n",
				v.Version,
				ui.RenderMuted(v.CreatedAt.Local().Format("2006-01-02 15:04")),
				ui.RenderStatus(types.TaskStatus(payload.TaskStatus)),
				payload.Title)
		}
		fmt.Printf("\n%s\n", ui.RenderMuted(fmt.Sprintf("Diff with: td diff %d <v1> <v2>", taskID)))
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:     "diff TASK_ID V1 V2",
	GroupID: "views",
	Short:   "Diff two version snapshots of a task",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		v1, err := parseTaskID(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		v2, err := parseTaskID(args[2])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[2])
		}

		var result struct {
			Diff []types.FieldDiff `json:"diff"`
		}
		err = invokeInto("diff_task_versions", map[string]any{
			"task_id": taskID,
			"v1":      v1,
			"v2":      v2,
		}, &result)
		if err != nil {
			return err
		}

		if jsonOutput {
			if result.Diff == nil {
				result.Diff = []types.FieldDiff{}
			}
			outputJSON(result.Diff)
			return nil
		}
		if len(result.Diff) == 0 {
			fmt.Printf("\n%s v%d and v%d are identical\n\n", ui.RenderPass("="), v1, v2)
			return nil
		}
		fmt.Printf("\n%s %s v%d → v%d\n\n", ui.RenderHeader("Diff"), ui.RenderID(taskID), v1, v2)
		for _, d := range result.Diff {
			fmt.Printf("  %s\n", ui.RenderHeader(d.Field))
			fmt.Printf("    %s %s\n", ui.RenderFail("-"), renderValue(d.V1Value))
			fmt.Printf("    %s %s\n", ui.RenderPass("+"), renderValue(d.V2Value))
		}
		fmt.Println()
		return nil
	},
}

func renderValue(v any) string {
	if v == nil {
		return ui.RenderMuted("(unset)")
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func init() {
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(diffCmd)
}
