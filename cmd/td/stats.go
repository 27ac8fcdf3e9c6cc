package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "views",
	Short:   "Show aggregate task statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, _ := cmd.Flags().GetString("agent")
		if agent != "" {
			return showAgentPerformance(agent)
		}

		projectID, _ := cmd.Flags().GetInt64("project")
		taskType, _ := cmd.Flags().GetString("type")
		params := map[string]any{}
		if projectID > 0 {
			params["project_id"] = projectID
		}
		if taskType != "" {
			params["task_type"] = taskType
		}

		var result struct {
			Statistics *types.Statistics `json:"statistics"`
		}
		if err := invokeInto("get_statistics", params, &result); err != nil {
			return err
		}
		stats := result.Statistics

		if jsonOutput {
			outputJSON(stats)
			return nil
		}

		fmt.Printf("\n%s %d tasks, %.0f%% complete\n\n",
			ui.RenderHeader("Overview:"), stats.Total, stats.CompletionRate*100)
		displayGroup("By status", stats.ByStatus)
		displayGroup("By type", stats.ByType)
		displayGroup("By priority", stats.ByPriority)
		if len(stats.ByProject) > 0 {
			displayGroup("By project", stats.ByProject)
		}
		return nil
	},
}

func displayGroup(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("%s\n", ui.RenderHeader(title))
	for _, k := range keys {
		fmt.Printf("  %-14s %d\n", k, counts[k])
	}
	fmt.Println()
}

func showAgentPerformance(agent string) error {
	var result struct {
		Performance *types.AgentPerformance `json:"performance"`
	}
	if err := invokeInto("get_agent_performance", map[string]any{"agent_id": agent}, &result); err != nil {
		return err
	}
	perf := result.Performance

	if jsonOutput {
		outputJSON(perf)
		return nil
	}

	fmt.Printf("\n%s %s\n\n", ui.RenderHeader("Agent:"), perf.AgentID)
	fmt.Print(ui.RenderKV([][2]string{
		{"Completed", fmt.Sprintf("%d", perf.CompletedTotal)},
		{"Verified", fmt.Sprintf("%d", perf.CompletedVerified)},
		{"Success rate", fmt.Sprintf("%.0f%%", perf.SuccessRate*100)},
		{"Mean hours", fmt.Sprintf("%.1f", perf.MeanActualHours)},
	}))
	displayGroup("By type", perf.ByType)
	return nil
}

func init() {
	statsCmd.Flags().Int64("project", 0, "Scope statistics to a project")
	statsCmd.Flags().String("type", "", "Scope statistics to a task type (concrete|abstract|epic)")
	statsCmd.Flags().String("agent", "", "Show one agent's performance instead")
	rootCmd.AddCommand(statsCmd)
}
