package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	GroupID: "admin",
	Short:   "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		localPath, _ := cmd.Flags().GetString("path")
		originURL, _ := cmd.Flags().GetString("origin")
		description, _ := cmd.Flags().GetString("description")

		params := map[string]any{"name": args[0]}
		if localPath != "" {
			params["local_path"] = localPath
		}
		if originURL != "" {
			params["origin_url"] = originURL
		}
		if description != "" {
			params["description"] = description
		}

		var result struct {
			Project *types.Project `json:"project"`
		}
		if err := invokeInto("create_project", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Project)
			return nil
		}
		fmt.Printf("\n%s Project %s created (id %d)\n\n",
			ui.RenderPass("✓"), ui.RenderHeader(result.Project.Name), result.Project.ID)
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show NAME_OR_ID",
	Short: "Show one project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]any{}
		if id, err := parseTaskID(args[0]); err == nil {
			params["project_id"] = id
		} else {
			params["name"] = args[0]
		}

		var result struct {
			Project *types.Project `json:"project"`
		}
		if err := invokeInto("get_project", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Project)
			return nil
		}
		p := result.Project
		fmt.Printf("\n%s %s\n\n", ui.RenderHeader(p.Name), ui.RenderMuted(fmt.Sprintf("(id %d)", p.ID)))
		fmt.Println(ui.RenderKV([][2]string{
			{"Path", orDash(p.LocalPath)},
			{"Origin", orDash(p.OriginURL)},
			{"Description", orDash(p.Description)},
			{"Created", p.CreatedAt.Local().Format("2006-01-02 15:04")},
		}))
		fmt.Println()
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Projects []*types.Project `json:"projects"`
		}
		if err := invokeInto("list_projects", map[string]any{}, &result); err != nil {
			return err
		}

		if jsonOutput {
			if result.Projects == nil {
				result.Projects = []*types.Project{}
			}
			outputJSON(result.Projects)
			return nil
		}
		if len(result.Projects) == 0 {
			fmt.Printf("\n%s\n\n", ui.RenderMuted("No projects."))
			return nil
		}
		fmt.Println()
		for _, p := range result.Projects {
			desc := ""
			if p.Description != "" {
				desc = "  " + ui.RenderMuted(p.Description)
			}
			fmt.Printf("  %-4d %s%s\n", p.ID, ui.RenderHeader(p.Name), desc)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	projectCreateCmd.Flags().String("path", "", "Local repository path")
	projectCreateCmd.Flags().String("origin", "", "Origin URL")
	projectCreateCmd.Flags().String("description", "", "Short description")
	projectCmd.AddCommand(projectCreateCmd, projectShowCmd, projectListCmd)
	rootCmd.AddCommand(projectCmd)
}
