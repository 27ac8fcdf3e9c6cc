package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/ui"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	GroupID: "admin",
	Short:   "Manage task templates",
}

var templateCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Define a reusable task blueprint",
	Long: `Define a template. The title may contain {placeholders}; every
placeholder expands to the --arg value given at instantiation time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		instruction, _ := cmd.Flags().GetString("instruction")
		verify, _ := cmd.Flags().GetString("verify")
		notes, _ := cmd.Flags().GetString("notes")
		taskType, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetString("priority")

		params := map[string]any{
			"name":                     args[0],
			"title_template":           title,
			"task_instruction":         instruction,
			"verification_instruction": verify,
		}
		if notes != "" {
			params["notes"] = notes
		}
		if taskType != "" {
			params["task_type"] = taskType
		}
		if priority != "" {
			params["priority"] = priority
		}
		if cmd.Flags().Changed("estimate") {
			estimate, _ := cmd.Flags().GetFloat64("estimate")
			params["estimated_hours"] = estimate
		}

		var result struct {
			Template *types.TaskTemplate `json:"template"`
		}
		if err := invokeInto("create_template", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Template)
			return nil
		}
		fmt.Printf("\n%s Template %s created\n\n", ui.RenderPass("✓"), ui.RenderHeader(args[0]))
		return nil
	},
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Templates []*types.TaskTemplate `json:"templates"`
		}
		if err := invokeInto("list_templates", map[string]any{}, &result); err != nil {
			return err
		}

		if jsonOutput {
			if result.Templates == nil {
				result.Templates = []*types.TaskTemplate{}
			}
			outputJSON(result.Templates)
			return nil
		}
		if len(result.Templates) == 0 {
			fmt.Printf("\n%s\n\n", ui.RenderMuted("No templates."))
			return nil
		}
		fmt.Println()
		for _, t := range result.Templates {
			fmt.Printf("  %s  %s %s\n",
				ui.RenderHeader(t.Name),
				ui.RenderPriority(t.Priority),
				ui.RenderMuted(t.TitleTemplate))
		}
		fmt.Println()
		return nil
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Remove a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := invokeInto("delete_template", map[string]any{"name": args[0]}, nil); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"deleted": args[0]})
			return nil
		}
		fmt.Printf("\n%s Template %s deleted\n\n", ui.RenderPass("✓"), args[0])
		return nil
	},
}

var templateUseCmd = &cobra.Command{
	Use:   "use NAME",
	Short: "Create a task from a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		titleArg, _ := cmd.Flags().GetString("arg")
		projectID, _ := cmd.Flags().GetInt64("project")

		params := map[string]any{
			"name":     args[0],
			"agent_id": actor,
		}
		if titleArg != "" {
			params["title_arg"] = titleArg
		}
		if projectID > 0 {
			params["project_id"] = projectID
		}

		var result struct {
			Task *types.Task `json:"task"`
		}
		if err := invokeInto("create_task_from_template", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Task)
			return nil
		}
		fmt.Printf("\n%s Created %s %s\n\n",
			ui.RenderPass("✓"), ui.RenderID(result.Task.ID), result.Task.Title)
		return nil
	},
}

var recurCmd = &cobra.Command{
	Use:     "recur",
	GroupID: "admin",
	Short:   "Manage recurring task definitions",
}

var recurCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Define a recurring task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		instruction, _ := cmd.Flags().GetString("instruction")
		verify, _ := cmd.Flags().GetString("verify")
		taskType, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetString("priority")
		interval, _ := cmd.Flags().GetFloat64("every")
		projectID, _ := cmd.Flags().GetInt64("project")

		params := map[string]any{
			"name":                     args[0],
			"title_template":           title,
			"task_instruction":         instruction,
			"verification_instruction": verify,
			"interval_hours":           interval,
		}
		if taskType != "" {
			params["task_type"] = taskType
		}
		if priority != "" {
			params["priority"] = priority
		}
		if projectID > 0 {
			params["project_id"] = projectID
		}

		var result struct {
			Recurring *types.RecurringTask `json:"recurring"`
		}
		if err := invokeInto("create_recurring_task", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Recurring)
			return nil
		}
		fmt.Printf("\n%s Recurring task %s created, every %.0fh\n\n",
			ui.RenderPass("✓"), ui.RenderHeader(args[0]), interval)
		return nil
	},
}

var recurListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recurring definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		activeOnly, _ := cmd.Flags().GetBool("active")

		var result struct {
			Recurring []*types.RecurringTask `json:"recurring"`
		}
		params := map[string]any{}
		if activeOnly {
			params["active_only"] = true
		}
		if err := invokeInto("list_recurring_tasks", params, &result); err != nil {
			return err
		}

		if jsonOutput {
			if result.Recurring == nil {
				result.Recurring = []*types.RecurringTask{}
			}
			outputJSON(result.Recurring)
			return nil
		}
		if len(result.Recurring) == 0 {
			fmt.Printf("\n%s\n\n", ui.RenderMuted("No recurring tasks."))
			return nil
		}
		fmt.Println()
		for _, r := range result.Recurring {
			state := ui.RenderPass("active")
			if !r.Active {
				state = ui.RenderMuted("paused")
			}
			due := ""
			if r.NextRunAt != nil {
				due = ui.RenderMuted("next " + r.NextRunAt.Local().Format("2006-01-02 15:04"))
			}
			fmt.Printf("  %-4d %s  every %.0fh  %s  %s\n",
				r.ID, ui.RenderHeader(r.Name), r.IntervalHours, state, due)
		}
		fmt.Println()
		return nil
	},
}

var recurPauseCmd = &cobra.Command{
	Use:   "pause RECURRING_ID",
	Short: "Pause a recurring definition",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setRecurringActive(args[0], false) },
}

var recurResumeCmd = &cobra.Command{
	Use:   "resume RECURRING_ID",
	Short: "Resume a paused recurring definition",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setRecurringActive(args[0], true) },
}

func setRecurringActive(arg string, active bool) error {
	recurringID, err := parseTaskID(arg)
	if err != nil {
		return fmt.Errorf("invalid recurring id %q", arg)
	}
	err = invokeInto("set_recurring_active", map[string]any{
		"recurring_id": recurringID,
		"active":       active,
	}, nil)
	if err != nil {
		return err
	}
	if jsonOutput {
		outputJSON(map[string]any{"recurring_id": recurringID, "active": active})
		return nil
	}
	verb := "paused"
	if active {
		verb = "resumed"
	}
	fmt.Printf("\n%s Recurring task %d %s\n\n", ui.RenderPass("✓"), recurringID, verb)
	return nil
}

var recurRunCmd = &cobra.Command{
	Use:   "run RECURRING_ID",
	Short: "Instantiate the next occurrence now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recurringID, err := parseTaskID(args[0])
		if err != nil {
			return fmt.Errorf("invalid recurring id %q", args[0])
		}

		var result struct {
			Task *types.Task `json:"task"`
		}
		err = invokeInto("instantiate_recurring_task", map[string]any{
			"recurring_id": recurringID,
			"agent_id":     actor,
		}, &result)
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result.Task)
			return nil
		}
		fmt.Printf("\n%s Created %s %s\n\n",
			ui.RenderPass("✓"), ui.RenderID(result.Task.ID), result.Task.Title)
		return nil
	},
}

func init() {
	templateCreateCmd.Flags().String("title", "", "Title template, may contain {placeholders}")
	templateCreateCmd.Flags().StringP("instruction", "i", "", "Task instruction")
	templateCreateCmd.Flags().String("verify", "", "Verification instruction (required, min 10 characters)")
	templateCreateCmd.Flags().String("notes", "", "Notes")
	templateCreateCmd.Flags().StringP("type", "t", "", "Task type")
	templateCreateCmd.Flags().StringP("priority", "p", "", "Priority")
	templateCreateCmd.Flags().Float64P("estimate", "e", 0, "Estimated hours")
	_ = templateCreateCmd.MarkFlagRequired("title")
	_ = templateCreateCmd.MarkFlagRequired("instruction")
	_ = templateCreateCmd.MarkFlagRequired("verify")

	templateUseCmd.Flags().String("arg", "", "Placeholder expansion for the title")
	templateUseCmd.Flags().Int64("project", 0, "Project id for the new task")

	templateCmd.AddCommand(templateCreateCmd, templateListCmd, templateDeleteCmd, templateUseCmd)
	rootCmd.AddCommand(templateCmd)

	recurCreateCmd.Flags().String("title", "", "Title template, may contain {placeholders}")
	recurCreateCmd.Flags().StringP("instruction", "i", "", "Task instruction")
	recurCreateCmd.Flags().String("verify", "", "Verification instruction (required, min 10 characters)")
	recurCreateCmd.Flags().StringP("type", "t", "", "Task type")
	recurCreateCmd.Flags().StringP("priority", "p", "", "Priority")
	recurCreateCmd.Flags().Float64("every", 24, "Interval in hours")
	recurCreateCmd.Flags().Int64("project", 0, "Project id for instances")
	_ = recurCreateCmd.MarkFlagRequired("title")
	_ = recurCreateCmd.MarkFlagRequired("instruction")
	_ = recurCreateCmd.MarkFlagRequired("verify")

	recurListCmd.Flags().Bool("active", false, "Only active definitions")

	recurCmd.AddCommand(recurCreateCmd, recurListCmd, recurPauseCmd, recurResumeCmd, recurRunCmd)
	rootCmd.AddCommand(recurCmd)
}
