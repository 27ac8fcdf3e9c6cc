package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/taskdeck/taskdeck/internal/engine"
	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/validation"
)

func lifecycleDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Name:        "create_task",
			Description: "Create a task, optionally attached to a parent and dependencies.",
			Params: []ParamSpec{
				titleParam(true),
				instructionParam(true),
				verificationParam(true),
				pStr("notes", false),
				taskTypeEnum(false),
				priorityEnum(false),
				pInt("project_id", false),
				pInt("parent_task_id", false),
				relationshipTypeEnum(false),
				pArr("depends_on", false),
				pArr("tags", false),
				pStr("due_date", false),
				pFloat("estimated_hours", false, validation.MinHours),
				pAgent(),
			},
			Handler: handleCreateTask,
		},
		{
			Name:        "reserve_task",
			Description: "Atomically claim an available, unblocked task.",
			Params:      []ParamSpec{pTaskID(), pAgent()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				result, err := d.engine.Reserve(ctx, p.Int("task_id"), p.String("agent_id"))
				if err != nil {
					return nil, err
				}
				resp := map[string]any{"task": result.Task}
				if result.StaleWarning != nil {
					resp["stale_warning"] = result.StaleWarning
				}
				return resp, nil
			},
		},
		{
			Name:        "complete_task",
			Description: "Finish a held task; on a complete-but-unverified task this verifies instead.",
			Params: []ParamSpec{
				pTaskID(), pAgent(),
				pFloat("actual_hours", false, validation.MinHours),
				pStr("completion_notes", false),
				pObj("followup"),
			},
			Handler: handleCompleteTask,
		},
		{
			Name:        "verify_task",
			Description: "Confirm a completed task's outcome.",
			Params:      []ParamSpec{pTaskID(), pAgent()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				task, err := d.engine.Verify(ctx, p.Int("task_id"), p.String("agent_id"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"task": task}, nil
			},
		},
		{
			Name:        "unlock_task",
			Description: "Release a held task back to available.",
			Params:      []ParamSpec{pTaskID(), pAgent(), pBool("force")},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				task, err := d.engine.Unlock(ctx, p.Int("task_id"), p.String("agent_id"), p.Bool("force"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"task": task}, nil
			},
		},
		{
			Name:        "bulk_unlock_tasks",
			Description: "Release a batch of tasks in one all-or-nothing transaction.",
			Params:      []ParamSpec{pArr("task_ids", true), pAgent(), pBool("force")},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				ids, err := p.IntSlice("task_ids")
				if err != nil {
					return nil, err
				}
				outcomes, err := d.engine.BulkUnlock(ctx, ids, p.String("agent_id"), p.Bool("force"))
				if err != nil {
					return nil, err
				}
				released := true
				for _, outcome := range outcomes {
					if !outcome.OK {
						released = false
						break
					}
				}
				return map[string]any{"results": outcomes, "released": released}, nil
			},
		},
		{
			Name:        "add_task_update",
			Description: "Append a narrative update; never advances the version counter.",
			Params: []ParamSpec{
				pTaskID(), pAgent(),
				pEnum("update_type", true,
					string(types.UpdateProgress), string(types.UpdateNote),
					string(types.UpdateBlocker), string(types.UpdateQuestion),
					string(types.UpdateFinding)),
				pStrLen("content", true, 1, 0),
				pObj("metadata"),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				var metadata []byte
				if obj := p.Object("metadata"); obj != nil {
					var err error
					if metadata, err = json.Marshal(obj); err != nil {
						return nil, types.Validationf("metadata is not serializable: %v", err)
					}
				}
				update, err := d.engine.AddUpdate(ctx,
					p.Int("task_id"), p.String("agent_id"),
					types.UpdateType(p.String("update_type")), p.String("content"), metadata)
				if err != nil {
					return nil, err
				}
				return map[string]any{"update": update}, nil
			},
		},
		{
			Name:        "update_task",
			Description: "Apply an administrative field patch.",
			Params: []ParamSpec{
				pTaskID(), pAgent(),
				titleParam(false),
				instructionParam(false),
				verificationParam(false),
				pStr("notes", false),
				priorityEnum(false),
				taskTypeEnum(false),
				pStr("due_date", false),
				pBool("clear_due_date"),
				pFloat("estimated_hours", false, validation.MinHours),
				pInt("project_id", false),
				pBool("clear_project"),
				pStr("github_issue_url", false),
				pStr("github_pr_url", false),
			},
			Handler: handleUpdateTask,
		},
		{
			Name:        "set_github_links",
			Description: "Record the GitHub issue and pull request for a task.",
			Params: []ParamSpec{
				pTaskID(), pAgent(),
				pStr("github_issue_url", false),
				pStr("github_pr_url", false),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				patch := &storage.TaskPatch{
					GithubIssueURL: p.StringPtr("github_issue_url"),
					GithubPRURL:    p.StringPtr("github_pr_url"),
				}
				if patch.GithubIssueURL == nil && patch.GithubPRURL == nil {
					return nil, types.Validationf("set_github_links requires github_issue_url or github_pr_url")
				}
				task, err := d.engine.UpdateTask(ctx, p.Int("task_id"), p.String("agent_id"), patch)
				if err != nil {
					return nil, err
				}
				return map[string]any{"task": task}, nil
			},
		},
		{
			Name:        "delete_task",
			Description: "Remove a task; its audit trail, updates and versions survive.",
			Params:      []ParamSpec{pTaskID(), pAgent()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				if err := d.engine.DeleteTask(ctx, p.Int("task_id"), p.String("agent_id")); err != nil {
					return nil, err
				}
				return map[string]any{"deleted": p.Int("task_id")}, nil
			},
		},
	}
}

func handleCreateTask(ctx context.Context, d *Dispatcher, p Params) (any, error) {
	dependsOn, err := p.IntSlice("depends_on")
	if err != nil {
		return nil, err
	}
	tags, err := p.StringSlice("tags")
	if err != nil {
		return nil, err
	}

	var dueDate *time.Time
	if raw := p.String("due_date"); raw != "" {
		parsed, err := validation.ParseDueDate(raw)
		if err != nil {
			return nil, err
		}
		dueDate = &parsed
	}

	task, err := d.engine.CreateTask(ctx, engine.CreateTaskRequest{
		Title:                   p.String("title"),
		TaskInstruction:         p.String("task_instruction"),
		VerificationInstruction: p.String("verification_instruction"),
		Notes:                   p.String("notes"),
		TaskType:                types.TaskType(p.String("task_type")),
		Priority:                types.Priority(p.String("priority")),
		ProjectID:               p.IntPtr("project_id"),
		ParentTaskID:            p.IntPtr("parent_task_id"),
		RelationshipType:        types.RelationshipType(p.String("relationship_type")),
		DependsOn:               dependsOn,
		Tags:                    tags,
		DueDate:                 dueDate,
		EstimatedHours:          p.FloatPtr("estimated_hours"),
		CreatedBy:               p.String("agent_id"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"task": task}, nil
}

func handleCompleteTask(ctx context.Context, d *Dispatcher, p Params) (any, error) {
	req := engine.CompleteRequest{
		TaskID:          p.Int("task_id"),
		AgentID:         p.String("agent_id"),
		ActualHours:     p.FloatPtr("actual_hours"),
		CompletionNotes: p.String("completion_notes"),
	}

	if obj := p.Object("followup"); obj != nil {
		followup, err := parseFollowup(obj)
		if err != nil {
			return nil, err
		}
		req.Followup = followup
	}

	result, err := d.engine.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := map[string]any{
		"task":     result.Task,
		"verified": result.Verified,
	}
	if result.Followup != nil {
		resp["followup"] = result.Followup
	}
	return resp, nil
}

// parseFollowup validates the nested followup object of complete_task.
// It shares create_task's field names but only a subset is honored; the
// project and priority default to the parent's.
func parseFollowup(obj map[string]any) (*engine.CreateTaskRequest, error) {
	allowed := map[string]bool{
		"title": true, "task_instruction": true, "verification_instruction": true,
		"notes": true, "task_type": true, "priority": true, "estimated_hours": true,
	}
	for key := range obj {
		if !allowed[key] {
			return nil, types.Validationf("followup: unknown parameter %q", key)
		}
	}
	get := func(key string) string {
		s, _ := obj[key].(string)
		return s
	}

	req := &engine.CreateTaskRequest{
		Title:                   get("title"),
		TaskInstruction:         get("task_instruction"),
		VerificationInstruction: get("verification_instruction"),
		Notes:                   get("notes"),
		TaskType:                types.TaskType(get("task_type")),
		Priority:                types.Priority(get("priority")),
	}
	if req.Title == "" || req.TaskInstruction == "" || req.VerificationInstruction == "" {
		return nil, types.Validationf("followup requires title, task_instruction and verification_instruction")
	}
	if req.TaskType != "" && !types.ValidTaskType(req.TaskType) {
		return nil, types.Validationf("followup: unknown task_type %q", req.TaskType)
	}
	if req.Priority != "" && !types.ValidPriority(req.Priority) {
		return nil, types.Validationf("followup: unknown priority %q", req.Priority)
	}
	if raw, ok := obj["estimated_hours"]; ok {
		hours, ok := raw.(float64)
		if !ok {
			return nil, types.Validationf("followup: estimated_hours must be a number")
		}
		if err := validation.ValidateHoursValue("estimated_hours", hours); err != nil {
			return nil, err
		}
		req.EstimatedHours = &hours
	}
	return req, nil
}

func handleUpdateTask(ctx context.Context, d *Dispatcher, p Params) (any, error) {
	patch := &storage.TaskPatch{
		Title:                   p.StringPtr("title"),
		TaskInstruction:         p.StringPtr("task_instruction"),
		VerificationInstruction: p.StringPtr("verification_instruction"),
		Notes:                   p.StringPtr("notes"),
		EstimatedHours:          p.FloatPtr("estimated_hours"),
		ProjectID:               p.IntPtr("project_id"),
		ClearProject:            p.Bool("clear_project"),
		ClearDueDate:            p.Bool("clear_due_date"),
		GithubIssueURL:          p.StringPtr("github_issue_url"),
		GithubPRURL:             p.StringPtr("github_pr_url"),
	}
	if s := p.StringPtr("priority"); s != nil {
		priority := types.Priority(*s)
		patch.Priority = &priority
	}
	if s := p.StringPtr("task_type"); s != nil {
		taskType := types.TaskType(*s)
		patch.TaskType = &taskType
	}
	if raw := p.String("due_date"); raw != "" {
		parsed, err := validation.ParseDueDate(raw)
		if err != nil {
			return nil, err
		}
		patch.DueDate = &parsed
	}

	task, err := d.engine.UpdateTask(ctx, p.Int("task_id"), p.String("agent_id"), patch)
	if err != nil {
		return nil, err
	}
	return map[string]any{"task": task}, nil
}
