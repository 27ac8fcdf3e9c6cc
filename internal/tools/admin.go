package tools

import (
	"context"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/validation"
)

func adminDescriptors() []*Descriptor {
	var all []*Descriptor
	all = append(all, relationshipDescriptors()...)
	all = append(all, tagDescriptors()...)
	all = append(all, commentDescriptors()...)
	all = append(all, projectDescriptors()...)
	all = append(all, templateDescriptors()...)
	return all
}

func relationshipTypeEnum(required bool) ParamSpec {
	return pEnum("relationship_type", required,
		string(types.RelSubtask), string(types.RelBlocking),
		string(types.RelBlockedBy), string(types.RelFollowup),
		string(types.RelRelated))
}

func relationshipDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Name:        "create_relationship",
			Description: "Add a directed edge between two tasks; dependency edges are cycle-checked.",
			Params: []ParamSpec{
				pInt("parent_task_id", true),
				pInt("child_task_id", true),
				relationshipTypeEnum(true),
				pAgent(),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				rel, err := d.engine.CreateRelationship(ctx,
					p.Int("parent_task_id"), p.Int("child_task_id"),
					types.RelationshipType(p.String("relationship_type")), p.String("agent_id"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"relationship": rel}, nil
			},
		},
		{
			Name:        "delete_relationship",
			Description: "Remove an edge between two tasks.",
			Params: []ParamSpec{
				pInt("parent_task_id", true),
				pInt("child_task_id", true),
				relationshipTypeEnum(true),
				pAgent(),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				err := d.engine.DeleteRelationship(ctx,
					p.Int("parent_task_id"), p.Int("child_task_id"),
					types.RelationshipType(p.String("relationship_type")), p.String("agent_id"))
				if err != nil {
					return nil, err
				}
				return nil, nil
			},
		},
		{
			Name:        "get_relationships",
			Description: "List every edge touching a task.",
			Params:      []ParamSpec{pTaskID()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				rels, err := d.engine.Store().GetRelationships(ctx, p.Int("task_id"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"relationships": rels}, nil
			},
		},
	}
}

func tagDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Name:        "assign_tag",
			Description: "Attach a tag to a task; re-assigning is a no-op.",
			Params:      []ParamSpec{pTaskID(), pStrLen("tag", true, 1, 50), pAgent()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				tag := strings.TrimSpace(p.String("tag"))
				if err := d.engine.AssignTag(ctx, p.Int("task_id"), tag, p.String("agent_id")); err != nil {
					return nil, err
				}
				return map[string]any{"tag": tag}, nil
			},
		},
		{
			Name:        "remove_tag",
			Description: "Detach a tag from a task.",
			Params:      []ParamSpec{pTaskID(), pStrLen("tag", true, 1, 50), pAgent()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				if err := d.engine.RemoveTag(ctx, p.Int("task_id"), p.String("tag"), p.String("agent_id")); err != nil {
					return nil, err
				}
				return nil, nil
			},
		},
		{
			Name:        "get_tags",
			Description: "List a task's tags.",
			Params:      []ParamSpec{pTaskID()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				tags, err := d.engine.Store().GetTags(ctx, p.Int("task_id"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"tags": tags}, nil
			},
		},
		{
			Name:        "list_tags",
			Description: "List every tag known to the workspace.",
			Params:      nil,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				tags, err := d.engine.Store().ListTags(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"tags": tags}, nil
			},
		},
	}
}

func commentDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Name:        "create_comment",
			Description: "Add a comment or threaded reply to a task.",
			Params: []ParamSpec{
				pTaskID(), pAgent(),
				pStrLen("content", true, 1, 0),
				pInt("parent_comment_id", false),
				pArr("mentions", false),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				mentions, err := p.StringSlice("mentions")
				if err != nil {
					return nil, err
				}
				comment := &types.Comment{
					TaskID:          p.Int("task_id"),
					AgentID:         p.String("agent_id"),
					Content:         p.String("content"),
					ParentCommentID: p.IntPtr("parent_comment_id"),
					Mentions:        mentions,
				}
				if _, err := d.engine.CreateComment(ctx, comment); err != nil {
					return nil, err
				}
				return map[string]any{"comment": comment}, nil
			},
		},
		{
			Name:        "update_comment",
			Description: "Edit a comment; only the author may edit.",
			Params: []ParamSpec{
				pInt("comment_id", true), pAgent(),
				pStrLen("content", true, 1, 0),
				pArr("mentions", false),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				mentions, err := p.StringSlice("mentions")
				if err != nil {
					return nil, err
				}
				comment, err := d.engine.UpdateComment(ctx,
					p.Int("comment_id"), p.String("agent_id"), p.String("content"), mentions)
				if err != nil {
					return nil, err
				}
				return map[string]any{"comment": comment}, nil
			},
		},
		{
			Name:        "delete_comment",
			Description: "Delete a comment and its replies; only the author may delete.",
			Params:      []ParamSpec{pInt("comment_id", true), pAgent()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				if err := d.engine.DeleteComment(ctx, p.Int("comment_id"), p.String("agent_id")); err != nil {
					return nil, err
				}
				return nil, nil
			},
		},
		{
			Name:        "get_comments",
			Description: "List a task's comments in thread order.",
			Params:      []ParamSpec{pTaskID()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				comments, err := d.engine.Store().GetComments(ctx, p.Int("task_id"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"comments": comments}, nil
			},
		},
	}
}

func projectDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Name:        "create_project",
			Description: "Create a project grouping.",
			Params: []ParamSpec{
				pStrLen("name", true, 1, 100),
				pStr("local_path", false),
				pStr("origin_url", false),
				pStr("description", false),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				project := &types.Project{
					Name:        strings.TrimSpace(p.String("name")),
					LocalPath:   p.String("local_path"),
					OriginURL:   p.String("origin_url"),
					Description: p.String("description"),
				}
				if project.Name == "" {
					return nil, types.Validationf("name is required")
				}
				if err := d.engine.Store().CreateProject(ctx, project); err != nil {
					return nil, err
				}
				return map[string]any{"project": project}, nil
			},
		},
		{
			Name:        "get_project",
			Description: "Fetch a project by id or name.",
			Params:      []ParamSpec{pInt("project_id", false), pStr("name", false)},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				var (
					project *types.Project
					err     error
				)
				switch {
				case p.Has("project_id"):
					project, err = d.engine.Store().GetProject(ctx, p.Int("project_id"))
				case p.String("name") != "":
					project, err = d.engine.Store().GetProjectByName(ctx, p.String("name"))
				default:
					return nil, types.Validationf("get_project requires project_id or name")
				}
				if err != nil {
					return nil, err
				}
				return map[string]any{"project": project}, nil
			},
		},
		{
			Name:        "list_projects",
			Description: "List every project.",
			Params:      nil,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				projects, err := d.engine.Store().ListProjects(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"projects": projects}, nil
			},
		},
	}
}

func templateDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			Name:        "create_template",
			Description: "Define a reusable task blueprint.",
			Params: []ParamSpec{
				pStrLen("name", true, 1, 100),
				pStrLen("title_template", true, validation.MinTitleLen, validation.MaxTitleLen),
				instructionParam(true),
				verificationParam(true),
				pStr("notes", false),
				taskTypeEnum(false),
				priorityEnum(false),
				pFloat("estimated_hours", false, validation.MinHours),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				tpl := &types.TaskTemplate{
					Name:                    p.String("name"),
					TitleTemplate:           p.String("title_template"),
					TaskInstruction:         p.String("task_instruction"),
					VerificationInstruction: p.String("verification_instruction"),
					Notes:                   p.String("notes"),
					TaskType:                types.TaskType(p.String("task_type")),
					Priority:                types.Priority(p.String("priority")),
					EstimatedHours:          p.FloatPtr("estimated_hours"),
				}
				if tpl.TaskType == "" {
					tpl.TaskType = types.TypeConcrete
				}
				if tpl.Priority == "" {
					tpl.Priority = types.PriorityMedium
				}
				if err := d.engine.Store().CreateTemplate(ctx, tpl); err != nil {
					return nil, err
				}
				return map[string]any{"template": tpl}, nil
			},
		},
		{
			Name:        "list_templates",
			Description: "List every task template.",
			Params:      nil,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				templates, err := d.engine.Store().ListTemplates(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"templates": templates}, nil
			},
		},
		{
			Name:        "delete_template",
			Description: "Remove a task template.",
			Params:      []ParamSpec{pStrLen("name", true, 1, 100)},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				if err := d.engine.Store().DeleteTemplate(ctx, p.String("name")); err != nil {
					return nil, err
				}
				return nil, nil
			},
		},
		{
			Name:        "create_task_from_template",
			Description: "Instantiate a template; {placeholders} in the title expand to title_arg.",
			Params: []ParamSpec{
				pStrLen("name", true, 1, 100),
				pStr("title_arg", false),
				pInt("project_id", false),
				pAgent(),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				task, err := d.engine.CreateFromTemplate(ctx,
					p.String("name"), p.String("title_arg"), p.String("agent_id"), p.IntPtr("project_id"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"task": task}, nil
			},
		},
		{
			Name:        "create_recurring_task",
			Description: "Define a recurring task; instantiation is always explicit.",
			Params: []ParamSpec{
				pStrLen("name", true, 1, 100),
				pStrLen("title_template", true, validation.MinTitleLen, validation.MaxTitleLen),
				instructionParam(true),
				verificationParam(true),
				taskTypeEnum(false),
				priorityEnum(false),
				pInt("project_id", false),
				pFloat("interval_hours", true, 1),
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				rec := &types.RecurringTask{
					Name:                    p.String("name"),
					TitleTemplate:           p.String("title_template"),
					TaskInstruction:         p.String("task_instruction"),
					VerificationInstruction: p.String("verification_instruction"),
					TaskType:                types.TaskType(p.String("task_type")),
					Priority:                types.Priority(p.String("priority")),
					ProjectID:               p.IntPtr("project_id"),
					IntervalHours:           p.Float("interval_hours"),
					Active:                  true,
				}
				if rec.TaskType == "" {
					rec.TaskType = types.TypeConcrete
				}
				if rec.Priority == "" {
					rec.Priority = types.PriorityMedium
				}
				next := time.Now().UTC().Add(time.Duration(rec.IntervalHours * float64(time.Hour)))
				rec.NextRunAt = &next
				if err := d.engine.Store().CreateRecurring(ctx, rec); err != nil {
					return nil, err
				}
				return map[string]any{"recurring": rec}, nil
			},
		},
		{
			Name:        "list_recurring_tasks",
			Description: "List recurring definitions.",
			Params:      []ParamSpec{pBool("active_only")},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				recs, err := d.engine.Store().ListRecurring(ctx, p.Bool("active_only"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"recurring": recs}, nil
			},
		},
		{
			Name:        "set_recurring_active",
			Description: "Pause or resume a recurring definition.",
			Params: []ParamSpec{
				pInt("recurring_id", true),
				{Name: "active", Type: TypeBool, Required: true},
			},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				if err := d.engine.Store().SetRecurringActive(ctx, p.Int("recurring_id"), p.Bool("active")); err != nil {
					return nil, err
				}
				return nil, nil
			},
		},
		{
			Name:        "instantiate_recurring_task",
			Description: "Create the next instance of a recurring definition and advance its schedule.",
			Params:      []ParamSpec{pInt("recurring_id", true), pAgent()},
			Handler: func(ctx context.Context, d *Dispatcher, p Params) (any, error) {
				task, err := d.engine.InstantiateRecurring(ctx, p.Int("recurring_id"), p.String("agent_id"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"task": task}, nil
			},
		},
	}
}
