package engine

import (
	"context"
	"regexp"
	"time"

	"github.com/taskdeck/taskdeck/internal/events"
	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/validation"
)

// CreateTaskRequest carries everything create_task accepts. ParentTaskID
// attaches the new task to a parent along the edge named by
// RelationshipType; DependsOn creates blocked_by edges from the named
// tasks.
type CreateTaskRequest struct {
	Title                   string
	TaskInstruction         string
	VerificationInstruction string
	Notes                   string
	TaskType                types.TaskType
	Priority                types.Priority
	ProjectID               *int64
	ParentTaskID            *int64
	RelationshipType        types.RelationshipType
	DependsOn               []int64
	Tags                    []string
	DueDate                 *time.Time
	EstimatedHours          *float64
	CreatedBy               string
}

// CreateTask validates and creates a task with its initial edges and
// tags in one transaction, then publishes task.created.
func (e *Engine) CreateTask(ctx context.Context, req CreateTaskRequest) (*types.Task, error) {
	if req.TaskType == "" {
		req.TaskType = types.TypeConcrete
	}
	if req.Priority == "" {
		req.Priority = types.PriorityMedium
	}

	task := &types.Task{
		Title:                   req.Title,
		TaskInstruction:         req.TaskInstruction,
		VerificationInstruction: req.VerificationInstruction,
		Notes:                   req.Notes,
		TaskType:                req.TaskType,
		Priority:                req.Priority,
		ProjectID:               req.ProjectID,
		DueDate:                 req.DueDate,
		EstimatedHours:          req.EstimatedHours,
		CreatedBy:               req.CreatedBy,
		TaskStatus:              types.StatusAvailable,
		VerificationStatus:      types.VerificationUnverified,
	}
	if err := validation.NewTask(task); err != nil {
		return nil, err
	}
	if err := validation.ValidateAgentID(req.CreatedBy); err != nil {
		return nil, err
	}
	if req.ParentTaskID != nil {
		if req.RelationshipType == "" {
			return nil, types.Validationf("relationship_type is required when parent_task_id is set")
		}
		if !types.ValidRelationshipType(req.RelationshipType) {
			return nil, types.Validationf("unknown relationship_type %q", req.RelationshipType)
		}
	} else if req.RelationshipType != "" {
		return nil, types.Validationf("relationship_type requires parent_task_id")
	}

	if req.ProjectID != nil {
		if _, err := e.store.GetProject(ctx, *req.ProjectID); err != nil {
			return nil, err
		}
	}

	var edges []*types.Relationship
	err := e.store.RunInTransaction(ctx, func(t storage.Transaction) error {
		if err := t.CreateTask(ctx, task, req.CreatedBy); err != nil {
			return err
		}
		if req.ParentTaskID != nil {
			rel := &types.Relationship{
				ParentTaskID:     *req.ParentTaskID,
				ChildTaskID:      task.ID,
				RelationshipType: req.RelationshipType,
			}
			if err := t.CreateRelationship(ctx, rel, req.CreatedBy); err != nil {
				return err
			}
			edges = append(edges, rel)
		}
		for _, dep := range req.DependsOn {
			rel := &types.Relationship{
				ParentTaskID:     dep,
				ChildTaskID:      task.ID,
				RelationshipType: types.RelBlockedBy,
			}
			if err := t.CreateRelationship(ctx, rel, req.CreatedBy); err != nil {
				return err
			}
			edges = append(edges, rel)
		}
		for _, tag := range req.Tags {
			if err := t.AssignTag(ctx, task.ID, tag, req.CreatedBy); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(events.TaskCreated, task.ID, req.CreatedBy, map[string]any{
		"title":     task.Title,
		"task_type": string(task.TaskType),
		"priority":  string(task.Priority),
	})
	for _, rel := range edges {
		e.publish(events.RelationshipCreated, rel.ChildTaskID, req.CreatedBy, map[string]any{
			"parent_task_id":    rel.ParentTaskID,
			"child_task_id":     rel.ChildTaskID,
			"relationship_type": string(rel.RelationshipType),
		})
	}
	for _, tag := range req.Tags {
		e.publish(events.TagAssigned, task.ID, req.CreatedBy, map[string]any{"tag": tag})
	}

	return task, nil
}

// CreateFromTemplate instantiates a template into a task. The title is
// the template's title_template with {name} replaced by titleArg.
func (e *Engine) CreateFromTemplate(ctx context.Context, templateName, titleArg, createdBy string, projectID *int64) (*types.Task, error) {
	tpl, err := e.store.GetTemplate(ctx, templateName)
	if err != nil {
		return nil, err
	}
	title := expandTitle(tpl.TitleTemplate, titleArg)
	return e.CreateTask(ctx, CreateTaskRequest{
		Title:                   title,
		TaskInstruction:         tpl.TaskInstruction,
		VerificationInstruction: tpl.VerificationInstruction,
		Notes:                   tpl.Notes,
		TaskType:                tpl.TaskType,
		Priority:                tpl.Priority,
		ProjectID:               projectID,
		EstimatedHours:          tpl.EstimatedHours,
		CreatedBy:               createdBy,
	})
}

// InstantiateRecurring explicitly creates the next instance of a
// recurring definition and advances its schedule.
func (e *Engine) InstantiateRecurring(ctx context.Context, recurringID int64, createdBy string) (*types.Task, error) {
	rec, err := e.store.GetRecurring(ctx, recurringID)
	if err != nil {
		return nil, err
	}
	if !rec.Active {
		return nil, types.Validationf("recurring task %q is inactive", rec.Name)
	}

	now := time.Now().UTC()
	task, err := e.CreateTask(ctx, CreateTaskRequest{
		Title:                   expandTitle(rec.TitleTemplate, now.Format("2006-01-02")),
		TaskInstruction:         rec.TaskInstruction,
		VerificationInstruction: rec.VerificationInstruction,
		TaskType:                rec.TaskType,
		Priority:                rec.Priority,
		ProjectID:               rec.ProjectID,
		CreatedBy:               createdBy,
	})
	if err != nil {
		return nil, err
	}
	if err := e.store.MarkRecurringInstantiated(ctx, recurringID, now); err != nil {
		return nil, err
	}
	return task, nil
}

var titlePlaceholder = regexp.MustCompile(`\{[^}]*\}`)

func expandTitle(template, arg string) string {
	return titlePlaceholder.ReplaceAllString(template, arg)
}
