package engine

import (
	"context"

	"github.com/taskdeck/taskdeck/internal/events"
	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/validation"
)

// UpdateTask applies an administrative field patch with the usual
// audit and version discipline.
func (e *Engine) UpdateTask(ctx context.Context, taskID int64, agentID string, patch *storage.TaskPatch) (*types.Task, error) {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return nil, err
	}
	if patch.Title != nil {
		if err := validation.ValidateTitle(&types.Task{Title: *patch.Title}); err != nil {
			return nil, err
		}
	}
	if patch.TaskInstruction != nil {
		if err := validation.ValidateInstruction(&types.Task{TaskInstruction: *patch.TaskInstruction}); err != nil {
			return nil, err
		}
	}
	if patch.VerificationInstruction != nil {
		if err := validation.ValidateVerification(&types.Task{VerificationInstruction: *patch.VerificationInstruction}); err != nil {
			return nil, err
		}
	}
	if patch.Priority != nil && !types.ValidPriority(*patch.Priority) {
		return nil, types.Validationf("unknown priority %q", *patch.Priority)
	}
	if patch.TaskType != nil && !types.ValidTaskType(*patch.TaskType) {
		return nil, types.Validationf("unknown task_type %q", *patch.TaskType)
	}
	if patch.EstimatedHours != nil {
		if err := validation.ValidateHoursValue("estimated_hours", *patch.EstimatedHours); err != nil {
			return nil, err
		}
	}
	if patch.ProjectID != nil {
		if _, err := e.store.GetProject(ctx, *patch.ProjectID); err != nil {
			return nil, err
		}
	}

	if err := e.store.UpdateTaskFields(ctx, taskID, patch, agentID); err != nil {
		return nil, err
	}

	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	e.publish(events.TaskUpdated, taskID, agentID, nil)
	return task, nil
}

// DeleteTask removes a task. Its audit trail, updates and versions
// survive; relationships, tags and comments cascade away.
func (e *Engine) DeleteTask(ctx context.Context, taskID int64, agentID string) error {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return err
	}
	if err := e.store.DeleteTask(ctx, taskID, agentID); err != nil {
		return err
	}
	e.publish(events.TaskDeleted, taskID, agentID, nil)
	return nil
}

// CreateRelationship adds an edge and publishes relationship.created.
func (e *Engine) CreateRelationship(ctx context.Context, parentID, childID int64, relType types.RelationshipType, agentID string) (*types.Relationship, error) {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return nil, err
	}
	if !types.ValidRelationshipType(relType) {
		return nil, types.Validationf("unknown relationship_type %q", relType)
	}

	rel := &types.Relationship{
		ParentTaskID:     parentID,
		ChildTaskID:      childID,
		RelationshipType: relType,
	}
	if err := e.store.CreateRelationship(ctx, rel, agentID); err != nil {
		return nil, err
	}

	e.publish(events.RelationshipCreated, childID, agentID, map[string]any{
		"parent_task_id":    parentID,
		"child_task_id":     childID,
		"relationship_type": string(relType),
	})
	return rel, nil
}

// DeleteRelationship removes an edge.
func (e *Engine) DeleteRelationship(ctx context.Context, parentID, childID int64, relType types.RelationshipType, agentID string) error {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return err
	}
	return e.store.DeleteRelationship(ctx, parentID, childID, relType, agentID)
}

// AssignTag attaches a tag and publishes tag.assigned.
func (e *Engine) AssignTag(ctx context.Context, taskID int64, tag, agentID string) error {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return err
	}
	if tag == "" {
		return types.Validationf("tag is required")
	}
	if err := e.store.AssignTag(ctx, taskID, tag, agentID); err != nil {
		return err
	}
	e.publish(events.TagAssigned, taskID, agentID, map[string]any{"tag": tag})
	return nil
}

// RemoveTag detaches a tag and publishes tag.removed.
func (e *Engine) RemoveTag(ctx context.Context, taskID int64, tag, agentID string) error {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return err
	}
	if err := e.store.RemoveTag(ctx, taskID, tag, agentID); err != nil {
		return err
	}
	e.publish(events.TagRemoved, taskID, agentID, map[string]any{"tag": tag})
	return nil
}

// CreateComment adds a comment or reply and publishes comment.created.
func (e *Engine) CreateComment(ctx context.Context, comment *types.Comment) (*types.Comment, error) {
	if err := validation.ValidateAgentID(comment.AgentID); err != nil {
		return nil, err
	}
	if comment.Content == "" {
		return nil, types.Validationf("content is required")
	}
	if err := e.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	e.publish(events.CommentCreated, comment.TaskID, comment.AgentID, map[string]any{
		"comment_id": comment.ID,
	})
	return comment, nil
}

// UpdateComment edits a comment. Only the author may edit.
func (e *Engine) UpdateComment(ctx context.Context, commentID int64, agentID, content string, mentions []string) (*types.Comment, error) {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return nil, err
	}
	comment, err := e.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AgentID != agentID {
		return nil, types.NotAssignedf("comment %d belongs to %s, not %s", commentID, comment.AgentID, agentID)
	}
	if err := e.store.UpdateComment(ctx, commentID, content, mentions); err != nil {
		return nil, err
	}
	return e.store.GetComment(ctx, commentID)
}

// DeleteComment removes a comment and its replies. Only the author may
// delete.
func (e *Engine) DeleteComment(ctx context.Context, commentID int64, agentID string) error {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return err
	}
	comment, err := e.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AgentID != agentID {
		return types.NotAssignedf("comment %d belongs to %s, not %s", commentID, comment.AgentID, agentID)
	}
	return e.store.DeleteComment(ctx, commentID)
}

// GetTaskContext assembles the full working context for a task: the
// task, its project, subtask ancestry, narrative updates, recent
// non-update changes, and stale info when the sweeper touched it.
func (e *Engine) GetTaskContext(ctx context.Context, taskID int64) (*types.TaskContext, error) {
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	tc := &types.TaskContext{Task: task}

	if task.ProjectID != nil {
		project, err := e.store.GetProject(ctx, *task.ProjectID)
		if err == nil {
			tc.Project = project
		} else if !types.IsKind(err, types.KindNotFound) {
			return nil, err
		}
	}

	if tc.Ancestry, err = e.store.GetAncestry(ctx, taskID); err != nil {
		return nil, err
	}
	if tc.Updates, err = e.store.GetUpdates(ctx, taskID, 50); err != nil {
		return nil, err
	}
	if tc.RecentChanges, err = e.store.GetChanges(ctx, taskID, 20); err != nil {
		return nil, err
	}

	if task.StaleUnlockedAt != nil {
		tc.StaleInfo = &types.StaleWarning{
			IsStale:       true,
			PreviousAgent: task.StalePreviousAgent,
			UnlockedAt:    *task.StaleUnlockedAt,
			Reason:        task.StaleReason,
		}
	}
	return tc, nil
}

// DiffVersions loads two snapshots of a task and diffs them field by
// field. The versions must be ordered: v2 must be newer than v1.
func (e *Engine) DiffVersions(ctx context.Context, taskID int64, v1, v2 int) ([]types.FieldDiff, error) {
	if v2 <= v1 {
		return nil, types.Validationf("v2 must be greater than v1, got v1=%d v2=%d", v1, v2)
	}
	a, err := e.store.GetVersion(ctx, taskID, v1)
	if err != nil {
		return nil, err
	}
	b, err := e.store.GetVersion(ctx, taskID, v2)
	if err != nil {
		return nil, err
	}
	return diffVersions(a, b)
}
