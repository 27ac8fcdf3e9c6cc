package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/taskdeck/taskdeck/internal/events"
	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/validation"
)

// ReserveResult is the reserve response: the reserved task plus a stale
// warning when the sweeper previously released it from another agent.
type ReserveResult struct {
	Task         *types.Task         `json:"task"`
	StaleWarning *types.StaleWarning `json:"stale_warning,omitempty"`
}

// Reserve atomically claims an available, unblocked task for an agent.
// The guarded UPDATE inside the writer transaction decides contested
// reservations: exactly one caller wins, the rest get Unavailable.
func (e *Engine) Reserve(ctx context.Context, taskID int64, agentID string) (*ReserveResult, error) {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return nil, err
	}

	var result ReserveResult
	err := e.store.RunInTransaction(ctx, func(t storage.Transaction) error {
		task, err := t.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		switch task.TaskStatus {
		case types.StatusAvailable:
		case types.StatusInProgress:
			return types.Unavailablef("task %d is already reserved by %s", taskID, task.AssignedAgent)
		default:
			return types.Unavailablef("task %d is %s, not available", taskID, task.TaskStatus)
		}

		blocked, err := t.BlockedTaskIDs(ctx, []int64{taskID})
		if err != nil {
			return err
		}
		if blocked[taskID] {
			return types.Unavailablef("task %d is blocked by incomplete dependencies", taskID)
		}

		now := time.Now().UTC()
		ok, err := t.ReserveTask(ctx, taskID, agentID, now)
		if err != nil {
			return err
		}
		if !ok {
			return types.Unavailablef("task %d was reserved by another agent", taskID)
		}

		if err := t.AppendChanges(ctx, []*types.ChangeEntry{
			{TaskID: taskID, AgentID: agentID, ChangeType: types.ChangeUpdate,
				FieldName: "task_status", OldValue: string(types.StatusAvailable), NewValue: string(types.StatusInProgress), CreatedAt: now},
			{TaskID: taskID, AgentID: agentID, ChangeType: types.ChangeUpdate,
				FieldName: "assigned_agent", NewValue: agentID, CreatedAt: now},
		}); err != nil {
			return err
		}

		reserved, err := t.GetTaskForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if _, err := t.SnapshotVersion(ctx, reserved); err != nil {
			return err
		}

		result.Task = reserved
		if reserved.StaleUnlockedAt != nil {
			result.StaleWarning = &types.StaleWarning{
				IsStale:       true,
				PreviousAgent: reserved.StalePreviousAgent,
				UnlockedAt:    *reserved.StaleUnlockedAt,
				Reason:        reserved.StaleReason,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(events.TaskReserved, taskID, agentID, nil)
	return &result, nil
}

// CompleteRequest carries complete's optional arguments. Followup, when
// set, creates a linked follow-on task in the same call.
type CompleteRequest struct {
	TaskID          int64
	AgentID         string
	ActualHours     *float64
	CompletionNotes string
	Followup        *CreateTaskRequest
}

// CompleteResult reports what complete did: a fresh completion, or a
// verification when the task was already complete but unverified.
type CompleteResult struct {
	Task     *types.Task `json:"task"`
	Verified bool        `json:"verified"`
	Followup *types.Task `json:"followup,omitempty"`
}

// Complete finishes a task held by the calling agent. Calling complete
// on a task that is already complete but unverified acts as verify.
func (e *Engine) Complete(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	if err := validation.ValidateAgentID(req.AgentID); err != nil {
		return nil, err
	}
	if req.ActualHours != nil {
		if err := validation.ValidateHoursValue("actual_hours", *req.ActualHours); err != nil {
			return nil, err
		}
	}

	var result CompleteResult
	err := e.store.RunInTransaction(ctx, func(t storage.Transaction) error {
		task, err := t.GetTask(ctx, req.TaskID)
		if err != nil {
			return err
		}

		switch task.TaskStatus {
		case types.StatusComplete:
			if task.VerificationStatus == types.VerificationVerified {
				return types.InvalidTransitionf("task %d is already complete and verified", req.TaskID)
			}
			// Only the agent that completed the task may verify through
			// complete; standalone verify is open to any agent.
			if task.AssignedAgent != req.AgentID {
				return types.NotAssignedf("task %d is assigned to %s, not %s", req.TaskID, task.AssignedAgent, req.AgentID)
			}
			if err := e.verifyInTx(ctx, t, task, req.AgentID); err != nil {
				return err
			}
			result.Task = task
			result.Verified = true
			return nil

		case types.StatusInProgress:
			if task.AssignedAgent != req.AgentID {
				return types.NotAssignedf("task %d is assigned to %s, not %s", req.TaskID, task.AssignedAgent, req.AgentID)
			}

		default:
			return types.InvalidTransitionf("task %d is %s and cannot be completed", req.TaskID, task.TaskStatus)
		}

		now := time.Now().UTC()
		changes := []*types.ChangeEntry{
			{TaskID: task.ID, AgentID: req.AgentID, ChangeType: types.ChangeUpdate,
				FieldName: "task_status", OldValue: string(types.StatusInProgress), NewValue: string(types.StatusComplete), CreatedAt: now},
		}
		if req.ActualHours != nil {
			old := ""
			if task.ActualHours != nil {
				old = strconv.FormatFloat(*task.ActualHours, 'f', -1, 64)
			}
			changes = append(changes, &types.ChangeEntry{
				TaskID: task.ID, AgentID: req.AgentID, ChangeType: types.ChangeUpdate,
				FieldName: "actual_hours", OldValue: old,
				NewValue: strconv.FormatFloat(*req.ActualHours, 'f', -1, 64), CreatedAt: now,
			})
			task.ActualHours = req.ActualHours
		}

		task.TaskStatus = types.StatusComplete
		task.CompletedAt = &now
		// Completion clears the stale marker left by a prior auto-release.
		task.StaleUnlockedAt = nil
		task.StalePreviousAgent = ""
		task.StaleReason = ""

		if err := t.SetTaskState(ctx, task, req.AgentID, changes); err != nil {
			return err
		}

		if req.CompletionNotes != "" {
			if err := t.AddUpdate(ctx, &types.Update{
				TaskID:     task.ID,
				AgentID:    req.AgentID,
				UpdateType: types.UpdateProgress,
				Content:    req.CompletionNotes,
				CreatedAt:  now,
			}); err != nil {
				return err
			}
		}

		if req.Followup != nil {
			followup, err := e.createFollowupInTx(ctx, t, task, req.Followup, req.AgentID)
			if err != nil {
				return err
			}
			result.Followup = followup
		}

		result.Task = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Verified {
		e.publish(events.TaskVerified, req.TaskID, req.AgentID, nil)
	} else {
		e.publish(events.TaskCompleted, req.TaskID, req.AgentID, nil)
		if result.Followup != nil {
			e.publish(events.TaskCreated, result.Followup.ID, req.AgentID, map[string]any{
				"title": result.Followup.Title,
			})
			e.publish(events.RelationshipCreated, result.Followup.ID, req.AgentID, map[string]any{
				"parent_task_id":    req.TaskID,
				"child_task_id":     result.Followup.ID,
				"relationship_type": string(types.RelFollowup),
			})
		}
	}
	return &result, nil
}

func (e *Engine) createFollowupInTx(ctx context.Context, t storage.Transaction, parent *types.Task, spec *CreateTaskRequest, agentID string) (*types.Task, error) {
	if spec.TaskType == "" {
		spec.TaskType = types.TypeConcrete
	}
	if spec.Priority == "" {
		spec.Priority = parent.Priority
	}
	if spec.CreatedBy == "" {
		spec.CreatedBy = agentID
	}
	followup := &types.Task{
		Title:                   spec.Title,
		TaskInstruction:         spec.TaskInstruction,
		VerificationInstruction: spec.VerificationInstruction,
		Notes:                   spec.Notes,
		TaskType:                spec.TaskType,
		Priority:                spec.Priority,
		ProjectID:               parent.ProjectID,
		DueDate:                 spec.DueDate,
		EstimatedHours:          spec.EstimatedHours,
		CreatedBy:               spec.CreatedBy,
		TaskStatus:              types.StatusAvailable,
		VerificationStatus:      types.VerificationUnverified,
	}
	if err := validation.NewTask(followup); err != nil {
		return nil, err
	}
	if err := t.CreateTask(ctx, followup, spec.CreatedBy); err != nil {
		return nil, err
	}
	rel := &types.Relationship{
		ParentTaskID:     parent.ID,
		ChildTaskID:      followup.ID,
		RelationshipType: types.RelFollowup,
	}
	if err := t.CreateRelationship(ctx, rel, spec.CreatedBy); err != nil {
		return nil, err
	}
	return followup, nil
}

// Verify confirms a completed task's outcome.
func (e *Engine) Verify(ctx context.Context, taskID int64, agentID string) (*types.Task, error) {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return nil, err
	}

	var verified *types.Task
	err := e.store.RunInTransaction(ctx, func(t storage.Transaction) error {
		task, err := t.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if task.TaskStatus != types.StatusComplete {
			return types.InvalidTransitionf("task %d is %s; only complete tasks can be verified", taskID, task.TaskStatus)
		}
		if task.VerificationStatus == types.VerificationVerified {
			return types.InvalidTransitionf("task %d is already verified", taskID)
		}
		if err := e.verifyInTx(ctx, t, task, agentID); err != nil {
			return err
		}
		verified = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(events.TaskVerified, taskID, agentID, nil)
	return verified, nil
}

func (e *Engine) verifyInTx(ctx context.Context, t storage.Transaction, task *types.Task, agentID string) error {
	now := time.Now().UTC()
	task.VerificationStatus = types.VerificationVerified
	return t.SetTaskState(ctx, task, agentID, []*types.ChangeEntry{{
		TaskID: task.ID, AgentID: agentID, ChangeType: types.ChangeUpdate,
		FieldName: "verification_status", OldValue: string(types.VerificationUnverified),
		NewValue: string(types.VerificationVerified), CreatedAt: now,
	}})
}

// Unlock releases an in_progress task back to available. Only the
// holding agent may unlock; Force overrides for administrative recovery.
func (e *Engine) Unlock(ctx context.Context, taskID int64, agentID string, force bool) (*types.Task, error) {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return nil, err
	}

	var unlocked *types.Task
	err := e.store.RunInTransaction(ctx, func(t storage.Transaction) error {
		task, err := e.unlockInTx(ctx, t, taskID, agentID, force)
		if err != nil {
			return err
		}
		unlocked = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(events.TaskUnlocked, taskID, agentID, nil)
	return unlocked, nil
}

func (e *Engine) unlockInTx(ctx context.Context, t storage.Transaction, taskID int64, agentID string, force bool) (*types.Task, error) {
	task, err := t.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.TaskStatus != types.StatusInProgress {
		return nil, types.InvalidTransitionf("task %d is %s, not in_progress", taskID, task.TaskStatus)
	}
	if !force && task.AssignedAgent != agentID {
		return nil, types.NotAssignedf("task %d is assigned to %s, not %s", taskID, task.AssignedAgent, agentID)
	}

	now := time.Now().UTC()
	previousAgent := task.AssignedAgent
	task.TaskStatus = types.StatusAvailable
	task.AssignedAgent = ""
	task.AssignedAt = nil

	err = t.SetTaskState(ctx, task, agentID, []*types.ChangeEntry{
		{TaskID: taskID, AgentID: agentID, ChangeType: types.ChangeUpdate,
			FieldName: "task_status", OldValue: string(types.StatusInProgress), NewValue: string(types.StatusAvailable), CreatedAt: now},
		{TaskID: taskID, AgentID: agentID, ChangeType: types.ChangeUpdate,
			FieldName: "assigned_agent", OldValue: previousAgent, CreatedAt: now},
	})
	if err != nil {
		return nil, err
	}

	update := &types.Update{
		TaskID:     taskID,
		AgentID:    agentID,
		UpdateType: types.UpdateFinding,
		Content:    fmt.Sprintf("reservation by %s released; task returned to available", previousAgent),
		CreatedAt:  now,
	}
	if force && previousAgent != agentID {
		metadata, merr := json.Marshal(map[string]string{
			"reason":         "administrative unlock",
			"previous_agent": previousAgent,
		})
		if merr != nil {
			return nil, fmt.Errorf("failed to encode unlock metadata: %w", merr)
		}
		update.Metadata = metadata
	}
	if err := t.AddUpdate(ctx, update); err != nil {
		return nil, err
	}
	return task, nil
}

// errBulkAborted forces the batch transaction to roll back once every
// id has been evaluated.
var errBulkAborted = errors.New("bulk unlock aborted")

// BulkUnlock releases a batch of tasks in one transaction and returns
// one outcome per id, in input order. The batch is all-or-nothing: every
// id is evaluated, and one ineligible task rolls back every release
// while its outcome carries the reason.
func (e *Engine) BulkUnlock(ctx context.Context, taskIDs []int64, agentID string, force bool) ([]types.BulkOutcome, error) {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return nil, err
	}
	if len(taskIDs) == 0 {
		return nil, types.Validationf("task_ids must not be empty")
	}

	outcomes := make([]types.BulkOutcome, len(taskIDs))
	failed := 0
	err := e.store.RunInTransaction(ctx, func(t storage.Transaction) error {
		for i, id := range taskIDs {
			outcomes[i] = types.BulkOutcome{TaskID: id, OK: true}
			if _, err := e.unlockInTx(ctx, t, id, agentID, force); err != nil {
				outcomes[i].OK = false
				outcomes[i].Error = err.Error()
				failed++
			}
		}
		if failed > 0 {
			return errBulkAborted
		}
		return nil
	})
	if err != nil && !errors.Is(err, errBulkAborted) {
		return nil, err
	}

	if failed == 0 {
		for _, id := range taskIDs {
			e.publish(events.TaskUnlocked, id, agentID, nil)
		}
	}
	return outcomes, nil
}

// AddUpdate appends a narrative update to a task and publishes
// task.updated. Updates never advance the version counter.
func (e *Engine) AddUpdate(ctx context.Context, taskID int64, agentID string, updateType types.UpdateType, content string, metadata []byte) (*types.Update, error) {
	if err := validation.ValidateAgentID(agentID); err != nil {
		return nil, err
	}
	if err := validation.ValidateUpdateType(updateType); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, types.Validationf("content is required")
	}
	if _, err := e.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	update := &types.Update{
		TaskID:     taskID,
		AgentID:    agentID,
		UpdateType: updateType,
		Content:    content,
		Metadata:   metadata,
	}
	if err := e.store.AddUpdate(ctx, update); err != nil {
		return nil, err
	}

	e.publish(events.TaskUpdated, taskID, agentID, map[string]any{
		"update_type": string(updateType),
	})
	return update, nil
}

// ReleaseStale auto-unlocks one expired reservation on the sweeper's
// behalf: the task returns to available, the stale marker is set, and a
// finding Update records what happened — all in one transaction.
func (e *Engine) ReleaseStale(ctx context.Context, taskID int64, actor string) (*types.Task, error) {
	timeout := e.StaleTimeout
	if timeout <= 0 {
		timeout = DefaultStaleTimeout
	}

	var released *types.Task
	err := e.store.RunInTransaction(ctx, func(t storage.Transaction) error {
		task, err := t.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		// Re-check under the write lock: the agent may have finished or
		// unlocked between the sweep scan and this transaction.
		if task.TaskStatus != types.StatusInProgress || task.AssignedAt == nil {
			return types.InvalidTransitionf("task %d is no longer in_progress", taskID)
		}
		now := time.Now().UTC()
		if now.Sub(*task.AssignedAt) < timeout {
			return types.InvalidTransitionf("task %d reservation is no longer stale", taskID)
		}

		previousAgent := task.AssignedAgent
		reason := fmt.Sprintf("reservation by %s exceeded %s without completion", previousAgent, timeout)

		task.TaskStatus = types.StatusAvailable
		task.AssignedAgent = ""
		task.AssignedAt = nil
		task.StaleUnlockedAt = &now
		task.StalePreviousAgent = previousAgent
		task.StaleReason = reason

		err = t.SetTaskState(ctx, task, actor, []*types.ChangeEntry{
			{TaskID: taskID, AgentID: actor, ChangeType: types.ChangeUpdate,
				FieldName: "task_status", OldValue: string(types.StatusInProgress), NewValue: string(types.StatusAvailable), CreatedAt: now},
			{TaskID: taskID, AgentID: actor, ChangeType: types.ChangeUpdate,
				FieldName: "assigned_agent", OldValue: previousAgent, CreatedAt: now},
		})
		if err != nil {
			return err
		}

		if err := t.AddUpdate(ctx, &types.Update{
			TaskID:     taskID,
			AgentID:    actor,
			UpdateType: types.UpdateFinding,
			Content:    reason,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		released = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(events.TaskUnlockedStale, taskID, actor, map[string]any{
		"previous_agent": released.StalePreviousAgent,
	})
	return released, nil
}
