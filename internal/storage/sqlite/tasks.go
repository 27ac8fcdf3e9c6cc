package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
)

// CreateTask inserts the task, writes its creation ChangeEntry and takes
// version snapshot 1, all in one transaction.
func (s *Store) CreateTask(ctx context.Context, task *types.Task, actor string) error {
	return s.RunInTransaction(ctx, func(t storage.Transaction) error {
		return t.CreateTask(ctx, task, actor)
	})
}

func (t *tx) CreateTask(ctx context.Context, task *types.Task, actor string) error {
	return t.s.createTask(ctx, t.conn, task, actor)
}

func (s *Store) createTask(ctx context.Context, q queryer, task *types.Task, actor string) error {
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = task.CreatedAt
	if task.TaskStatus == "" {
		task.TaskStatus = types.StatusAvailable
	}
	if task.VerificationStatus == "" {
		task.VerificationStatus = types.VerificationUnverified
	}
	if task.CreatedBy == "" {
		task.CreatedBy = actor
	}

	var projectID any
	if task.ProjectID != nil {
		projectID = *task.ProjectID
	}
	var assignedAgent any
	if task.AssignedAgent != "" {
		assignedAgent = task.AssignedAgent
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO tasks (
			project_id, task_type, priority, title,
			task_instruction, verification_instruction, notes,
			assigned_agent, assigned_at, task_status, verification_status,
			estimated_hours, actual_hours, due_date,
			created_at, created_by, updated_at, completed_at,
			github_issue_url, github_pr_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		projectID, task.TaskType, task.Priority, task.Title,
		task.TaskInstruction, task.VerificationInstruction, task.Notes,
		assignedAgent, fmtTimePtr(task.AssignedAt), task.TaskStatus, task.VerificationStatus,
		nullFloat(task.EstimatedHours), nullFloat(task.ActualHours), fmtTimePtr(task.DueDate),
		fmtTime(task.CreatedAt), task.CreatedBy, fmtTime(task.UpdatedAt), fmtTimePtr(task.CompletedAt),
		task.GithubIssueURL, task.GithubPRURL,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted task id: %w", err)
	}
	task.ID = id

	changes := []*types.ChangeEntry{{
		TaskID:     id,
		AgentID:    actor,
		ChangeType: types.ChangeCreate,
		FieldName:  "task",
		NewValue:   task.Title,
		CreatedAt:  task.CreatedAt,
	}}
	if err := s.appendChanges(ctx, q, changes); err != nil {
		return err
	}

	if _, err := s.snapshotVersion(ctx, q, task); err != nil {
		return err
	}
	return nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// GetTask fetches one task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (*types.Task, error) {
	return s.getTask(ctx, s.db, id)
}

func (t *tx) GetTask(ctx context.Context, id int64) (*types.Task, error) {
	return t.s.getTask(ctx, t.conn, id)
}

// GetTaskForUpdate is GetTask on the transaction's own connection, so the
// read observes earlier writes in the same transaction.
func (t *tx) GetTaskForUpdate(ctx context.Context, id int64) (*types.Task, error) {
	return t.s.getTask(ctx, t.conn, id)
}

func (s *Store) getTask(ctx context.Context, q queryer, id int64) (*types.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFoundf("task %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}
	return task, nil
}

// GetTasks fetches a batch of tasks by id, preserving the requested order.
func (s *Store) GetTasks(ctx context.Context, ids []int64) ([]*types.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*types.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}
	ordered := make([]*types.Task, 0, len(tasks))
	for _, id := range ids {
		if task, ok := byID[id]; ok {
			ordered = append(ordered, task)
		}
	}
	return ordered, nil
}

// ReserveTask is the guarded reservation UPDATE. It succeeds only when
// the row is still available at execution time, which decides contested
// reservations inside the single writer transaction.
func (t *tx) ReserveTask(ctx context.Context, id int64, agentID string, now time.Time) (bool, error) {
	res, err := t.conn.ExecContext(ctx, `
		UPDATE tasks
		SET assigned_agent = ?, assigned_at = ?, task_status = ?, updated_at = ?
		WHERE id = ? AND task_status = ?`,
		agentID, fmtTime(now), types.StatusInProgress, fmtTime(now),
		id, types.StatusAvailable,
	)
	if err != nil {
		return false, fmt.Errorf("failed to reserve task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read reservation result: %w", err)
	}
	return n == 1, nil
}

// SetTaskState writes the task's mutable columns, appends the supplied
// change entries and takes a version snapshot — one commit for all three.
func (t *tx) SetTaskState(ctx context.Context, task *types.Task, actor string, changes []*types.ChangeEntry) error {
	return t.s.setTaskState(ctx, t.conn, task, actor, changes)
}

func (s *Store) setTaskState(ctx context.Context, q queryer, task *types.Task, actor string, changes []*types.ChangeEntry) error {
	task.UpdatedAt = time.Now().UTC()

	var assignedAgent any
	if task.AssignedAgent != "" {
		assignedAgent = task.AssignedAgent
	}

	res, err := q.ExecContext(ctx, `
		UPDATE tasks SET
			task_status = ?, verification_status = ?,
			assigned_agent = ?, assigned_at = ?,
			actual_hours = ?, notes = ?, completed_at = ?,
			github_issue_url = ?, github_pr_url = ?,
			stale_unlocked_at = ?, stale_previous_agent = ?, stale_reason = ?,
			updated_at = ?
		WHERE id = ?`,
		task.TaskStatus, task.VerificationStatus,
		assignedAgent, fmtTimePtr(task.AssignedAt),
		nullFloat(task.ActualHours), task.Notes, fmtTimePtr(task.CompletedAt),
		task.GithubIssueURL, task.GithubPRURL,
		fmtTimePtr(task.StaleUnlockedAt), task.StalePreviousAgent, task.StaleReason,
		fmtTime(task.UpdatedAt), task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task %d: %w", task.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	} else if n == 0 {
		return types.NotFoundf("task %d does not exist", task.ID)
	}

	if err := s.appendChanges(ctx, q, changes); err != nil {
		return err
	}
	if _, err := s.snapshotVersion(ctx, q, task); err != nil {
		return err
	}
	return nil
}

// UpdateTaskFields applies an administrative patch, recording one
// ChangeEntry per differing field and snapshotting the result.
func (s *Store) UpdateTaskFields(ctx context.Context, id int64, patch *storage.TaskPatch, actor string) error {
	return s.RunInTransaction(ctx, func(t storage.Transaction) error {
		return t.UpdateTaskFields(ctx, id, patch, actor)
	})
}

func (t *tx) UpdateTaskFields(ctx context.Context, id int64, patch *storage.TaskPatch, actor string) error {
	return t.s.updateTaskFields(ctx, t.conn, id, patch, actor)
}

func (s *Store) updateTaskFields(ctx context.Context, q queryer, id int64, patch *storage.TaskPatch, actor string) error {
	task, err := s.getTask(ctx, q, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var changes []*types.ChangeEntry
	record := func(field, oldValue, newValue string) {
		changes = append(changes, &types.ChangeEntry{
			TaskID:     id,
			AgentID:    actor,
			ChangeType: types.ChangeUpdate,
			FieldName:  field,
			OldValue:   oldValue,
			NewValue:   newValue,
			CreatedAt:  now,
		})
	}

	if patch.Title != nil && *patch.Title != task.Title {
		record("title", task.Title, *patch.Title)
		task.Title = *patch.Title
	}
	if patch.TaskInstruction != nil && *patch.TaskInstruction != task.TaskInstruction {
		record("task_instruction", task.TaskInstruction, *patch.TaskInstruction)
		task.TaskInstruction = *patch.TaskInstruction
	}
	if patch.VerificationInstruction != nil && *patch.VerificationInstruction != task.VerificationInstruction {
		record("verification_instruction", task.VerificationInstruction, *patch.VerificationInstruction)
		task.VerificationInstruction = *patch.VerificationInstruction
	}
	if patch.Notes != nil && *patch.Notes != task.Notes {
		record("notes", task.Notes, *patch.Notes)
		task.Notes = *patch.Notes
	}
	if patch.Priority != nil && *patch.Priority != task.Priority {
		record("priority", string(task.Priority), string(*patch.Priority))
		task.Priority = *patch.Priority
	}
	if patch.TaskType != nil && *patch.TaskType != task.TaskType {
		record("task_type", string(task.TaskType), string(*patch.TaskType))
		task.TaskType = *patch.TaskType
	}
	if patch.ClearDueDate {
		if task.DueDate != nil {
			record("due_date", fmtTime(*task.DueDate), "")
			task.DueDate = nil
		}
	} else if patch.DueDate != nil {
		old := ""
		if task.DueDate != nil {
			old = fmtTime(*task.DueDate)
		}
		if old != fmtTime(*patch.DueDate) {
			record("due_date", old, fmtTime(*patch.DueDate))
			task.DueDate = patch.DueDate
		}
	}
	if patch.EstimatedHours != nil {
		old := ""
		if task.EstimatedHours != nil {
			old = strconv.FormatFloat(*task.EstimatedHours, 'f', -1, 64)
		}
		if task.EstimatedHours == nil || *task.EstimatedHours != *patch.EstimatedHours {
			record("estimated_hours", old, strconv.FormatFloat(*patch.EstimatedHours, 'f', -1, 64))
			task.EstimatedHours = patch.EstimatedHours
		}
	}
	if patch.ClearProject {
		if task.ProjectID != nil {
			record("project_id", strconv.FormatInt(*task.ProjectID, 10), "")
			task.ProjectID = nil
		}
	} else if patch.ProjectID != nil {
		old := ""
		if task.ProjectID != nil {
			old = strconv.FormatInt(*task.ProjectID, 10)
		}
		if task.ProjectID == nil || *task.ProjectID != *patch.ProjectID {
			record("project_id", old, strconv.FormatInt(*patch.ProjectID, 10))
			task.ProjectID = patch.ProjectID
		}
	}
	if patch.GithubIssueURL != nil && *patch.GithubIssueURL != task.GithubIssueURL {
		record("github_issue_url", task.GithubIssueURL, *patch.GithubIssueURL)
		task.GithubIssueURL = *patch.GithubIssueURL
	}
	if patch.GithubPRURL != nil && *patch.GithubPRURL != task.GithubPRURL {
		record("github_pr_url", task.GithubPRURL, *patch.GithubPRURL)
		task.GithubPRURL = *patch.GithubPRURL
	}

	if len(changes) == 0 {
		return nil
	}

	task.UpdatedAt = now
	var projectID any
	if task.ProjectID != nil {
		projectID = *task.ProjectID
	}
	_, err = q.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, task_instruction = ?, verification_instruction = ?,
			notes = ?, priority = ?, task_type = ?, due_date = ?,
			estimated_hours = ?, project_id = ?,
			github_issue_url = ?, github_pr_url = ?, updated_at = ?
		WHERE id = ?`,
		task.Title, task.TaskInstruction, task.VerificationInstruction,
		task.Notes, task.Priority, task.TaskType, fmtTimePtr(task.DueDate),
		nullFloat(task.EstimatedHours), projectID,
		task.GithubIssueURL, task.GithubPRURL, fmtTime(task.UpdatedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update task %d fields: %w", id, err)
	}

	if err := s.appendChanges(ctx, q, changes); err != nil {
		return err
	}
	if _, err := s.snapshotVersion(ctx, q, task); err != nil {
		return err
	}
	return nil
}

// DeleteTask removes the task row. Relationships, tags and comments
// cascade; change entries, updates and versions are retained, and the
// deletion itself is the task's final ChangeEntry.
func (s *Store) DeleteTask(ctx context.Context, id int64, actor string) error {
	return s.RunInTransaction(ctx, func(t storage.Transaction) error {
		return t.DeleteTask(ctx, id, actor)
	})
}

func (t *tx) DeleteTask(ctx context.Context, id int64, actor string) error {
	return t.s.deleteTask(ctx, t.conn, id, actor)
}

func (s *Store) deleteTask(ctx context.Context, q queryer, id int64, actor string) error {
	task, err := s.getTask(ctx, q, id)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete task %d: %w", id, err)
	}

	return s.appendChanges(ctx, q, []*types.ChangeEntry{{
		TaskID:     id,
		AgentID:    actor,
		ChangeType: types.ChangeDelete,
		FieldName:  "task",
		OldValue:   task.Title,
		CreatedAt:  time.Now().UTC(),
	}})
}
