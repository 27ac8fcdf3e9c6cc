package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

// versionPayload is the canonical snapshot shape. Only persistent task
// fields participate; transient stale markers are excluded so re-reserve
// noise does not inflate diffs.
type versionPayload struct {
	ProjectID               *int64     `json:"project_id"`
	TaskType                string     `json:"task_type"`
	Priority                string     `json:"priority"`
	Title                   string     `json:"title"`
	TaskInstruction         string     `json:"task_instruction"`
	VerificationInstruction string     `json:"verification_instruction"`
	Notes                   string     `json:"notes"`
	AssignedAgent           string     `json:"assigned_agent"`
	AssignedAt              *time.Time `json:"assigned_at"`
	TaskStatus              string     `json:"task_status"`
	VerificationStatus      string     `json:"verification_status"`
	EstimatedHours          *float64   `json:"estimated_hours"`
	ActualHours             *float64   `json:"actual_hours"`
	DueDate                 *time.Time `json:"due_date"`
	CompletedAt             *time.Time `json:"completed_at"`
	GithubIssueURL          string     `json:"github_issue_url"`
	GithubPRURL             string     `json:"github_pr_url"`
}

func snapshotPayload(task *types.Task) ([]byte, error) {
	p := versionPayload{
		ProjectID:               task.ProjectID,
		TaskType:                string(task.TaskType),
		Priority:                string(task.Priority),
		Title:                   task.Title,
		TaskInstruction:         task.TaskInstruction,
		VerificationInstruction: task.VerificationInstruction,
		Notes:                   task.Notes,
		AssignedAgent:           task.AssignedAgent,
		AssignedAt:              task.AssignedAt,
		TaskStatus:              string(task.TaskStatus),
		VerificationStatus:      string(task.VerificationStatus),
		EstimatedHours:          task.EstimatedHours,
		ActualHours:             task.ActualHours,
		DueDate:                 task.DueDate,
		CompletedAt:             task.CompletedAt,
		GithubIssueURL:          task.GithubIssueURL,
		GithubPRURL:             task.GithubPRURL,
	}
	return json.Marshal(p)
}

func (t *tx) SnapshotVersion(ctx context.Context, task *types.Task) (int, error) {
	return t.s.snapshotVersion(ctx, t.conn, task)
}

func (s *Store) snapshotVersion(ctx context.Context, q queryer, task *types.Task) (int, error) {
	payload, err := snapshotPayload(task)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal version payload: %w", err)
	}

	var current sql.NullInt64
	if err := q.QueryRowContext(ctx,
		`SELECT MAX(version) FROM task_versions WHERE task_id = ?`, task.ID,
	).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read current version: %w", err)
	}
	next := int(current.Int64) + 1

	_, err = q.ExecContext(ctx, `
		INSERT INTO task_versions (task_id, version, payload, created_at)
		VALUES (?, ?, ?, ?)`,
		task.ID, next, string(payload), fmtTime(time.Now().UTC()),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert version %d for task %d: %w", next, task.ID, err)
	}
	return next, nil
}

// ListVersions returns a task's snapshots, newest first.
func (s *Store) ListVersions(ctx context.Context, taskID int64) ([]*types.TaskVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, version, payload, created_at
		FROM task_versions
		WHERE task_id = ?
		ORDER BY version DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var versions []*types.TaskVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}
	return versions, nil
}

// GetVersion fetches one numbered snapshot.
func (s *Store) GetVersion(ctx context.Context, taskID int64, version int) (*types.TaskVersion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, version, payload, created_at
		FROM task_versions
		WHERE task_id = ? AND version = ?`, taskID, version)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFoundf("task %d has no version %d", taskID, version)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func scanVersion(row rowScanner) (*types.TaskVersion, error) {
	var (
		v         types.TaskVersion
		payload   string
		createdAt string
	)
	if err := row.Scan(&v.ID, &v.TaskID, &v.Version, &payload, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan version: %w", err)
	}
	v.Payload = []byte(payload)
	var err error
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse version timestamp: %w", err)
	}
	return &v, nil
}

