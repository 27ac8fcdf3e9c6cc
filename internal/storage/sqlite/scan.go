package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/taskdeck/taskdeck/internal/types"
)

// taskColumns is the canonical select list for task rows; every scanner
// of full tasks goes through scanTask against this list.
const taskColumns = `t.id, t.project_id, t.task_type, t.priority, t.title,
	t.task_instruction, t.verification_instruction, t.notes,
	t.assigned_agent, t.assigned_at, t.task_status, t.verification_status,
	t.estimated_hours, t.actual_hours, t.due_date,
	t.created_at, t.created_by, t.updated_at, t.completed_at,
	t.github_issue_url, t.github_pr_url,
	t.stale_unlocked_at, t.stale_previous_agent, t.stale_reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*types.Task, error) {
	var (
		task          types.Task
		projectID     sql.NullInt64
		assignedAgent sql.NullString
		assignedAt    sql.NullString
		estimated     sql.NullFloat64
		actual        sql.NullFloat64
		dueDate       sql.NullString
		createdAt     string
		updatedAt     string
		completedAt   sql.NullString
		staleAt       sql.NullString
	)

	err := row.Scan(
		&task.ID, &projectID, &task.TaskType, &task.Priority, &task.Title,
		&task.TaskInstruction, &task.VerificationInstruction, &task.Notes,
		&assignedAgent, &assignedAt, &task.TaskStatus, &task.VerificationStatus,
		&estimated, &actual, &dueDate,
		&createdAt, &task.CreatedBy, &updatedAt, &completedAt,
		&task.GithubIssueURL, &task.GithubPRURL,
		&staleAt, &task.StalePreviousAgent, &task.StaleReason,
	)
	if err != nil {
		return nil, err
	}

	if projectID.Valid {
		task.ProjectID = &projectID.Int64
	}
	if assignedAgent.Valid {
		task.AssignedAgent = assignedAgent.String
	}
	if task.AssignedAt, err = parseNullTime(assignedAt); err != nil {
		return nil, fmt.Errorf("failed to parse assigned_at: %w", err)
	}
	if estimated.Valid {
		task.EstimatedHours = &estimated.Float64
	}
	if actual.Valid {
		task.ActualHours = &actual.Float64
	}
	if task.DueDate, err = parseNullTime(dueDate); err != nil {
		return nil, fmt.Errorf("failed to parse due_date: %w", err)
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if task.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("failed to parse completed_at: %w", err)
	}
	if task.StaleUnlockedAt, err = parseNullTime(staleAt); err != nil {
		return nil, fmt.Errorf("failed to parse stale_unlocked_at: %w", err)
	}

	return &task, nil
}

func collectTasks(rows *sql.Rows) ([]*types.Task, error) {
	defer rows.Close()
	var tasks []*types.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// mentions are stored as a JSON array in a TEXT column.
func encodeMentions(mentions []string) string {
	if len(mentions) == 0 {
		return ""
	}
	data, _ := json.Marshal(mentions)
	return string(data)
}

func decodeMentions(s string) []string {
	if s == "" {
		return nil
	}
	var mentions []string
	if err := json.Unmarshal([]byte(s), &mentions); err != nil {
		return nil
	}
	return mentions
}
