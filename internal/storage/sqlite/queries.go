package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

// buildTaskWhere renders a TaskFilter into a WHERE fragment plus args.
func buildTaskWhere(filter types.TaskFilter) (string, []any) {
	where := "1=1"
	var args []any

	if filter.Status != nil {
		where += " AND t.task_status = ?"
		args = append(args, *filter.Status)
	}
	if filter.TaskType != nil {
		where += " AND t.task_type = ?"
		args = append(args, *filter.TaskType)
	}
	if filter.Priority != nil {
		where += " AND t.priority = ?"
		args = append(args, *filter.Priority)
	}
	if filter.ProjectID != nil {
		where += " AND t.project_id = ?"
		args = append(args, *filter.ProjectID)
	}
	if filter.AssignedAgent != nil {
		where += " AND t.assigned_agent = ?"
		args = append(args, *filter.AssignedAgent)
	}
	if filter.Verification != nil {
		where += " AND t.verification_status = ?"
		args = append(args, *filter.Verification)
	}
	for _, tag := range filter.Tags {
		where += " AND t.id IN (SELECT tt.task_id FROM task_tags tt JOIN tags tg ON tg.id = tt.tag_id WHERE tg.name = ?)"
		args = append(args, tag)
	}
	if filter.Search != "" {
		where += " AND (instr(lower(t.title), lower(?)) > 0 OR instr(lower(t.task_instruction), lower(?)) > 0 OR instr(lower(t.verification_instruction), lower(?)) > 0)"
		args = append(args, filter.Search, filter.Search, filter.Search)
	}
	return where, args
}

func orderClause(sortBy string) string {
	switch sortBy {
	case types.SortPriorityAsc:
		return "ORDER BY " + priorityRank + " DESC, t.created_at ASC, t.id ASC"
	case types.SortCreatedAt:
		return "ORDER BY t.created_at DESC, t.id DESC"
	case types.SortUpdatedAt:
		return "ORDER BY t.updated_at DESC, t.id DESC"
	case types.SortDueDate:
		return "ORDER BY t.due_date IS NULL, t.due_date ASC, t.id ASC"
	default:
		return "ORDER BY " + priorityRank + ", t.created_at ASC, t.id ASC"
	}
}

// QueryTasks returns full task rows matching the filter.
func (s *Store) QueryTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error) {
	where, args := buildTaskWhere(filter)
	args = append(args, clampLimit(filter.Limit), filter.Offset)

	var tasks []*types.Task
	err := s.timed("query_tasks", func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+taskColumns+`
			FROM tasks t
			WHERE `+where+`
			`+orderClause(filter.SortBy)+`
			LIMIT ? OFFSET ?`, args...)
		if err != nil {
			return fmt.Errorf("failed to query tasks: %w", err)
		}
		tasks, err = collectTasks(rows)
		return err
	})
	return tasks, err
}

// QuerySummaries is QueryTasks for the lightweight projection.
func (s *Store) QuerySummaries(ctx context.Context, filter types.TaskFilter) ([]*types.TaskSummary, error) {
	where, args := buildTaskWhere(filter)
	args = append(args, clampLimit(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.task_type, t.task_status, t.assigned_agent,
		       t.project_id, t.priority, t.created_at, t.updated_at, t.completed_at
		FROM tasks t
		WHERE `+where+`
		`+orderClause(filter.SortBy)+`
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query task summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*types.TaskSummary
	for rows.Next() {
		var (
			sm            types.TaskSummary
			assignedAgent sql.NullString
			projectID     sql.NullInt64
			createdAt     string
			updatedAt     string
			completedAt   sql.NullString
		)
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.TaskType, &sm.TaskStatus, &assignedAgent,
			&projectID, &sm.Priority, &createdAt, &updatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task summary: %w", err)
		}
		if assignedAgent.Valid {
			sm.AssignedAgent = assignedAgent.String
		}
		if projectID.Valid {
			sm.ProjectID = &projectID.Int64
		}
		if sm.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse summary created_at: %w", err)
		}
		if sm.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse summary updated_at: %w", err)
		}
		if sm.CompletedAt, err = parseNullTime(completedAt); err != nil {
			return nil, fmt.Errorf("failed to parse summary completed_at: %w", err)
		}
		summaries = append(summaries, &sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task summaries: %w", err)
	}
	return summaries, nil
}

// CountTasks counts the filter population, ignoring limit and offset.
func (s *Store) CountTasks(ctx context.Context, filter types.TaskFilter) (int, error) {
	where, args := buildTaskWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks t WHERE `+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

// RecentCompletions returns completed tasks, most recent first.
func (s *Store) RecentCompletions(ctx context.Context, filter types.CompletionFilter) ([]*types.Task, error) {
	where := `t.task_status = 'complete'`
	var args []any
	if filter.Since != nil {
		where += ` AND t.completed_at >= ?`
		args = append(args, fmtTime(*filter.Since))
	}
	if filter.ProjectID != nil {
		where += ` AND t.project_id = ?`
		args = append(args, *filter.ProjectID)
	}
	if filter.AgentID != "" {
		where += ` AND t.assigned_agent = ?`
		args = append(args, filter.AgentID)
	}
	args = append(args, clampLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		WHERE `+where+`
		ORDER BY t.completed_at DESC, t.id DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent completions: %w", err)
	}
	return collectTasks(rows)
}

// ApproachingDeadline returns incomplete tasks due inside the window,
// nearest deadline first.
func (s *Store) ApproachingDeadline(ctx context.Context, filter types.DeadlineFilter) ([]*types.Task, error) {
	now := time.Now().UTC()
	horizon := now.Add(filter.Within)

	where := `t.task_status NOT IN ('complete', 'cancelled') AND t.due_date IS NOT NULL AND t.due_date >= ? AND t.due_date <= ?`
	args := []any{fmtTime(now), fmtTime(horizon)}
	if filter.ProjectID != nil {
		where += ` AND t.project_id = ?`
		args = append(args, *filter.ProjectID)
	}
	args = append(args, clampLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		WHERE `+where+`
		ORDER BY t.due_date ASC, t.id ASC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get approaching deadlines: %w", err)
	}
	return collectTasks(rows)
}

// OverdueTasks returns incomplete tasks whose due date has passed,
// most overdue first.
func (s *Store) OverdueTasks(ctx context.Context, limit int) ([]*types.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		WHERE t.task_status NOT IN ('complete', 'cancelled')
		  AND t.due_date IS NOT NULL AND t.due_date < ?
		ORDER BY t.due_date ASC, t.id ASC
		LIMIT ?`, fmtTime(time.Now().UTC()), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get overdue tasks: %w", err)
	}
	return collectTasks(rows)
}
