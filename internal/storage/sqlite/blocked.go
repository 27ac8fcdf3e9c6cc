package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

// BlockedTaskIDs reports, for each requested id, whether the task is
// currently blocked. Resolution is one query against the blocked_tasks
// view regardless of batch size.
func (s *Store) BlockedTaskIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	return s.blockedTaskIDs(ctx, s.db, ids)
}

func (t *tx) BlockedTaskIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	return t.s.blockedTaskIDs(ctx, t.conn, ids)
}

func (s *Store) blockedTaskIDs(ctx context.Context, q queryer, ids []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	for _, id := range ids {
		result[id] = false
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	var rowsErr error
	err := s.timed("blocked_task_ids", func() error {
		rows, err := q.QueryContext(ctx,
			`SELECT task_id FROM blocked_tasks WHERE task_id IN (`+placeholders(len(ids))+`)`, args...)
		if err != nil {
			return fmt.Errorf("failed to resolve blocked tasks: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("failed to scan blocked task id: %w", err)
			}
			result[id] = true
		}
		rowsErr = rows.Err()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rowsErr != nil {
		return nil, fmt.Errorf("error iterating blocked task ids: %w", rowsErr)
	}
	return result, nil
}

// ListAvailable returns reservable work for an agent type: available,
// unblocked tasks of the matching granularity, ordered critical-first
// then oldest-first.
func (s *Store) ListAvailable(ctx context.Context, filter types.AvailableFilter) ([]*types.Task, error) {
	where := `t.task_status = 'available' AND t.id NOT IN (SELECT task_id FROM blocked_tasks)`
	var args []any

	switch filter.AgentType {
	case types.AgentBreakdown:
		where += ` AND t.task_type IN ('abstract', 'epic')`
	default:
		where += ` AND t.task_type = 'concrete'`
	}

	if filter.ProjectID != nil {
		where += ` AND t.project_id = ?`
		args = append(args, *filter.ProjectID)
	}
	for _, tag := range filter.Tags {
		where += ` AND t.id IN (SELECT tt.task_id FROM task_tags tt JOIN tags tg ON tg.id = tt.tag_id WHERE tg.name = ?)`
		args = append(args, tag)
	}

	args = append(args, clampLimit(filter.Limit))

	var tasks []*types.Task
	err := s.timed("list_available", func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+taskColumns+`
			FROM tasks t
			WHERE `+where+`
			ORDER BY `+priorityRank+`, t.created_at ASC, t.id ASC
			LIMIT ?`, args...)
		if err != nil {
			return fmt.Errorf("failed to list available tasks: %w", err)
		}
		tasks, err = collectTasks(rows)
		return err
	})
	return tasks, err
}

// GetStaleTasks returns in_progress tasks whose reservation is older
// than the threshold, oldest reservation first.
func (s *Store) GetStaleTasks(ctx context.Context, filter types.StaleFilter) ([]*types.Task, error) {
	cutoff := time.Now().UTC().Add(-filter.OlderThan)

	where := `t.task_status = 'in_progress' AND t.assigned_at IS NOT NULL AND t.assigned_at < ?`
	args := []any{fmtTime(cutoff)}
	if filter.ProjectID != nil {
		where += ` AND t.project_id = ?`
		args = append(args, *filter.ProjectID)
	}
	args = append(args, clampLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		WHERE `+where+`
		ORDER BY t.assigned_at ASC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get stale tasks: %w", err)
	}
	return collectTasks(rows)
}
