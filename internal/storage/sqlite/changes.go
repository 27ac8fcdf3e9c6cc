package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

func (t *tx) AppendChanges(ctx context.Context, changes []*types.ChangeEntry) error {
	return t.s.appendChanges(ctx, t.conn, changes)
}

func (s *Store) appendChanges(ctx context.Context, q queryer, changes []*types.ChangeEntry) error {
	for _, c := range changes {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		res, err := q.ExecContext(ctx, `
			INSERT INTO task_changes (task_id, agent_id, change_type, field_name, old_value, new_value, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.TaskID, c.AgentID, c.ChangeType, c.FieldName, c.OldValue, c.NewValue, fmtTime(c.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to append change entry: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read change entry id: %w", err)
		}
		c.ID = id
	}
	return nil
}

// GetChanges returns a task's change entries in append order (id asc).
func (s *Store) GetChanges(ctx context.Context, taskID int64, limit int) ([]*types.ChangeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, agent_id, change_type, field_name, old_value, new_value, created_at
		FROM task_changes
		WHERE task_id = ?
		ORDER BY id ASC
		LIMIT ?`, taskID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get changes for task %d: %w", taskID, err)
	}
	return collectChanges(rows)
}

func collectChanges(rows *sql.Rows) ([]*types.ChangeEntry, error) {
	defer rows.Close()
	var changes []*types.ChangeEntry
	for rows.Next() {
		var (
			c         types.ChangeEntry
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AgentID, &c.ChangeType, &c.FieldName, &c.OldValue, &c.NewValue, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan change entry: %w", err)
		}
		var err error
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse change timestamp: %w", err)
		}
		changes = append(changes, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating change entries: %w", err)
	}
	return changes, nil
}

// GetActivityFeed merges change entries and updates into one feed ordered
// by (created_at, id) ascending.
func (s *Store) GetActivityFeed(ctx context.Context, filter types.ActivityFilter) ([]*types.ActivityEntry, error) {
	where := "1=1"
	var args []any
	if filter.TaskID != nil {
		where += " AND a.task_id = ?"
		args = append(args, *filter.TaskID)
	}
	if filter.AgentID != "" {
		where += " AND a.agent_id = ?"
		args = append(args, filter.AgentID)
	}
	if filter.Since != nil {
		where += " AND a.created_at >= ?"
		args = append(args, fmtTime(*filter.Since))
	}
	if filter.ProjectID != nil {
		where += " AND a.task_id IN (SELECT id FROM tasks WHERE project_id = ?)"
		args = append(args, *filter.ProjectID)
	}

	// Doubled WHERE args: the filter applies to each arm of the union.
	query := `
		SELECT * FROM (
			SELECT 'change' AS kind, a.id, a.task_id, a.agent_id,
			       a.change_type AS type, a.field_name AS field,
			       a.old_value, a.new_value, '' AS content, '' AS metadata,
			       a.created_at
			FROM task_changes a WHERE ` + where + `
			UNION ALL
			SELECT 'update' AS kind, a.id, a.task_id, a.agent_id,
			       a.update_type AS type, '' AS field,
			       '' AS old_value, '' AS new_value, a.content, a.metadata,
			       a.created_at
			FROM task_updates a WHERE ` + where + `
		)
		ORDER BY created_at ASC, id ASC
		LIMIT ?`
	allArgs := append(append([]any{}, args...), args...)
	allArgs = append(allArgs, clampLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, allArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity feed: %w", err)
	}
	defer rows.Close()

	var feed []*types.ActivityEntry
	for rows.Next() {
		var (
			e         types.ActivityEntry
			metadata  string
			createdAt string
		)
		if err := rows.Scan(&e.Kind, &e.ID, &e.TaskID, &e.AgentID, &e.Type, &e.Field,
			&e.OldValue, &e.NewValue, &e.Content, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		if metadata != "" {
			e.Metadata = []byte(metadata)
		}
		var perr error
		if e.CreatedAt, perr = parseTime(createdAt); perr != nil {
			return nil, fmt.Errorf("failed to parse activity timestamp: %w", perr)
		}
		feed = append(feed, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity feed: %w", err)
	}
	return feed, nil
}
