package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

// AddUpdate appends a narrative update. Updates are immutable once
// written and survive task deletion.
func (s *Store) AddUpdate(ctx context.Context, update *types.Update) error {
	return s.addUpdate(ctx, s.db, update)
}

func (t *tx) AddUpdate(ctx context.Context, update *types.Update) error {
	return t.s.addUpdate(ctx, t.conn, update)
}

func (s *Store) addUpdate(ctx context.Context, q queryer, update *types.Update) error {
	if update.CreatedAt.IsZero() {
		update.CreatedAt = time.Now().UTC()
	}
	metadata := ""
	if len(update.Metadata) > 0 {
		metadata = string(update.Metadata)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO task_updates (task_id, agent_id, update_type, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		update.TaskID, update.AgentID, update.UpdateType, update.Content, metadata, fmtTime(update.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to add update to task %d: %w", update.TaskID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read update id: %w", err)
	}
	update.ID = id
	return nil
}

// GetUpdates returns a task's updates oldest first.
func (s *Store) GetUpdates(ctx context.Context, taskID int64, limit int) ([]*types.Update, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, agent_id, update_type, content, metadata, created_at
		FROM task_updates
		WHERE task_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, taskID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get updates for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var updates []*types.Update
	for rows.Next() {
		var (
			u         types.Update
			metadata  string
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.TaskID, &u.AgentID, &u.UpdateType, &u.Content, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan update: %w", err)
		}
		if metadata != "" {
			u.Metadata = []byte(metadata)
		}
		if u.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse update timestamp: %w", err)
		}
		updates = append(updates, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating updates: %w", err)
	}
	return updates, nil
}
