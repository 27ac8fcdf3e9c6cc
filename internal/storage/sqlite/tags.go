package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
)

// AssignTag attaches a tag to a task, creating the tag row on first use.
// Re-assigning an existing tag is a no-op.
func (s *Store) AssignTag(ctx context.Context, taskID int64, tag string, actor string) error {
	return s.RunInTransaction(ctx, func(t storage.Transaction) error {
		return t.AssignTag(ctx, taskID, tag, actor)
	})
}

func (t *tx) AssignTag(ctx context.Context, taskID int64, tag string, actor string) error {
	return t.s.assignTag(ctx, t.conn, taskID, tag, actor)
}

func (s *Store) assignTag(ctx context.Context, q queryer, taskID int64, tag string, actor string) error {
	if _, err := s.getTask(ctx, q, taskID); err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, tag); err != nil {
		return fmt.Errorf("failed to upsert tag %q: %w", tag, err)
	}

	res, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO task_tags (task_id, tag_id)
		SELECT ?, id FROM tags WHERE name = ?`, taskID, tag)
	if err != nil {
		return fmt.Errorf("failed to assign tag %q to task %d: %w", tag, taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read tag assignment result: %w", err)
	}
	if n == 0 {
		// Already assigned.
		return nil
	}

	return s.appendChanges(ctx, q, []*types.ChangeEntry{{
		TaskID:     taskID,
		AgentID:    actor,
		ChangeType: types.ChangeTag,
		FieldName:  "tag",
		NewValue:   tag,
		CreatedAt:  time.Now().UTC(),
	}})
}

// RemoveTag detaches a tag from a task.
func (s *Store) RemoveTag(ctx context.Context, taskID int64, tag string, actor string) error {
	return s.RunInTransaction(ctx, func(t storage.Transaction) error {
		return t.RemoveTag(ctx, taskID, tag, actor)
	})
}

func (t *tx) RemoveTag(ctx context.Context, taskID int64, tag string, actor string) error {
	return t.s.removeTag(ctx, t.conn, taskID, tag, actor)
}

func (s *Store) removeTag(ctx context.Context, q queryer, taskID int64, tag string, actor string) error {
	res, err := q.ExecContext(ctx, `
		DELETE FROM task_tags
		WHERE task_id = ? AND tag_id = (SELECT id FROM tags WHERE name = ?)`, taskID, tag)
	if err != nil {
		return fmt.Errorf("failed to remove tag %q from task %d: %w", tag, taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read tag removal result: %w", err)
	}
	if n == 0 {
		return types.NotFoundf("task %d does not carry tag %q", taskID, tag)
	}

	return s.appendChanges(ctx, q, []*types.ChangeEntry{{
		TaskID:     taskID,
		AgentID:    actor,
		ChangeType: types.ChangeTag,
		FieldName:  "tag",
		OldValue:   tag,
		CreatedAt:  time.Now().UTC(),
	}})
}

// GetTags returns a task's tags sorted by name.
func (s *Store) GetTags(ctx context.Context, taskID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tg.name
		FROM task_tags tt
		JOIN tags tg ON tg.id = tt.tag_id
		WHERE tt.task_id = ?
		ORDER BY tg.name ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

// GetTagsForTasks batch-loads tags for many tasks in one query.
func (s *Store) GetTagsForTasks(ctx context.Context, taskIDs []int64) (map[int64][]string, error) {
	if len(taskIDs) == 0 {
		return map[int64][]string{}, nil
	}
	args := make([]any, len(taskIDs))
	for i, id := range taskIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT tt.task_id, tg.name
		FROM task_tags tt
		JOIN tags tg ON tg.id = tt.tag_id
		WHERE tt.task_id IN (`+placeholders(len(taskIDs))+`)
		ORDER BY tg.name ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to batch-load tags: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]string)
	for rows.Next() {
		var (
			taskID int64
			tag    string
		)
		if err := rows.Scan(&taskID, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		result[taskID] = append(result[taskID], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}
	return result, nil
}

// ListTags returns every tag in use, sorted by name.
func (s *Store) ListTags(ctx context.Context) ([]*types.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*types.Tag
	for rows.Next() {
		var tag types.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}
