package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

// CreateComment inserts a comment (or a reply when ParentCommentID is
// set) and logs it on the task's change log.
func (s *Store) CreateComment(ctx context.Context, comment *types.Comment) error {
	return s.createComment(ctx, s.db, comment)
}

func (t *tx) CreateComment(ctx context.Context, comment *types.Comment) error {
	return t.s.createComment(ctx, t.conn, comment)
}

func (s *Store) createComment(ctx context.Context, q queryer, comment *types.Comment) error {
	if _, err := s.getTask(ctx, q, comment.TaskID); err != nil {
		return err
	}
	if comment.ParentCommentID != nil {
		parent, err := s.getComment(ctx, q, *comment.ParentCommentID)
		if err != nil {
			return err
		}
		if parent.TaskID != comment.TaskID {
			return types.Validationf("reply targets a comment on a different task")
		}
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	var parentID any
	if comment.ParentCommentID != nil {
		parentID = *comment.ParentCommentID
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO task_comments (task_id, agent_id, content, parent_comment_id, mentions, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		comment.TaskID, comment.AgentID, comment.Content, parentID,
		encodeMentions(comment.Mentions), fmtTime(comment.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create comment on task %d: %w", comment.TaskID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read comment id: %w", err)
	}
	comment.ID = id
	return nil
}

// GetComment fetches one comment by id.
func (s *Store) GetComment(ctx context.Context, id int64) (*types.Comment, error) {
	return s.getComment(ctx, s.db, id)
}

func (t *tx) GetComment(ctx context.Context, id int64) (*types.Comment, error) {
	return t.s.getComment(ctx, t.conn, id)
}

func (s *Store) getComment(ctx context.Context, q queryer, id int64) (*types.Comment, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, task_id, agent_id, content, parent_comment_id, mentions, created_at, updated_at
		FROM task_comments WHERE id = ?`, id)
	comment, err := scanComment(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFoundf("comment %d does not exist", id)
	}
	return comment, err
}

// GetComments returns a task's comments oldest first; callers assemble
// threads from ParentCommentID.
func (s *Store) GetComments(ctx context.Context, taskID int64) ([]*types.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, agent_id, content, parent_comment_id, mentions, created_at, updated_at
		FROM task_comments
		WHERE task_id = ?
		ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var comments []*types.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}

// UpdateComment replaces a comment's content and mentions. Ownership is
// enforced by the engine.
func (s *Store) UpdateComment(ctx context.Context, id int64, content string, mentions []string) error {
	return s.updateComment(ctx, s.db, id, content, mentions)
}

func (t *tx) UpdateComment(ctx context.Context, id int64, content string, mentions []string) error {
	return t.s.updateComment(ctx, t.conn, id, content, mentions)
}

func (s *Store) updateComment(ctx context.Context, q queryer, id int64, content string, mentions []string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE task_comments SET content = ?, mentions = ?, updated_at = ?
		WHERE id = ?`,
		content, encodeMentions(mentions), fmtTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("failed to update comment %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read comment update result: %w", err)
	}
	if n == 0 {
		return types.NotFoundf("comment %d does not exist", id)
	}
	return nil
}

// DeleteComment removes a comment; replies cascade with it.
func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	return s.deleteComment(ctx, s.db, id)
}

func (t *tx) DeleteComment(ctx context.Context, id int64) error {
	return t.s.deleteComment(ctx, t.conn, id)
}

func (s *Store) deleteComment(ctx context.Context, q queryer, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM task_comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read comment delete result: %w", err)
	}
	if n == 0 {
		return types.NotFoundf("comment %d does not exist", id)
	}
	return nil
}

func scanComment(row rowScanner) (*types.Comment, error) {
	var (
		c         types.Comment
		parentID  sql.NullInt64
		mentions  string
		createdAt string
		updatedAt sql.NullString
	)
	if err := row.Scan(&c.ID, &c.TaskID, &c.AgentID, &c.Content, &parentID, &mentions, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}
	if parentID.Valid {
		c.ParentCommentID = &parentID.Int64
	}
	c.Mentions = decodeMentions(mentions)
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse comment created_at: %w", err)
	}
	if c.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse comment updated_at: %w", err)
	}
	return &c, nil
}
