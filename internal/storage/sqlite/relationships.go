package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/internal/types"
)

// CreateRelationship inserts a directed edge after verifying both
// endpoints exist and, for dependency edges, that the edge keeps the
// {subtask, blocking, blocked_by} subgraph acyclic.
func (s *Store) CreateRelationship(ctx context.Context, rel *types.Relationship, actor string) error {
	return s.RunInTransaction(ctx, func(t storage.Transaction) error {
		return t.CreateRelationship(ctx, rel, actor)
	})
}

func (t *tx) CreateRelationship(ctx context.Context, rel *types.Relationship, actor string) error {
	return t.s.createRelationship(ctx, t.conn, rel, actor)
}

func (s *Store) createRelationship(ctx context.Context, q queryer, rel *types.Relationship, actor string) error {
	if rel.ParentTaskID == rel.ChildTaskID {
		return types.Validationf("a task cannot relate to itself")
	}
	if _, err := s.getTask(ctx, q, rel.ParentTaskID); err != nil {
		return err
	}
	if _, err := s.getTask(ctx, q, rel.ChildTaskID); err != nil {
		return err
	}

	if rel.RelationshipType.DependencyEdge() {
		cycle, err := s.wouldCycle(ctx, q, rel.ParentTaskID, rel.ChildTaskID)
		if err != nil {
			return err
		}
		if cycle {
			return types.CycleDetectedf("relationship %d -> %d would close a dependency cycle", rel.ParentTaskID, rel.ChildTaskID)
		}
	}

	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	if rel.CreatedBy == "" {
		rel.CreatedBy = actor
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO relationships (parent_task_id, child_task_id, relationship_type, created_at, created_by)
		VALUES (?, ?, ?, ?, ?)`,
		rel.ParentTaskID, rel.ChildTaskID, rel.RelationshipType, fmtTime(rel.CreatedAt), rel.CreatedBy,
	)
	if err != nil {
		if isConstraint(err) {
			return types.Conflictf("relationship %d -> %d (%s) already exists", rel.ParentTaskID, rel.ChildTaskID, rel.RelationshipType)
		}
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read relationship id: %w", err)
	}
	rel.ID = id

	return s.appendChanges(ctx, q, []*types.ChangeEntry{{
		TaskID:     rel.ChildTaskID,
		AgentID:    actor,
		ChangeType: types.ChangeRelationship,
		FieldName:  string(rel.RelationshipType),
		NewValue:   fmt.Sprintf("%d -> %d", rel.ParentTaskID, rel.ChildTaskID),
		CreatedAt:  rel.CreatedAt,
	}})
}

func isConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

// wouldCycle walks dependency edges from the child looking for the
// parent. Edges of all three dependency types form one directed graph
// for cycle purposes, so mixed chains are also refused.
func (s *Store) wouldCycle(ctx context.Context, q queryer, parentID, childID int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		WITH RECURSIVE reach(task_id) AS (
			SELECT child_task_id FROM relationships
			WHERE parent_task_id = ?
			  AND relationship_type IN ('subtask', 'blocking', 'blocked_by')
			UNION
			SELECT r.child_task_id
			FROM relationships r
			JOIN reach ON reach.task_id = r.parent_task_id
			WHERE r.relationship_type IN ('subtask', 'blocking', 'blocked_by')
		)
		SELECT COUNT(*) FROM reach WHERE task_id = ?`,
		childID, parentID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check for dependency cycle: %w", err)
	}
	return n > 0, nil
}

// DeleteRelationship removes one edge and logs the removal on the child.
func (s *Store) DeleteRelationship(ctx context.Context, parentID, childID int64, relType types.RelationshipType, actor string) error {
	return s.RunInTransaction(ctx, func(t storage.Transaction) error {
		return t.DeleteRelationship(ctx, parentID, childID, relType, actor)
	})
}

func (t *tx) DeleteRelationship(ctx context.Context, parentID, childID int64, relType types.RelationshipType, actor string) error {
	return t.s.deleteRelationship(ctx, t.conn, parentID, childID, relType, actor)
}

func (s *Store) deleteRelationship(ctx context.Context, q queryer, parentID, childID int64, relType types.RelationshipType, actor string) error {
	res, err := q.ExecContext(ctx, `
		DELETE FROM relationships
		WHERE parent_task_id = ? AND child_task_id = ? AND relationship_type = ?`,
		parentID, childID, relType,
	)
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return types.NotFoundf("relationship %d -> %d (%s) does not exist", parentID, childID, relType)
	}

	return s.appendChanges(ctx, q, []*types.ChangeEntry{{
		TaskID:     childID,
		AgentID:    actor,
		ChangeType: types.ChangeRelationship,
		FieldName:  string(relType),
		OldValue:   fmt.Sprintf("%d -> %d", parentID, childID),
		CreatedAt:  time.Now().UTC(),
	}})
}

// GetRelationships returns every edge touching the task, in either role.
func (s *Store) GetRelationships(ctx context.Context, taskID int64) ([]*types.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_task_id, child_task_id, relationship_type, created_at, created_by
		FROM relationships
		WHERE parent_task_id = ? OR child_task_id = ?
		ORDER BY id ASC`, taskID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationships for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var rels []*types.Relationship
	for rows.Next() {
		var (
			rel       types.Relationship
			createdAt string
		)
		if err := rows.Scan(&rel.ID, &rel.ParentTaskID, &rel.ChildTaskID, &rel.RelationshipType, &createdAt, &rel.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		if rel.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse relationship timestamp: %w", err)
		}
		rels = append(rels, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}
	return rels, nil
}

// GetAncestry walks subtask edges upward from the task and returns the
// chain of ancestors, root first.
func (s *Store) GetAncestry(ctx context.Context, taskID int64) ([]*types.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE ancestry(task_id, depth) AS (
			SELECT parent_task_id, 1 FROM relationships
			WHERE child_task_id = ? AND relationship_type = 'subtask'
			UNION
			SELECT r.parent_task_id, a.depth + 1
			FROM relationships r
			JOIN ancestry a ON a.task_id = r.child_task_id
			WHERE r.relationship_type = 'subtask' AND a.depth < 50
		)
		SELECT `+taskColumns+`
		FROM ancestry a
		JOIN tasks t ON t.id = a.task_id
		ORDER BY a.depth DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ancestry for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var ancestors []*types.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ancestor: %w", err)
		}
		ancestors = append(ancestors, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ancestry: %w", err)
	}
	return ancestors, nil
}
