package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

// CreateProject inserts a project. Names are unique.
func (s *Store) CreateProject(ctx context.Context, project *types.Project) error {
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = project.CreatedAt

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (name, local_path, origin_url, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		project.Name, project.LocalPath, project.OriginURL, project.Description,
		fmtTime(project.CreatedAt), fmtTime(project.UpdatedAt),
	)
	if err != nil {
		if isConstraint(err) {
			return types.Conflictf("project %q already exists", project.Name)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read project id: %w", err)
	}
	project.ID = id
	return nil
}

// GetProject fetches one project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, local_path, origin_url, description, created_at, updated_at
		FROM projects WHERE id = ?`, id)
	project, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFoundf("project %d does not exist", id)
	}
	return project, err
}

// GetProjectByName fetches one project by its unique name.
func (s *Store) GetProjectByName(ctx context.Context, name string) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, local_path, origin_url, description, created_at, updated_at
		FROM projects WHERE name = ?`, name)
	project, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFoundf("project %q does not exist", name)
	}
	return project, err
}

// ListProjects returns all projects ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]*types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, local_path, origin_url, description, created_at, updated_at
		FROM projects ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*types.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func scanProject(row rowScanner) (*types.Project, error) {
	var (
		p         types.Project
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.LocalPath, &p.OriginURL, &p.Description, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse project created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse project updated_at: %w", err)
	}
	return &p, nil
}
