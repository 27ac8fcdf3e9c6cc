package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

// CreateTemplate inserts a reusable task blueprint. Names are unique.
func (s *Store) CreateTemplate(ctx context.Context, tpl *types.TaskTemplate) error {
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO task_templates (name, title_template, task_type, task_instruction,
			verification_instruction, notes, priority, estimated_hours, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tpl.Name, tpl.TitleTemplate, tpl.TaskType, tpl.TaskInstruction,
		tpl.VerificationInstruction, tpl.Notes, tpl.Priority,
		nullFloat(tpl.EstimatedHours), fmtTime(tpl.CreatedAt),
	)
	if err != nil {
		if isConstraint(err) {
			return types.Conflictf("template %q already exists", tpl.Name)
		}
		return fmt.Errorf("failed to create template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read template id: %w", err)
	}
	tpl.ID = id
	return nil
}

// GetTemplate fetches a template by its unique name.
func (s *Store) GetTemplate(ctx context.Context, name string) (*types.TaskTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, title_template, task_type, task_instruction,
		       verification_instruction, notes, priority, estimated_hours, created_at
		FROM task_templates WHERE name = ?`, name)
	tpl, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFoundf("template %q does not exist", name)
	}
	return tpl, err
}

// ListTemplates returns all templates ordered by name.
func (s *Store) ListTemplates(ctx context.Context) ([]*types.TaskTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, title_template, task_type, task_instruction,
		       verification_instruction, notes, priority, estimated_hours, created_at
		FROM task_templates ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*types.TaskTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}
	return templates, nil
}

// DeleteTemplate removes a template by name.
func (s *Store) DeleteTemplate(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_templates WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete template %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read template delete result: %w", err)
	}
	if n == 0 {
		return types.NotFoundf("template %q does not exist", name)
	}
	return nil
}

func scanTemplate(row rowScanner) (*types.TaskTemplate, error) {
	var (
		tpl       types.TaskTemplate
		estimated sql.NullFloat64
		createdAt string
	)
	if err := row.Scan(&tpl.ID, &tpl.Name, &tpl.TitleTemplate, &tpl.TaskType, &tpl.TaskInstruction,
		&tpl.VerificationInstruction, &tpl.Notes, &tpl.Priority, &estimated, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}
	if estimated.Valid {
		tpl.EstimatedHours = &estimated.Float64
	}
	var err error
	if tpl.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse template created_at: %w", err)
	}
	return &tpl, nil
}

// CreateRecurring inserts a recurring task definition.
func (s *Store) CreateRecurring(ctx context.Context, rec *types.RecurringTask) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var projectID any
	if rec.ProjectID != nil {
		projectID = *rec.ProjectID
	}
	active := 0
	if rec.Active {
		active = 1
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_tasks (name, title_template, task_type, task_instruction,
			verification_instruction, priority, project_id, interval_hours, active,
			next_run_at, last_instantiated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.TitleTemplate, rec.TaskType, rec.TaskInstruction,
		rec.VerificationInstruction, rec.Priority, projectID, rec.IntervalHours, active,
		fmtTimePtr(rec.NextRunAt), fmtTimePtr(rec.LastInstantiatedAt), fmtTime(rec.CreatedAt),
	)
	if err != nil {
		if isConstraint(err) {
			return types.Conflictf("recurring task %q already exists", rec.Name)
		}
		return fmt.Errorf("failed to create recurring task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read recurring task id: %w", err)
	}
	rec.ID = id
	return nil
}

// GetRecurring fetches one recurring definition by id.
func (s *Store) GetRecurring(ctx context.Context, id int64) (*types.RecurringTask, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, title_template, task_type, task_instruction,
		       verification_instruction, priority, project_id, interval_hours,
		       active, next_run_at, last_instantiated_at, created_at
		FROM recurring_tasks WHERE id = ?`, id)
	rec, err := scanRecurring(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFoundf("recurring task %d does not exist", id)
	}
	return rec, err
}

// ListRecurring returns recurring definitions ordered by name.
func (s *Store) ListRecurring(ctx context.Context, activeOnly bool) ([]*types.RecurringTask, error) {
	where := "1=1"
	if activeOnly {
		where = "active = 1"
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, title_template, task_type, task_instruction,
		       verification_instruction, priority, project_id, interval_hours,
		       active, next_run_at, last_instantiated_at, created_at
		FROM recurring_tasks WHERE `+where+` ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring tasks: %w", err)
	}
	defer rows.Close()

	var recs []*types.RecurringTask
	for rows.Next() {
		rec, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring tasks: %w", err)
	}
	return recs, nil
}

// SetRecurringActive toggles a recurring definition.
func (s *Store) SetRecurringActive(ctx context.Context, id int64, active bool) error {
	val := 0
	if active {
		val = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE recurring_tasks SET active = ? WHERE id = ?`, val, id)
	if err != nil {
		return fmt.Errorf("failed to toggle recurring task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read toggle result: %w", err)
	}
	if n == 0 {
		return types.NotFoundf("recurring task %d does not exist", id)
	}
	return nil
}

// MarkRecurringInstantiated records an explicit instantiation and
// advances next_run_at by the interval.
func (s *Store) MarkRecurringInstantiated(ctx context.Context, id int64, at time.Time) error {
	rec, err := s.GetRecurring(ctx, id)
	if err != nil {
		return err
	}
	next := at.Add(time.Duration(rec.IntervalHours * float64(time.Hour)))
	_, err = s.db.ExecContext(ctx, `
		UPDATE recurring_tasks SET last_instantiated_at = ?, next_run_at = ? WHERE id = ?`,
		fmtTime(at), fmtTime(next), id)
	if err != nil {
		return fmt.Errorf("failed to mark recurring task %d instantiated: %w", id, err)
	}
	return nil
}

func scanRecurring(row rowScanner) (*types.RecurringTask, error) {
	var (
		rec         types.RecurringTask
		projectID   sql.NullInt64
		active      int
		nextRun     sql.NullString
		lastCreated sql.NullString
		createdAt   string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.TitleTemplate, &rec.TaskType, &rec.TaskInstruction,
		&rec.VerificationInstruction, &rec.Priority, &projectID, &rec.IntervalHours,
		&active, &nextRun, &lastCreated, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan recurring task: %w", err)
	}
	if projectID.Valid {
		rec.ProjectID = &projectID.Int64
	}
	rec.Active = active != 0
	var err error
	if rec.NextRunAt, err = parseNullTime(nextRun); err != nil {
		return nil, fmt.Errorf("failed to parse next_run_at: %w", err)
	}
	if rec.LastInstantiatedAt, err = parseNullTime(lastCreated); err != nil {
		return nil, fmt.Errorf("failed to parse last_instantiated_at: %w", err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse recurring created_at: %w", err)
	}
	return &rec, nil
}
