package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/taskdeck/taskdeck/internal/types"
)

// GetStatistics aggregates task counts for the filter population.
// Completion rate is completed tasks against the total, verified or not.
func (s *Store) GetStatistics(ctx context.Context, filter types.StatsFilter) (*types.Statistics, error) {
	where := "1=1"
	var args []any
	if filter.ProjectID != nil {
		where += " AND t.project_id = ?"
		args = append(args, *filter.ProjectID)
	}
	if filter.TaskType != nil {
		where += " AND t.task_type = ?"
		args = append(args, string(*filter.TaskType))
	}
	if filter.StartDate != nil {
		where += " AND t.created_at >= ?"
		args = append(args, fmtTime(*filter.StartDate))
	}
	if filter.EndDate != nil {
		where += " AND t.created_at <= ?"
		args = append(args, fmtTime(*filter.EndDate))
	}

	stats := &types.Statistics{
		ByStatus:   make(map[string]int),
		ByType:     make(map[string]int),
		ByPriority: make(map[string]int),
		ByProject:  make(map[string]int),
	}

	groupCount := func(column string, into map[string]int) error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+column+`, COUNT(*) FROM tasks t WHERE `+where+` GROUP BY `+column, args...)
		if err != nil {
			return fmt.Errorf("failed to aggregate by %s: %w", column, err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				key   string
				count int
			)
			if err := rows.Scan(&key, &count); err != nil {
				return fmt.Errorf("failed to scan %s aggregate: %w", column, err)
			}
			into[key] = count
		}
		return rows.Err()
	}

	if err := groupCount("t.task_status", stats.ByStatus); err != nil {
		return nil, err
	}
	if err := groupCount("t.task_type", stats.ByType); err != nil {
		return nil, err
	}
	if err := groupCount("t.priority", stats.ByPriority); err != nil {
		return nil, err
	}

	for _, count := range stats.ByStatus {
		stats.Total += count
	}

	// Per-project counts keyed by project name; the unassigned bucket is "".
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(p.name, ''), COUNT(*)
		FROM tasks t
		LEFT JOIN projects p ON p.id = t.project_id
		WHERE `+where+`
		GROUP BY p.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by project: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan project aggregate: %w", err)
		}
		stats.ByProject[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project aggregates: %w", err)
	}

	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.ByStatus[string(types.StatusComplete)]) / float64(stats.Total)
	}

	return stats, nil
}

// GetAgentPerformance aggregates across completed tasks held by one
// agent, optionally restricted to a task type.
func (s *Store) GetAgentPerformance(ctx context.Context, agentID string, taskType *types.TaskType) (*types.AgentPerformance, error) {
	perf := &types.AgentPerformance{
		AgentID: agentID,
		ByType:  make(map[string]int),
	}

	where := "assigned_agent = ? AND task_status = 'complete'"
	args := []any{agentID}
	if taskType != nil {
		where += " AND task_type = ?"
		args = append(args, string(*taskType))
	}

	var (
		verified  sql.NullInt64
		meanHours sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       SUM(CASE WHEN verification_status = 'verified' THEN 1 ELSE 0 END),
		       AVG(actual_hours)
		FROM tasks
		WHERE `+where,
		args...,
	).Scan(&perf.CompletedTotal, &verified, &meanHours)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate agent performance: %w", err)
	}
	perf.CompletedVerified = int(verified.Int64)
	if meanHours.Valid {
		perf.MeanActualHours = meanHours.Float64
	}
	if perf.CompletedTotal > 0 {
		perf.SuccessRate = float64(perf.CompletedVerified) / float64(perf.CompletedTotal)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT task_type, COUNT(*)
		FROM tasks
		WHERE `+where+`
		GROUP BY task_type`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate agent task types: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			taskType string
			count    int
		)
		if err := rows.Scan(&taskType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan agent type aggregate: %w", err)
		}
		perf.ByType[taskType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agent type aggregates: %w", err)
	}

	return perf, nil
}
