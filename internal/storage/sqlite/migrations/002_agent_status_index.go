package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateAgentStatusIndex adds the composite index backing agent
// performance aggregation.
func MigrateAgentStatusIndex(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_agent_status ON tasks(assigned_agent, task_status)`)
	if err != nil {
		return fmt.Errorf("failed to create agent/status index: %w", err)
	}
	return nil
}
