package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateStaleMarkerColumns adds the sweeper's stale marker columns to
// databases created before they were part of the base schema.
func MigrateStaleMarkerColumns(db *sql.DB) error {
	cols := map[string]string{
		"stale_unlocked_at":    "ALTER TABLE tasks ADD COLUMN stale_unlocked_at TEXT",
		"stale_previous_agent": "ALTER TABLE tasks ADD COLUMN stale_previous_agent TEXT NOT NULL DEFAULT ''",
		"stale_reason":         "ALTER TABLE tasks ADD COLUMN stale_reason TEXT NOT NULL DEFAULT ''",
	}

	for name, stmt := range cols {
		var colName string
		err := db.QueryRow(`
			SELECT name FROM pragma_table_info('tasks')
			WHERE name = ?
		`, name).Scan(&colName)
		if err == sql.ErrNoRows {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("failed to add %s column: %w", name, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to inspect tasks table: %w", err)
		}
	}
	return nil
}
