package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateRecurringNextRunColumn adds next_run_at to recurring definitions
// from before explicit instantiation tracking.
func MigrateRecurringNextRunColumn(db *sql.DB) error {
	var colName string
	err := db.QueryRow(`
		SELECT name FROM pragma_table_info('recurring_tasks')
		WHERE name = 'next_run_at'
	`).Scan(&colName)

	if err == sql.ErrNoRows {
		if _, err := db.Exec(`ALTER TABLE recurring_tasks ADD COLUMN next_run_at TEXT`); err != nil {
			return fmt.Errorf("failed to add next_run_at column: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to inspect recurring_tasks table: %w", err)
	}
	return nil
}
