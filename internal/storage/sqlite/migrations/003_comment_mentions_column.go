package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateCommentMentionsColumn adds the mentions column to comments
// created before mention support.
func MigrateCommentMentionsColumn(db *sql.DB) error {
	var colName string
	err := db.QueryRow(`
		SELECT name FROM pragma_table_info('task_comments')
		WHERE name = 'mentions'
	`).Scan(&colName)

	if err == sql.ErrNoRows {
		if _, err := db.Exec(`ALTER TABLE task_comments ADD COLUMN mentions TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("failed to add mentions column: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to inspect task_comments table: %w", err)
	}
	return nil
}
