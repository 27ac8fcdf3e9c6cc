// Package sqlite - database migrations
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/taskdeck/taskdeck/internal/storage/sqlite/migrations"
)

// Migration is a single named database migration.
type Migration struct {
	Name string
	Func func(*sql.DB) error
}

// migrationsList is run in order during database initialization. Every
// migration is idempotent; there is no applied-migrations table.
var migrationsList = []Migration{
	{"stale_marker_columns", migrations.MigrateStaleMarkerColumns},
	{"agent_status_index", migrations.MigrateAgentStatusIndex},
	{"comment_mentions_column", migrations.MigrateCommentMentionsColumn},
	{"recurring_next_run_column", migrations.MigrateRecurringNextRunColumn},
}

// RunMigrations executes all registered migrations in order under an
// EXCLUSIVE transaction so parallel processes opening the database cannot
// race on check-then-alter steps.
func RunMigrations(db *sql.DB) error {
	// PRAGMA foreign_keys must change outside a transaction.
	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("failed to disable foreign keys for migrations: %w", err)
	}
	defer func() { _, _ = db.Exec("PRAGMA foreign_keys = ON") }()

	if _, err := db.Exec("BEGIN EXCLUSIVE"); err != nil {
		return fmt.Errorf("failed to acquire exclusive lock for migrations: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = db.Exec("ROLLBACK")
		}
	}()

	for _, migration := range migrationsList {
		if err := migration.Func(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}
	}

	if _, err := db.Exec("COMMIT"); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}
	committed = true

	return nil
}
