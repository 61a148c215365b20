package store

import (
	"context"
	"fmt"
)

// migration adds one column to the Tasks table. Migrations are additive only:
// a step never drops, renames or retypes a column.
type migration struct {
	version int
	column  string
	def     string
}

// taskMigrations lists every column added to Tasks after the v1.4 baseline,
// in the order revisions introduced them.
var taskMigrations = []migration{
	{version: 1, column: "area", def: "area TEXT"},
	{version: 2, column: "dependencies", def: "dependencies TEXT NOT NULL DEFAULT ''"},
	{version: 3, column: "content", def: "content TEXT"},
	{version: 3, column: "hashtags", def: "hashtags TEXT"},
}

// runMigrations applies incremental schema migrations based on user_version.
//
// Each step also checks the live column list, so a file whose user_version
// was never set but already has a column (written by a revision that created
// the table wholesale) is upgraded without a duplicate-column error.
func runMigrations(ctx context.Context, q Querier) error {
	var version int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	for _, m := range taskMigrations {
		if m.version <= version {
			continue
		}
		if err := addColumnIfMissing(ctx, q, "Tasks", m); err != nil {
			return err
		}
	}

	// Set version after all migrations
	if version < currentSchemaVersion {
		if _, err := q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

func addColumnIfMissing(ctx context.Context, q Querier, table string, m migration) error {
	exists, err := columnExists(ctx, q, table, m.column)
	if err != nil {
		return fmt.Errorf("migrate to v%d: %w", m.version, err)
	}
	if exists {
		return nil
	}

	if _, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, m.def)); err != nil {
		return fmt.Errorf("migrate to v%d: add %s.%s: %w", m.version, table, m.column, err)
	}
	return nil
}

func columnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?",
		table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("inspect %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}
