package migrations

// Category names are unique regardless of case. Each dialect spells a
// case-insensitive unique index differently:
//   - SQLite:     COLLATE NOCASE on the indexed column
//   - PostgreSQL: an expression index on LOWER(name)
//   - MySQL:      the default *_ci collations already compare case-insensitively

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCategoryNameUnique, downCategoryNameUnique)
}

func upCategoryNameUnique(ctx context.Context, tx *sql.Tx) error {
	var ddl string
	switch dialect {
	case "postgres":
		ddl = `CREATE UNIQUE INDEX uq_categories_name ON categories (LOWER(name))`
	case "mysql":
		ddl = `CREATE UNIQUE INDEX uq_categories_name ON categories (name)`
	default: // sqlite3
		ddl = `CREATE UNIQUE INDEX uq_categories_name ON categories (name COLLATE NOCASE)`
	}
	_, err := tx.ExecContext(ctx, ddl)
	return err
}

func downCategoryNameUnique(ctx context.Context, tx *sql.Tx) error {
	ddl := `DROP INDEX IF EXISTS uq_categories_name`
	if dialect == "mysql" {
		ddl = `ALTER TABLE categories DROP INDEX uq_categories_name`
	}
	_, err := tx.ExecContext(ctx, ddl)
	return err
}
