package workbook

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "sheets and cells",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS sheets (
    name TEXT PRIMARY KEY,
    row_count INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS cells (
    sheet TEXT NOT NULL REFERENCES sheets(name) ON DELETE CASCADE,
    row_num INTEGER NOT NULL,
    col_num INTEGER NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (sheet, row_num, col_num)
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "import history",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS imports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sheet TEXT NOT NULL,
    source TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    imported_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_imports_sheet ON imports(sheet);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
