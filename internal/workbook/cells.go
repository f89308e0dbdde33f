package workbook

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/voc-insights/vocdash/internal/sheets"
)

// SheetInfo summarises a stored sheet.
type SheetInfo struct {
	Name      string
	RowCount  int
	UpdatedAt string
}

// ImportCSV replaces the named sheet with the rows of a CSV export. The first
// record becomes row 1. Empty cells are not stored. It returns the number of
// rows imported, header included.
func (db *DB) ImportCSV(ctx context.Context, sheet string, r io.Reader, source string) (int, error) {
	if strings.TrimSpace(sheet) == "" {
		return 0, errors.New("sheet name is empty")
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cells WHERE sheet = ?", sheet); err != nil {
		return 0, fmt.Errorf("clearing cells: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sheets WHERE name = ?", sheet); err != nil {
		return 0, fmt.Errorf("clearing sheet: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO sheets (name) VALUES (?)", sheet); err != nil {
		return 0, fmt.Errorf("creating sheet: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO cells (sheet, row_num, col_num, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("reading csv row %d: %w", rows+1, err)
		}
		rows++
		if rows == 1 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}
		for col, value := range record {
			if value == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, sheet, rows, col+1, value); err != nil {
				return 0, fmt.Errorf("storing row %d: %w", rows, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE sheets SET row_count = ?, updated_at = datetime('now') WHERE name = ?", rows, sheet,
	); err != nil {
		return 0, fmt.Errorf("updating row count: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO imports (sheet, source, row_count) VALUES (?, ?, ?)", sheet, source, rows,
	); err != nil {
		return 0, fmt.Errorf("recording import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return rows, nil
}

// ListSheets returns every stored sheet ordered by name.
func (db *DB) ListSheets(ctx context.Context) ([]SheetInfo, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT name, row_count, COALESCE(updated_at, '') FROM sheets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing sheets: %w", err)
	}
	defer rows.Close()

	var out []SheetInfo
	for rows.Next() {
		var s SheetInfo
		if err := rows.Scan(&s.Name, &s.RowCount, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Sheet implements sheets.Workbook.
func (db *DB) Sheet(ctx context.Context, name string) (sheets.Sheet, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT row_count FROM sheets WHERE name = ?", name).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up sheet: %w", err)
	}
	return &sqliteSheet{db: db, name: name, rows: count}, nil
}

type sqliteSheet struct {
	db   *DB
	name string
	rows int
}

func (s *sqliteSheet) RowCount(ctx context.Context) (int, error) {
	return s.rows, nil
}

func (s *sqliteSheet) ReadRows(ctx context.Context, start, n int) ([][]string, error) {
	if start < 1 || n <= 0 || start > s.rows {
		return nil, nil
	}
	end := min(start+n-1, s.rows)

	rows, err := s.db.conn.QueryContext(ctx,
		"SELECT row_num, col_num, value FROM cells WHERE sheet = ? AND row_num BETWEEN ? AND ? ORDER BY row_num, col_num",
		s.name, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("reading cells: %w", err)
	}
	defer rows.Close()

	out := make([][]string, end-start+1)
	for rows.Next() {
		var row, col int
		var value string
		if err := rows.Scan(&row, &col, &value); err != nil {
			return nil, err
		}
		i := row - start
		for len(out[i]) < col {
			out[i] = append(out[i], "")
		}
		out[i][col-1] = value
	}
	return out, rows.Err()
}
