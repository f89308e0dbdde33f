// Package sheets reads a handful of raw rows from the VOC tracking sheet so
// an operator can check column mappings by eye.
package sheets

import (
	"context"
	"fmt"
)

// DefaultSampleLimit is the row count the debug command asks for.
const DefaultSampleLimit = 3

// Required header names, in output order.
const (
	ColumnID        = "_id"
	ColumnCreatedAt = "created_at"
	ColumnContent   = "content"
)

// Workbook opens sheets by name.
type Workbook interface {
	Sheet(ctx context.Context, name string) (Sheet, error)
}

// Sheet is a read-only grid addressed with 1-indexed rows. Row 1 is the
// header.
type Sheet interface {
	// RowCount returns the number of rows, header included.
	RowCount(ctx context.Context) (int, error)
	// ReadRows returns up to n rows starting at row start. Rows may be
	// shorter than the header; trailing empty cells are not returned.
	ReadRows(ctx context.Context, start, n int) ([][]string, error)
}

// SampleRow is one data row reduced to the three columns of interest.
type SampleRow struct {
	ID        string
	CreatedAt string
	Content   string
}

// ResolveColumnIndex returns the zero-based index of name in headers using
// exact string comparison.
func ResolveColumnIndex(headers []string, name string) (int, error) {
	for i, h := range headers {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// FetchSampleRows reads at most limit data rows from the named sheet. A
// limit of zero or less uses DefaultSampleLimit. Column resolution happens
// before any data row is read.
func FetchSampleRows(ctx context.Context, wb Workbook, sheetName string, limit int) ([]SampleRow, error) {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}

	sheet, err := wb.Sheet(ctx, sheetName)
	if err != nil {
		return nil, err
	}

	rowCount, err := sheet.RowCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting rows in %q: %w", sheetName, err)
	}

	var headers []string
	if rowCount > 0 {
		rows, err := sheet.ReadRows(ctx, 1, 1)
		if err != nil {
			return nil, fmt.Errorf("reading header of %q: %w", sheetName, err)
		}
		if len(rows) > 0 {
			headers = rows[0]
		}
	}

	var idx [3]int
	var missing []string
	for i, name := range []string{ColumnID, ColumnCreatedAt, ColumnContent} {
		col, err := ResolveColumnIndex(headers, name)
		if err != nil {
			missing = append(missing, name)
			continue
		}
		idx[i] = col
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Sheet: sheetName, Columns: missing}
	}

	n := min(limit, rowCount-1)
	if n <= 0 {
		return []SampleRow{}, nil
	}

	rows, err := sheet.ReadRows(ctx, 2, n)
	if err != nil {
		return nil, fmt.Errorf("reading rows of %q: %w", sheetName, err)
	}
	if len(rows) > n {
		rows = rows[:n]
	}

	out := make([]SampleRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, SampleRow{
			ID:        cell(row, idx[0]),
			CreatedAt: cell(row, idx[1]),
			Content:   cell(row, idx[2]),
		})
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
