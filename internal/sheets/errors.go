package sheets

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSheetNotFound is returned when the workbook has no sheet with the
	// requested name.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrColumnNotFound is returned by ResolveColumnIndex.
	ErrColumnNotFound = errors.New("column not found")
	// ErrMissingColumns matches any *MissingColumnsError.
	ErrMissingColumns = errors.New("missing required columns")
)

// MissingColumnsError lists every required column absent from a header row.
type MissingColumnsError struct {
	Sheet   string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("sheet %q is missing required columns: %s", e.Sheet, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}
