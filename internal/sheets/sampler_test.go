package sheets

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeSheet struct {
	rows  [][]string
	reads []int // start row of every ReadRows call
}

func (s *fakeSheet) RowCount(ctx context.Context) (int, error) {
	return len(s.rows), nil
}

func (s *fakeSheet) ReadRows(ctx context.Context, start, n int) ([][]string, error) {
	s.reads = append(s.reads, start)
	from := start - 1
	if from >= len(s.rows) {
		return nil, nil
	}
	to := min(from+n, len(s.rows))
	return s.rows[from:to], nil
}

type fakeWorkbook map[string]*fakeSheet

func (w fakeWorkbook) Sheet(ctx context.Context, name string) (Sheet, error) {
	s, ok := w[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	return s, nil
}

func dataRows(n int) [][]string {
	rows := [][]string{{"_id", "created_at", "phase", "content"}}
	for i := 1; i <= n; i++ {
		rows = append(rows, []string{fmt.Sprintf("id-%d", i), "2025-03-01", "진행", fmt.Sprintf("내용 %d", i)})
	}
	return rows
}

func TestFetchSampleRowsLimit(t *testing.T) {
	wb := fakeWorkbook{"raw data": {rows: dataRows(10)}}

	rows, err := FetchSampleRows(context.Background(), wb, "raw data", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, r := range rows {
		want := fmt.Sprintf("id-%d", i+1)
		if r.ID != want {
			t.Errorf("row %d: expected %s, got %s", i, want, r.ID)
		}
		if r.Content != fmt.Sprintf("내용 %d", i+1) {
			t.Errorf("row %d: unexpected content %q", i, r.Content)
		}
	}
}

func TestFetchSampleRowsHeaderOnly(t *testing.T) {
	wb := fakeWorkbook{"raw data": {rows: dataRows(0)}}

	rows, err := FetchSampleRows(context.Background(), wb, "raw data", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("expected empty, non-nil result, got %#v", rows)
	}
}

func TestFetchSampleRowsFewerThanLimit(t *testing.T) {
	wb := fakeWorkbook{"raw data": {rows: dataRows(2)}}

	rows, err := FetchSampleRows(context.Background(), wb, "raw data", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
}

func TestFetchSampleRowsMissingColumns(t *testing.T) {
	sheet := &fakeSheet{rows: [][]string{
		{"_id", "created_at", "phase"},
		{"id-1", "2025-03-01", "진행"},
	}}
	wb := fakeWorkbook{"raw data": sheet}

	_, err := FetchSampleRows(context.Background(), wb, "raw data", 3)
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	var mce *MissingColumnsError
	if !errors.As(err, &mce) {
		t.Fatalf("expected *MissingColumnsError, got %T", err)
	}
	if len(mce.Columns) != 1 || mce.Columns[0] != ColumnContent {
		t.Errorf("expected only content to be missing, got %v", mce.Columns)
	}
	for _, start := range sheet.reads {
		if start > 1 {
			t.Errorf("data row %d read before column check", start)
		}
	}
}

func TestFetchSampleRowsListsAllMissing(t *testing.T) {
	wb := fakeWorkbook{"raw data": {rows: [][]string{{"phase"}}}}

	_, err := FetchSampleRows(context.Background(), wb, "raw data", 3)
	var mce *MissingColumnsError
	if !errors.As(err, &mce) {
		t.Fatalf("expected *MissingColumnsError, got %v", err)
	}
	if len(mce.Columns) != 3 {
		t.Errorf("expected all three columns missing, got %v", mce.Columns)
	}
}

func TestFetchSampleRowsSheetNotFound(t *testing.T) {
	_, err := FetchSampleRows(context.Background(), fakeWorkbook{}, "raw data", 3)
	if !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestFetchSampleRowsShortRows(t *testing.T) {
	wb := fakeWorkbook{"raw data": {rows: [][]string{
		{"content", "_id", "created_at"},
		{"앞 열만"},
	}}}

	rows, err := FetchSampleRows(context.Background(), wb, "raw data", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Content != "앞 열만" || rows[0].ID != "" || rows[0].CreatedAt != "" {
		t.Errorf("unexpected row %+v", rows[0])
	}
}

func TestResolveColumnIndex(t *testing.T) {
	headers := []string{"_id", "created_at", "content", "Content"}

	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"_id", 0, false},
		{"content", 2, false},
		{"Content", 3, false},
		{"contents", -1, true},
		{" content", -1, true},
	}
	for _, tt := range tests {
		got, err := ResolveColumnIndex(headers, tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrColumnNotFound) {
				t.Errorf("%q: expected ErrColumnNotFound, got %v", tt.name, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: expected %d, got %d (%v)", tt.name, tt.want, got, err)
		}
	}
}
