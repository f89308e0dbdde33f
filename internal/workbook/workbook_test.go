package workbook

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/voc-insights/vocdash/internal/sheets"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "workbook.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

const rawDataCSV = "\ufeff_id,created_at,phase,content\n" +
	"a1,2025-03-01,준비,노트북이 아직 안 왔어요\n" +
	"a2,2025-03-02,진행,\"멘토링 시간이, 부족해요\"\n" +
	"a3,,행정,\n" +
	"a4,2025-03-04,진행,출석 체크 오류\n"

func TestMigrateNewDB(t *testing.T) {
	db := openTestDB(t)

	version, err := getSchemaVersion(db.conn)
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), version)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "idem.db")

	db1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	db1.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer db2.Close()

	version, err := getSchemaVersion(db2.conn)
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), version)
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	db := openTestDB(t)

	checks := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
	}
	for _, c := range checks {
		var got string
		if err := db.conn.QueryRow("PRAGMA " + c.pragma).Scan(&got); err != nil {
			t.Fatalf("reading %s: %v", c.pragma, err)
		}
		if got != c.want {
			t.Errorf("%s: expected %q, got %q", c.pragma, c.want, got)
		}
	}
	if n := db.conn.Stats().MaxOpenConnections; n != 1 {
		t.Errorf("expected a single pooled connection, got %d", n)
	}
}

func TestGetSchemaVersionNewDB(t *testing.T) {
	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	version, err := getSchemaVersion(conn)
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 on new db, got %d", version)
	}
}

func TestImportCSV(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	n, err := db.ImportCSV(ctx, "raw data", strings.NewReader(rawDataCSV), "export.csv")
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 rows, got %d", n)
	}

	sheet, err := db.Sheet(ctx, "raw data")
	if err != nil {
		t.Fatalf("Sheet: %v", err)
	}
	count, _ := sheet.RowCount(ctx)
	if count != 5 {
		t.Errorf("expected row count 5, got %d", count)
	}

	header, err := sheet.ReadRows(ctx, 1, 1)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if header[0][0] != "_id" {
		t.Errorf("expected BOM to be stripped, got %q", header[0][0])
	}

	rows, err := sheet.ReadRows(ctx, 3, 2)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][3] != "멘토링 시간이, 부족해요" {
		t.Errorf("unexpected quoted cell %q", rows[0][3])
	}
	// Row 4 has empty created_at and content; trailing empties are dropped.
	if len(rows[1]) != 3 || rows[1][1] != "" || rows[1][2] != "행정" {
		t.Errorf("unexpected sparse row %q", rows[1])
	}
}

func TestImportReplacesSheet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ImportCSV(ctx, "raw data", strings.NewReader(rawDataCSV), "first.csv"); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if _, err := db.ImportCSV(ctx, "raw data", strings.NewReader("_id,created_at,content\n"), "second.csv"); err != nil {
		t.Fatalf("second import: %v", err)
	}

	infos, err := db.ListSheets(ctx)
	if err != nil {
		t.Fatalf("ListSheets: %v", err)
	}
	if len(infos) != 1 || infos[0].RowCount != 1 {
		t.Fatalf("expected one sheet with 1 row, got %+v", infos)
	}

	var cells int
	db.conn.QueryRow("SELECT COUNT(*) FROM cells WHERE sheet = 'raw data'").Scan(&cells)
	if cells != 3 {
		t.Errorf("expected old cells to be removed, got %d cells", cells)
	}
}

func TestSheetNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Sheet(context.Background(), "missing"); !errors.Is(err, sheets.ErrSheetNotFound) {
		t.Errorf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestSamplerOverWorkbook(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.ImportCSV(ctx, "raw data", strings.NewReader(rawDataCSV), "export.csv"); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}

	rows, err := sheets.FetchSampleRows(ctx, db, "raw data", sheets.DefaultSampleLimit)
	if err != nil {
		t.Fatalf("FetchSampleRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].ID != "a1" || rows[0].Content != "노트북이 아직 안 왔어요" {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[2].ID != "a3" || rows[2].CreatedAt != "" || rows[2].Content != "" {
		t.Errorf("unexpected sparse row %+v", rows[2])
	}
}
