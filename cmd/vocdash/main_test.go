package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/voc-insights/vocdash/internal/sheets"
)

func TestPrintSampleRows(t *testing.T) {
	var buf bytes.Buffer
	printSampleRows(&buf, []sheets.SampleRow{
		{ID: "a1", CreatedAt: "2025-03-01", Content: "노트북이 아직 안 왔어요"},
	})

	out := buf.String()
	for _, want := range []string{"CREATED AT", "CONTENT", "a1", "노트북이 아직 안 왔어요"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in table output:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("가나다라", 2); got != "가나..." {
		t.Errorf("expected rune-aware truncation, got %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
}
