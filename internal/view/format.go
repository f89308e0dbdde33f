package view

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/voc-insights/vocdash/internal/report"
)

// NoBaselineLabel is shown instead of a percentage when there is no
// previous-period baseline.
const NoBaselineLabel = "신규"

// KST is Korea Standard Time. Korea observes no daylight saving time.
var KST = time.FixedZone("KST", 9*60*60)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// FormatChangePct renders a change percentage with one decimal place. Values
// that round to zero or above carry an explicit "+"; nil renders
// NoBaselineLabel.
func FormatChangePct(pct *float64) string {
	if pct == nil {
		return NoBaselineLabel
	}
	v := roundPct(*pct)
	if v >= 0 {
		return fmt.Sprintf("+%.1f%%", v)
	}
	return fmt.Sprintf("%.1f%%", v)
}

// roundPct rounds to the displayed precision. A result of zero is always +0,
// so -0 and small negatives never render as "-0.0".
func roundPct(v float64) float64 {
	v = math.Round(v*10) / 10
	if v == 0 {
		return 0
	}
	return v
}

// FormatGeneratedAt renders a backend timestamp in KST using the Korean
// locale convention, e.g. "2025. 3. 4. 오후 3:20:00". Timestamps without a
// zone are taken as UTC. Unparsable input is returned unchanged.
func FormatGeneratedAt(raw string) string {
	t, ok := parseTimestamp(raw)
	if !ok {
		return raw
	}
	return formatKorean(t.In(KST))
}

// FormatDate renders an optional period boundary as a KST date.
func FormatDate(raw *string) string {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return "-"
	}
	t, ok := parseTimestamp(*raw)
	if !ok {
		return *raw
	}
	k := t.In(KST)
	return fmt.Sprintf("%d. %d. %d.", k.Year(), int(k.Month()), k.Day())
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatKorean(t time.Time) string {
	meridiem := "오전"
	hour := t.Hour()
	if hour >= 12 {
		meridiem = "오후"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d. %d. %d. %s %d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), meridiem, hour, t.Minute(), t.Second())
}

// FormatCount renders a count with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// IssueEmoji maps an issue's change to a severity glyph.
func IssueEmoji(pct *float64) string {
	switch {
	case pct == nil:
		return "🆕"
	case *pct >= 30:
		return "🔴"
	case *pct >= 10:
		return "🟡"
	default:
		return "🟢"
	}
}

// TrendStatusLabel returns the display label for a trend status.
func TrendStatusLabel(status string) string {
	switch status {
	case report.StatusIncrease:
		return "급증"
	case report.StatusModerate:
		return "증가"
	case report.StatusStable:
		return "안정"
	default:
		return status
	}
}

// TrendEmoji returns the card's glyph, falling back to one derived from its
// status when the backend sent none.
func TrendEmoji(card report.TrendCard) string {
	if card.Emoji != "" {
		return card.Emoji
	}
	switch card.Status {
	case report.StatusIncrease:
		return "🔴"
	case report.StatusModerate:
		return "🟡"
	default:
		return "🟢"
	}
}
