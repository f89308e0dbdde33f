// Package view derives display-only values from a fetched report. Nothing
// here performs I/O or mutates the report.
package view

import (
	"fmt"

	"github.com/voc-insights/vocdash/internal/report"
)

const (
	// TopIssuesPerPhase is how many issues the phase table shows per phase.
	TopIssuesPerPhase = 3
	// DefaultMaxIssueQuotes is how many example quotes an issue card shows.
	DefaultMaxIssueQuotes = 2
)

// Options tunes Compose.
type Options struct {
	MaxIssueQuotes int
}

// Dashboard is the view model for the dashboard page.
type Dashboard struct {
	GeneratedAt     string
	PeriodLabel     string
	PeriodStart     string
	PeriodEnd       string
	StatCards       []StatCard
	TopIssues       []IssueCard
	PhaseTotal      int
	PhaseTotalLabel string
	Phases          []PhaseRow
	Trends          []TrendView
	Quotes          []string
	Recommendations []Bucket
}

// StatCard is one of the fixed header metrics.
type StatCard struct {
	Label string
	Value string
	Hint  string
}

// IssueCard is a ranked top-issue card.
type IssueCard struct {
	Rank          int
	Key           string
	Count         string
	PreviousCount string
	Change        string
	Trend         string // up, down, flat or new; used as a CSS modifier
	Emoji         string
	Summary       string
	Quotes        []string
}

// PhaseRow is one row of the phase breakdown table.
type PhaseRow struct {
	Name   string
	Total  string
	Share  string
	Issues []PhaseIssueView
}

// PhaseIssueView is an issue nested inside a phase row.
type PhaseIssueView struct {
	Key    string
	Count  string
	Change string
	Trend  string
}

// TrendView is a rendered trend card.
type TrendView struct {
	Category    string
	Change      string
	Status      string
	StatusLabel string
	Emoji       string
}

// Bucket is a recommendation horizon.
type Bucket struct {
	Key   string
	Title string
	Items []string
}

// Compose builds the dashboard view model from a report.
func Compose(r *report.Report, opts Options) Dashboard {
	if opts.MaxIssueQuotes <= 0 {
		opts.MaxIssueQuotes = DefaultMaxIssueQuotes
	}

	d := Dashboard{
		GeneratedAt: FormatGeneratedAt(r.Meta.GeneratedAt),
		PeriodLabel: r.Meta.AnalysisPeriod.Label,
		PeriodStart: FormatDate(r.Meta.AnalysisPeriod.Start),
		PeriodEnd:   FormatDate(r.Meta.AnalysisPeriod.End),
		StatCards:   statCards(r),
		PhaseTotal:  PhaseTotal(r.Issues.PhaseBreakdown),
		Quotes:      r.Samples.RecentQuotes,
		Recommendations: []Bucket{
			{Key: "short_term", Title: "단기", Items: r.Recommendations.ShortTerm},
			{Key: "mid_term", Title: "중기", Items: r.Recommendations.MidTerm},
			{Key: "long_term", Title: "장기", Items: r.Recommendations.LongTerm},
		},
	}
	d.PhaseTotalLabel = FormatCount(d.PhaseTotal)
	if d.PeriodLabel == "" {
		d.PeriodLabel = "최근 30일"
	}

	d.TopIssues = make([]IssueCard, 0, len(r.Issues.TopRecent30d))
	for _, is := range r.Issues.TopRecent30d {
		card := IssueCard{
			Rank:          is.Rank,
			Key:           is.IssueKey,
			Count:         FormatCount(is.Count),
			PreviousCount: FormatCount(is.PreviousCount),
			Change:        FormatChangePct(is.ChangePct),
			Trend:         trendClass(is.ChangePct),
			Emoji:         IssueEmoji(is.ChangePct),
			Quotes:        firstStrings(is.Quotes, opts.MaxIssueQuotes),
		}
		if is.Summary != nil {
			card.Summary = *is.Summary
		}
		d.TopIssues = append(d.TopIssues, card)
	}

	d.Phases = make([]PhaseRow, 0, len(r.Issues.PhaseBreakdown))
	for _, p := range r.Issues.PhaseBreakdown {
		row := PhaseRow{
			Name:  p.Name,
			Total: FormatCount(p.Total),
			Share: share(p.Total, d.PhaseTotal),
		}
		for _, is := range TopIssues(p.Issues, TopIssuesPerPhase) {
			row.Issues = append(row.Issues, PhaseIssueView{
				Key:    is.IssueKey,
				Count:  FormatCount(is.Count),
				Change: FormatChangePct(is.ChangePct),
				Trend:  trendClass(is.ChangePct),
			})
		}
		d.Phases = append(d.Phases, row)
	}

	d.Trends = make([]TrendView, 0, len(r.Issues.TrendCards))
	for _, c := range r.Issues.TrendCards {
		d.Trends = append(d.Trends, TrendView{
			Category:    c.Category,
			Change:      FormatChangePct(c.ChangePct),
			Status:      c.Status,
			StatusLabel: TrendStatusLabel(c.Status),
			Emoji:       TrendEmoji(c),
		})
	}

	return d
}

// PhaseTotal sums the totals of every phase.
func PhaseTotal(phases []report.PhaseEntry) int {
	total := 0
	for _, p := range phases {
		total += p.Total
	}
	return total
}

// TopIssues returns the first n issues in their given order.
func TopIssues(issues []report.PhaseIssue, n int) []report.PhaseIssue {
	if n < 0 {
		n = 0
	}
	if len(issues) <= n {
		return issues
	}
	return issues[:n]
}

func statCards(r *report.Report) []StatCard {
	w := r.Windows
	var vsPrev *float64
	if w.Prev30dCount > 0 {
		pct := float64(w.Recent30dCount-w.Prev30dCount) / float64(w.Prev30dCount) * 100
		vsPrev = &pct
	}
	return []StatCard{
		{Label: "VOC 총량", Value: FormatCount(r.Meta.TotalCount), Hint: "전체 누적"},
		{Label: "최근 30일", Value: FormatCount(w.Recent30dCount), Hint: "직전 30일 대비 " + FormatChangePct(vsPrev)},
		{Label: "직전 30일", Value: FormatCount(w.Prev30dCount), Hint: "31~60일 전"},
		{Label: "최근 90일", Value: FormatCount(w.Recent90dCount), Hint: "분기 누적"},
	}
}

func trendClass(pct *float64) string {
	if pct == nil {
		return "new"
	}
	switch v := roundPct(*pct); {
	case v > 0:
		return "up"
	case v < 0:
		return "down"
	default:
		return "flat"
	}
}

func share(part, total int) string {
	if total <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}

func firstStrings(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
