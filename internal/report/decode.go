package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Wire shapes use pointers so that absent required fields can be told apart
// from zero values.

type wireReport struct {
	Meta            *wireMeta            `json:"meta"`
	Windows         *wireWindows         `json:"windows"`
	Issues          *wireIssues          `json:"issues"`
	Samples         *wireSamples         `json:"samples"`
	Recommendations *wireRecommendations `json:"recommendations"`
}

type wireMeta struct {
	GeneratedAt    *string     `json:"generated_at"`
	AnalysisPeriod *wirePeriod `json:"analysis_period"`
	TotalCount     *int        `json:"total_count"`
}

type wirePeriod struct {
	Label string  `json:"label"`
	Start *string `json:"start"`
	End   *string `json:"end"`
}

type wireWindows struct {
	Recent30dCount *int `json:"recent_30d_count"`
	Prev30dCount   *int `json:"prev_30d_count"`
	Recent90dCount *int `json:"recent_90d_count"`
}

type wireIssues struct {
	TopRecent30d   []wireIssue                                    `json:"top_recent_30d"`
	PhaseBreakdown *orderedmap.OrderedMap[string, wirePhaseEntry] `json:"phase_breakdown"`
	PhaseCounts    *orderedmap.OrderedMap[string, int]            `json:"phase_counts"`
	TrendCards     []wireTrendCard                                `json:"trend_cards"`
}

type wireIssue struct {
	Rank          *int     `json:"rank"`
	IssueKey      *string  `json:"issue_key"`
	Category      *string  `json:"category"`
	Count         *int     `json:"count"`
	PreviousCount *int     `json:"previous_count"`
	ChangePct     *float64 `json:"change_pct"`
	Summary       *string  `json:"summary"`
	Quotes        []string `json:"quotes"`
}

type wirePhaseEntry struct {
	Total  *int        `json:"total"`
	Issues []wireIssue `json:"issues"`
}

type wireTrendCard struct {
	Category  *string  `json:"category"`
	ChangePct *float64 `json:"change_pct"`
	Status    *string  `json:"status"`
	Emoji     string   `json:"emoji"`
}

type wireSamples struct {
	RecentQuotes []string `json:"recent_quotes"`
}

type wireRecommendations struct {
	ShortTerm []string `json:"short_term"`
	MidTerm   []string `json:"mid_term"`
	LongTerm  []string `json:"long_term"`
}

// Decode parses and validates a report body. Every schema violation is
// returned as a *MalformedError naming the offending field.
func Decode(data []byte) (*Report, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &MalformedError{Reason: "empty body"}
	}

	var w wireReport
	if err := json.Unmarshal(data, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &MalformedError{Field: typeErr.Field, Reason: "expected " + typeErr.Type.String(), Err: err}
		}
		return nil, &MalformedError{Reason: "invalid JSON", Err: err}
	}
	return w.toReport()
}

func (w *wireReport) toReport() (*Report, error) {
	r := &Report{}

	if w.Meta == nil {
		return nil, missing("meta")
	}
	if w.Meta.GeneratedAt == nil {
		return nil, missing("meta.generated_at")
	}
	if w.Meta.AnalysisPeriod == nil {
		return nil, missing("meta.analysis_period")
	}
	total, err := count("meta.total_count", w.Meta.TotalCount)
	if err != nil {
		return nil, err
	}
	r.Meta = Meta{
		GeneratedAt: *w.Meta.GeneratedAt,
		AnalysisPeriod: AnalysisPeriod{
			Label: w.Meta.AnalysisPeriod.Label,
			Start: w.Meta.AnalysisPeriod.Start,
			End:   w.Meta.AnalysisPeriod.End,
		},
		TotalCount: total,
	}

	if w.Windows == nil {
		return nil, missing("windows")
	}
	if r.Windows.Recent30dCount, err = count("windows.recent_30d_count", w.Windows.Recent30dCount); err != nil {
		return nil, err
	}
	if r.Windows.Prev30dCount, err = count("windows.prev_30d_count", w.Windows.Prev30dCount); err != nil {
		return nil, err
	}
	if r.Windows.Recent90dCount, err = count("windows.recent_90d_count", w.Windows.Recent90dCount); err != nil {
		return nil, err
	}

	if w.Issues == nil {
		return nil, missing("issues")
	}
	if r.Issues, err = w.Issues.toIssues(); err != nil {
		return nil, err
	}

	if w.Samples == nil {
		return nil, missing("samples")
	}
	r.Samples.RecentQuotes = nonNil(w.Samples.RecentQuotes)

	if w.Recommendations == nil {
		return nil, missing("recommendations")
	}
	r.Recommendations = Recommendations{
		ShortTerm: nonNil(w.Recommendations.ShortTerm),
		MidTerm:   nonNil(w.Recommendations.MidTerm),
		LongTerm:  nonNil(w.Recommendations.LongTerm),
	}

	return r, nil
}

func (w *wireIssues) toIssues() (Issues, error) {
	var out Issues

	seen := make(map[int]bool, len(w.TopRecent30d))
	prevRank := 0
	out.TopRecent30d = make([]IssueSummary, 0, len(w.TopRecent30d))
	for i, wi := range w.TopRecent30d {
		path := fmt.Sprintf("issues.top_recent_30d[%d]", i)
		if wi.Rank == nil {
			return Issues{}, missing(path + ".rank")
		}
		if *wi.Rank <= 0 {
			return Issues{}, invalid(path+".rank", "must be positive")
		}
		if seen[*wi.Rank] {
			return Issues{}, invalid(path+".rank", fmt.Sprintf("duplicate rank %d", *wi.Rank))
		}
		if *wi.Rank <= prevRank {
			return Issues{}, invalid(path+".rank", fmt.Sprintf("rank %d follows rank %d", *wi.Rank, prevRank))
		}
		seen[*wi.Rank] = true
		prevRank = *wi.Rank

		pi, err := wi.toPhaseIssue(path)
		if err != nil {
			return Issues{}, err
		}
		out.TopRecent30d = append(out.TopRecent30d, IssueSummary{Rank: *wi.Rank, PhaseIssue: pi})
	}

	switch {
	case w.PhaseBreakdown != nil:
		out.PhaseBreakdown = make([]PhaseEntry, 0, w.PhaseBreakdown.Len())
		for pair := w.PhaseBreakdown.Oldest(); pair != nil; pair = pair.Next() {
			path := fmt.Sprintf("issues.phase_breakdown[%q]", pair.Key)
			total, err := count(path+".total", pair.Value.Total)
			if err != nil {
				return Issues{}, err
			}
			entry := PhaseEntry{Name: pair.Key, Total: total, Issues: make([]PhaseIssue, 0, len(pair.Value.Issues))}
			for i, wi := range pair.Value.Issues {
				pi, err := wi.toPhaseIssue(fmt.Sprintf("%s.issues[%d]", path, i))
				if err != nil {
					return Issues{}, err
				}
				entry.Issues = append(entry.Issues, pi)
			}
			out.PhaseBreakdown = append(out.PhaseBreakdown, entry)
		}
	case w.PhaseCounts != nil:
		// Older analyzer output only carried per-phase counts.
		out.PhaseBreakdown = make([]PhaseEntry, 0, w.PhaseCounts.Len())
		for pair := w.PhaseCounts.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Value < 0 {
				return Issues{}, invalid(fmt.Sprintf("issues.phase_counts[%q]", pair.Key), "must be non-negative")
			}
			out.PhaseBreakdown = append(out.PhaseBreakdown, PhaseEntry{Name: pair.Key, Total: pair.Value, Issues: []PhaseIssue{}})
		}
	default:
		out.PhaseBreakdown = []PhaseEntry{}
	}

	out.TrendCards = make([]TrendCard, 0, len(w.TrendCards))
	for i, wt := range w.TrendCards {
		path := fmt.Sprintf("issues.trend_cards[%d]", i)
		if wt.Category == nil {
			return Issues{}, missing(path + ".category")
		}
		if wt.Status == nil {
			return Issues{}, missing(path + ".status")
		}
		switch *wt.Status {
		case StatusIncrease, StatusModerate, StatusStable:
		default:
			return Issues{}, invalid(path+".status", fmt.Sprintf("unknown status %q", *wt.Status))
		}
		out.TrendCards = append(out.TrendCards, TrendCard{
			Category:  *wt.Category,
			ChangePct: wt.ChangePct,
			Status:    *wt.Status,
			Emoji:     wt.Emoji,
		})
	}

	return out, nil
}

// toPhaseIssue also accepts the older analyzer shape, which keyed issues by
// category and carried no previous-period count. Such issues have no baseline.
func (wi wireIssue) toPhaseIssue(path string) (PhaseIssue, error) {
	key := wi.IssueKey
	if key == nil {
		key = wi.Category
	}
	if key == nil {
		return PhaseIssue{}, missing(path + ".issue_key")
	}
	c, err := count(path+".count", wi.Count)
	if err != nil {
		return PhaseIssue{}, err
	}
	prev, change := 0, wi.ChangePct
	if wi.PreviousCount == nil {
		change = nil
	} else if prev, err = count(path+".previous_count", wi.PreviousCount); err != nil {
		return PhaseIssue{}, err
	}
	return PhaseIssue{
		IssueKey:      *key,
		Count:         c,
		PreviousCount: prev,
		ChangePct:     change,
		Summary:       wi.Summary,
		Quotes:        wi.Quotes,
	}, nil
}

func count(field string, v *int) (int, error) {
	if v == nil {
		return 0, missing(field)
	}
	if *v < 0 {
		return 0, invalid(field, "must be non-negative")
	}
	return *v, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
