package report

// Report is the pre-computed VOC report returned by the backend. It is built
// fresh for each fetch and never mutated or persisted.
type Report struct {
	Meta            Meta
	Windows         Windows
	Issues          Issues
	Samples         Samples
	Recommendations Recommendations
}

// Meta describes when and over which period the report was generated.
type Meta struct {
	GeneratedAt    string // ISO-ish timestamp from the backend, display only
	AnalysisPeriod AnalysisPeriod
	TotalCount     int
}

// AnalysisPeriod is the labelled window the report covers.
type AnalysisPeriod struct {
	Label string
	Start *string
	End   *string
}

// Windows holds independent rolling-window counters.
type Windows struct {
	Recent30dCount int
	Prev30dCount   int
	Recent90dCount int
}

// Issues groups the issue-level sections of the report.
type Issues struct {
	TopRecent30d   []IssueSummary
	PhaseBreakdown []PhaseEntry // backend key order
	TrendCards     []TrendCard
}

// PhaseIssue is a single issue inside a phase breakdown.
type PhaseIssue struct {
	IssueKey      string
	Count         int
	PreviousCount int
	ChangePct     *float64 // nil: no previous-period baseline
	Summary       *string
	Quotes        []string // nil: absent
}

// IssueSummary is a ranked entry of the top issue list.
type IssueSummary struct {
	Rank int
	PhaseIssue
}

// PhaseEntry is one phase of the phase breakdown mapping.
type PhaseEntry struct {
	Name   string
	Total  int
	Issues []PhaseIssue
}

// Trend statuses.
const (
	StatusIncrease = "increase"
	StatusModerate = "moderate"
	StatusStable   = "stable"
)

// TrendCard is a per-category trend indicator.
type TrendCard struct {
	Category  string
	ChangePct *float64 // nil: new category, no baseline
	Status    string
	Emoji     string
}

// Samples holds representative learner quotes.
type Samples struct {
	RecentQuotes []string
}

// Recommendations holds suggested actions per horizon.
type Recommendations struct {
	ShortTerm []string
	MidTerm   []string
	LongTerm  []string
}
