package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used for ranges and API parameters.
const DateLayout = "2006-01-02"

// ErrCancelled is returned when the caller cancels or times out a run.
// Errors carrying it also unwrap to the context error that caused it.
var ErrCancelled = errors.New("cancelled")

// Cancelled wraps a context error so that both errors.Is(err, ErrCancelled)
// and errors.Is(err, context.Canceled) hold.
func Cancelled(ctx context.Context) error {
	cause := ctx.Err()
	if cause == nil {
		cause = context.Canceled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days is the inclusive number of calendar days in the range.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + " to " + r.End.Format(DateLayout)
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	day := t.Truncate(24 * time.Hour)
	return !day.Before(r.Start.Truncate(24*time.Hour)) && !day.After(r.End.Truncate(24*time.Hour))
}

type PricePoint struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Series is a price history ordered by time ascending.
type Series struct {
	Symbol string       `json:"symbol"`
	Name   string       `json:"name"`
	Points []PricePoint `json:"points"`
}

func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Last returns the latest point, ok=false when the series is empty.
func (s Series) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

type NewsItem struct {
	Headline  string    `json:"headline"`
	Source    string    `json:"source"`
	URL       string    `json:"url,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Published time.Time `json:"published"`
}

// Key identifies a news item for de-duplication: headline and source, case and
// whitespace insensitive.
func (n NewsItem) Key() string {
	return strings.ToLower(strings.Join(strings.Fields(n.Headline), " ")) + "|" +
		strings.ToLower(strings.TrimSpace(n.Source))
}

// SourceData is one source's contribution to a snapshot. Nil maps are allowed.
type SourceData struct {
	Prices     map[string]Series  `json:"prices,omitempty"`
	Indices    map[string]Series  `json:"indices,omitempty"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	News       []NewsItem         `json:"news,omitempty"`
}

// Empty reports whether the source contributed nothing.
func (d *SourceData) Empty() bool {
	return d == nil || (len(d.Prices) == 0 && len(d.Indices) == 0 && len(d.Indicators) == 0 && len(d.News) == 0)
}

type SourceStatus struct {
	Name     string        `json:"name"`
	OK       bool          `json:"ok"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// MarketSnapshot aggregates all sources for a date range. Maps are never nil.
type MarketSnapshot struct {
	Range       DateRange          `json:"range"`
	Prices      map[string]Series  `json:"prices"`
	Indices     map[string]Series  `json:"indices"`
	Indicators  map[string]float64 `json:"indicators"`
	News        []NewsItem         `json:"news"`
	Sources     []SourceStatus     `json:"sources"`
	// Degraded is set when at least one source failed.
	Degraded bool `json:"degraded"`
	// Unavailable is set when no source could be reached at all.
	Unavailable bool     `json:"unavailable"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// NewSnapshot returns a snapshot with all fields empty but non-nil.
func NewSnapshot(r DateRange) *MarketSnapshot {
	return &MarketSnapshot{
		Range:      r,
		Prices:     map[string]Series{},
		Indices:    map[string]Series{},
		Indicators: map[string]float64{},
		News:       []NewsItem{},
		Sources:    []SourceStatus{},
	}
}

func (s *MarketSnapshot) Empty() bool {
	return len(s.Prices) == 0 && len(s.Indices) == 0 && len(s.Indicators) == 0 && len(s.News) == 0
}

type SectionID string

const (
	ExecutiveSummary                SectionID = "executive_summary"
	GlobalOverview                  SectionID = "global_overview"
	MacroTrends                     SectionID = "macro_trends"
	SectorHighlights                SectionID = "sector_highlights"
	ConsumerInsights                SectionID = "consumer_insights"
	InvestmentOutlook               SectionID = "investment_outlook"
	RisksAndChallenges              SectionID = "risks_and_challenges"
	OpportunitiesAndRecommendations SectionID = "opportunities_and_recommendations"
)

type SectionResult struct {
	ID       SectionID `json:"id"`
	Ordinal  int       `json:"ordinal"`
	Title    string    `json:"title"`
	Text     string    `json:"text"`
	Provider string    `json:"provider,omitempty"`
	Success  bool      `json:"success"`
	Err      string    `json:"error,omitempty"`
}

type ReportMetadata struct {
	Range         DateRange      `json:"range"`
	GeneratedAt   time.Time      `json:"generated_at"`
	ProvidersUsed []string       `json:"providers_used"`
	Succeeded     int            `json:"succeeded"`
	Total         int            `json:"total"`
	Degraded      bool           `json:"degraded"`
	Sources       []SourceStatus `json:"sources"`
}

type Report struct {
	RunID    string          `json:"run_id"`
	Sections []SectionResult `json:"sections"`
	Metadata ReportMetadata  `json:"metadata"`
}

// CompletionRequest is what the orchestrator hands to a provider.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// JoinData appends a data block to a prompt the way every section sends it.
func JoinData(prompt, data string) string {
	if strings.TrimSpace(data) == "" {
		return prompt
	}
	return prompt + "\n\nData to analyze:\n" + data
}
