package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"market-report/internal/interfaces"
	"market-report/internal/logger"
	"market-report/internal/store"
	"market-report/internal/trace"
	"market-report/internal/types"
)

const (
	DefaultConcurrency   = 4
	DefaultSourceTimeout = 30 * time.Second
	DefaultMaxRangeDays  = 365
)

// Aggregator fetches every source for a date range and merges what succeeded.
type Aggregator struct {
	sources        []interfaces.Source
	concurrency    int
	sourceTimeout  time.Duration
	maxRangeDays   int
	indicatorMerge string
}

type Option func(*Aggregator)

func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func WithSourceTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.sourceTimeout = d
		}
	}
}

func WithMaxRangeDays(days int) Option {
	return func(a *Aggregator) {
		if days > 0 {
			a.maxRangeDays = days
		}
	}
}

// WithIndicatorMerge selects how conflicting indicator values resolve:
// store.IndicatorMergeLast (later source in configured order wins) or
// store.IndicatorMergeFirst.
func WithIndicatorMerge(policy string) Option {
	return func(a *Aggregator) {
		if policy == store.IndicatorMergeFirst || policy == store.IndicatorMergeLast {
			a.indicatorMerge = policy
		}
	}
}

// NewAggregator keeps sources in the given order; that order drives every merge tie-break.
func NewAggregator(sources []interfaces.Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources:        sources,
		concurrency:    DefaultConcurrency,
		sourceTimeout:  DefaultSourceTimeout,
		maxRangeDays:   DefaultMaxRangeDays,
		indicatorMerge: store.IndicatorMergeLast,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ValidateRange checks start <= end and that the span is at most maxDays.
func ValidateRange(start, end time.Time, maxDays int) error {
	switch {
	case start.IsZero() || end.IsZero():
		return &InvalidRangeError{Start: start, End: end, Reason: "start and end dates are required"}
	case start.After(end):
		return &InvalidRangeError{Start: start, End: end, Reason: "start date is after end date"}
	case end.Sub(start) > time.Duration(maxDays)*24*time.Hour:
		return &InvalidRangeError{Start: start, End: end, Reason: fmt.Sprintf("range exceeds %d days", maxDays)}
	}
	return nil
}

type sourceResult struct {
	name     string
	data     *types.SourceData
	err      error
	duration time.Duration
}

// Fetch returns a snapshot for [start, end]. Source failures never fail the call;
// only an invalid range or cancellation does.
func (a *Aggregator) Fetch(ctx context.Context, start, end time.Time) (*types.MarketSnapshot, error) {
	if err := ValidateRange(start, end, a.maxRangeDays); err != nil {
		return nil, err
	}
	r := types.DateRange{Start: truncateDay(start), End: truncateDay(end)}

	op := logger.StartOperation(ctx, "marketdata.Fetch",
		"start", r.Start.Format(types.DateLayout),
		"end", r.End.Format(types.DateLayout),
		"sources", len(a.sources),
	)
	ctx = op.GetContext()

	results := make([]sourceResult, len(a.sources))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, src := range a.sources {
		g.Go(func() error {
			results[i] = a.fetchOne(ctx, src, r)
			return nil
		})
	}
	_ = g.Wait()

	// In-flight results are discarded on cancellation; nothing partial is returned.
	if ctx.Err() != nil {
		err := types.Cancelled(ctx)
		op.EndWithError(err)
		return nil, err
	}

	snap := a.merge(r, results)
	if snap.Unavailable {
		logger.Warn(ctx, "No market data sources reachable, continuing with empty snapshot",
			"sources", len(a.sources))
	}
	op.End(
		"prices", len(snap.Prices),
		"indices", len(snap.Indices),
		"indicators", len(snap.Indicators),
		"news", len(snap.News),
		"degraded", snap.Degraded,
	)
	return snap, nil
}

func (a *Aggregator) fetchOne(ctx context.Context, src interfaces.Source, r types.DateRange) (res sourceResult) {
	res.name = src.Name()
	ctx, span := trace.StartSpan(ctx, "marketdata.source")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		res.duration = time.Since(start)
		trace.RecordError(span, res.err)
		logger.SourceResult(ctx, res.name, res.err, res.duration)
	}()

	// Some clients (Kite, an in-flight colly request) ignore ctx, so the call runs
	// on its own goroutine and a late result is dropped.
	done := make(chan sourceResult, 1)
	go func() {
		out := sourceResult{name: res.name}
		defer func() {
			if p := recover(); p != nil {
				out.data = nil
				out.err = fmt.Errorf("panic: %v", p)
			}
			done <- out
		}()
		out.data, out.err = src.Fetch(ctx, r)
	}()

	select {
	case out := <-done:
		if out.err != nil {
			res.err = &SourceUnavailableError{Source: res.name, Err: out.err}
			return res
		}
		res.data = out.data
		return res
	case <-ctx.Done():
		res.err = &SourceUnavailableError{Source: res.name, Err: ctx.Err()}
		return res
	}
}

// merge walks results in configured source order so the outcome does not depend
// on which goroutine finished first.
func (a *Aggregator) merge(r types.DateRange, results []sourceResult) *types.MarketSnapshot {
	snap := types.NewSnapshot(r)
	seen := make(map[string]bool)
	reachable := 0

	for _, res := range results {
		status := types.SourceStatus{Name: res.name, OK: res.err == nil, Duration: res.duration}
		if res.err != nil {
			status.Err = res.err.Error()
			snap.Diagnostics = append(snap.Diagnostics, res.err.Error())
			snap.Sources = append(snap.Sources, status)
			continue
		}
		snap.Sources = append(snap.Sources, status)
		reachable++
		if res.data == nil {
			continue
		}

		mergeFirstWins(snap.Prices, res.data.Prices)
		mergeFirstWins(snap.Indices, res.data.Indices)
		for name, v := range res.data.Indicators {
			if _, exists := snap.Indicators[name]; exists && a.indicatorMerge == store.IndicatorMergeFirst {
				continue
			}
			snap.Indicators[name] = v
		}
		for _, n := range res.data.News {
			if n.Headline == "" {
				continue
			}
			k := n.Key()
			if seen[k] {
				continue
			}
			seen[k] = true
			snap.News = append(snap.News, n)
		}
	}

	sort.SliceStable(snap.News, func(i, j int) bool {
		return snap.News[i].Published.After(snap.News[j].Published)
	})

	snap.Degraded = reachable < len(results) || len(results) == 0
	if reachable == 0 {
		snap.Unavailable = true
		snap.Diagnostics = append(snap.Diagnostics, "no market data sources reachable")
	}
	return snap
}

// mergeFirstWins copies series for symbols not already present. Empty series
// do not claim a symbol.
func mergeFirstWins(dst, src map[string]types.Series) {
	for sym, s := range src {
		if len(s.Points) == 0 {
			continue
		}
		if _, exists := dst[sym]; exists {
			continue
		}
		dst[sym] = s
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
