package sections

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"market-report/internal/marketdata"
	"market-report/internal/types"
)

const (
	defaultNewsLimit = 10
	headlineLimit    = 30
	noData           = "No data available for this period."
)

// view is what section templates render over. Every block is pre-formatted text so
// templates stay declarative.
type view struct {
	Period     string
	Days       int
	Degraded   bool
	Indices    string
	Sectors    string
	Stocks     string
	Indicators string
	Sentiment  string
	VIX        string
	Volatility string
	Trends     string
	Headlines  string
	// News is filled per section from its keyword filter.
	News string
}

// snapshotView holds the snapshot-wide parts of the view, computed once per build.
type snapshotView struct {
	base view
	news []types.NewsItem
}

func newSnapshotView(snap *types.MarketSnapshot, sectors map[string]bool) snapshotView {
	indices := marketdata.AnalyzeAll(snap.Indices)
	prices := marketdata.AnalyzeAll(snap.Prices)

	sectorMetrics := make(map[string]marketdata.Metrics)
	stockMetrics := make(map[string]marketdata.Metrics)
	for sym, m := range prices {
		if sectors[sym] {
			sectorMetrics[sym] = m
		} else {
			stockMetrics[sym] = m
		}
	}

	sent := marketdata.MarketSentiment(snap)
	v := view{
		Period:     snap.Range.String(),
		Days:       snap.Range.Days(),
		Degraded:   snap.Degraded,
		Indices:    formatMetrics(indices, byName),
		Sectors:    formatMetrics(sectorMetrics, byReturn),
		Stocks:     formatStocks(stockMetrics),
		Indicators: formatIndicators(snap.Indicators),
		Sentiment:  formatSentiment(sent),
		VIX:        "N/A",
		Volatility: formatVolatility(indices),
		Trends:     formatTrends(indices),
		Headlines:  formatHeadlines(snap.News, headlineLimit),
	}
	if snap.Range.Start.IsZero() {
		v.Period, v.Days = "the requested period", 0
	}
	if sent.VIX > 0 {
		v.VIX = fmt.Sprintf("%.2f (%s)", sent.VIX, sent.VIXLevel)
	}
	return snapshotView{base: v, news: snap.News}
}

// forSpec returns a copy of the view with News filtered for the section.
func (sv snapshotView) forSpec(s SectionSpec) view {
	v := sv.base
	limit := s.NewsLimit
	if limit <= 0 {
		limit = defaultNewsLimit
	}
	v.News = formatNews(filterNews(sv.news, s.NewsKeywords), limit)
	return v
}

// filterNews keeps items whose headline contains any keyword, case-insensitively.
func filterNews(items []types.NewsItem, keywords []string) []types.NewsItem {
	if len(keywords) == 0 {
		return items
	}
	var out []types.NewsItem
	for _, n := range items {
		title := strings.ToLower(n.Headline)
		for _, kw := range keywords {
			if strings.Contains(title, kw) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

type metricsOrder func(a, b marketdata.Metrics) bool

func byName(a, b marketdata.Metrics) bool { return label(a) < label(b) }

func byReturn(a, b marketdata.Metrics) bool {
	if a.TotalReturn != b.TotalReturn {
		return a.TotalReturn > b.TotalReturn
	}
	return label(a) < label(b)
}

func label(m marketdata.Metrics) string {
	if m.Name != "" && m.Name != m.Symbol {
		return fmt.Sprintf("%s (%s)", m.Name, m.Symbol)
	}
	return m.Symbol
}

func sorted(metrics map[string]marketdata.Metrics, less metricsOrder) []marketdata.Metrics {
	out := make([]marketdata.Metrics, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func formatMetrics(metrics map[string]marketdata.Metrics, less metricsOrder) string {
	if len(metrics) == 0 {
		return noData
	}
	var b strings.Builder
	for _, m := range sorted(metrics, less) {
		fmt.Fprintf(&b, "- %s: %s -> %s (%+.2f%%), high %s, low %s, volatility %.2f%% daily / %.2f%% annualized",
			label(m), price(m.Start), price(m.End), m.TotalReturn, price(m.High), price(m.Low),
			m.Volatility, m.AnnualizedVol)
		if !math.IsNaN(m.RSI) && m.RSI > 0 {
			fmt.Fprintf(&b, ", RSI %.1f", m.RSI)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatStocks lists stocks by average volume, highest first.
func formatStocks(metrics map[string]marketdata.Metrics) string {
	if len(metrics) == 0 {
		return noData
	}
	list := sorted(metrics, func(a, b marketdata.Metrics) bool {
		if a.AvgVolume != b.AvgVolume {
			return a.AvgVolume > b.AvgVolume
		}
		return label(a) < label(b)
	})
	if len(list) > 10 {
		list = list[:10]
	}
	var b strings.Builder
	for _, m := range list {
		fmt.Fprintf(&b, "- %s: %s (%+.2f%%), avg volume %s\n",
			label(m), price(m.End), m.TotalReturn, humanize.Comma(int64(m.AvgVolume)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatIndicators(ind map[string]float64) string {
	if len(ind) == 0 {
		return noData
	}
	names := make([]string, 0, len(ind))
	for name := range ind {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n", name, humanize.CommafWithDigits(ind[name], 2))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSentiment(s marketdata.Sentiment) string {
	if !s.Available {
		return "unavailable"
	}
	parts := []string{"trend " + s.Trend}
	if s.VIX > 0 {
		parts = append(parts, fmt.Sprintf("VIX %.2f, %s", s.VIX, s.VIXLevel))
	}
	return strings.Join(parts, "; ")
}

func formatVolatility(metrics map[string]marketdata.Metrics) string {
	if len(metrics) == 0 {
		return noData
	}
	var b strings.Builder
	for _, m := range sorted(metrics, byName) {
		fmt.Fprintf(&b, "- %s: %.2f%% daily, %.2f%% annualized\n", label(m), m.Volatility, m.AnnualizedVol)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatTrends(metrics map[string]marketdata.Metrics) string {
	if len(metrics) == 0 {
		return noData
	}
	var b strings.Builder
	for _, m := range sorted(metrics, byName) {
		fmt.Fprintf(&b, "- %s: %s", label(m), m.Trend)
		if !math.IsNaN(m.Momentum) {
			fmt.Fprintf(&b, ", %d-day momentum %+.2f%%", 20, m.Momentum)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHeadlines(items []types.NewsItem, limit int) string {
	if len(items) == 0 {
		return noData
	}
	var b strings.Builder
	for i, n := range items {
		if i == limit {
			break
		}
		fmt.Fprintf(&b, "- %s (%s)\n", n.Headline, n.Source)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatNews(items []types.NewsItem, limit int) string {
	if len(items) == 0 {
		return "No relevant news found for this period."
	}
	var b strings.Builder
	for i, n := range items {
		if i == limit {
			break
		}
		b.WriteString("- " + n.Headline)
		if n.Summary != "" {
			b.WriteString(" - " + n.Summary)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func price(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}
