package marketdata

import (
	"math"

	"market-report/internal/ta"
	"market-report/internal/types"
)

const (
	SymbolSP500 = "^GSPC"
	SymbolVIX   = "^VIX"

	trendWindow = 20
	rsiPeriod   = 14
)

// Metrics summarises one series over the report period.
type Metrics struct {
	Symbol        string
	Name          string
	Start         float64
	End           float64
	TotalReturn   float64 // percent
	High          float64
	Low           float64
	Volatility    float64 // std of daily percent change
	AnnualizedVol float64
	AvgVolume     float64
	Trend         string // "upward", "downward" or "insufficient data"
	Momentum      float64
	RSI           float64
	Points        int
}

// Analyze computes performance metrics. ok is false for fewer than two points.
func Analyze(s types.Series) (m Metrics, ok bool) {
	m = Metrics{Symbol: s.Symbol, Name: s.Name, Points: len(s.Points)}
	if len(s.Points) < 2 {
		return m, false
	}
	closes := s.Closes()
	m.Start = closes[0]
	m.End = closes[len(closes)-1]
	if m.Start != 0 {
		m.TotalReturn = (m.End - m.Start) / m.Start * 100
	}

	m.High, m.Low = math.Inf(-1), math.Inf(1)
	var vol float64
	for _, p := range s.Points {
		high, low := p.High, p.Low
		if high == 0 {
			high = p.Close
		}
		if low == 0 {
			low = p.Close
		}
		m.High = math.Max(m.High, high)
		m.Low = math.Min(m.Low, low)
		vol += float64(p.Volume)
	}
	m.AvgVolume = vol / float64(len(s.Points))

	// two points give a single change, which has no deviation
	if v := ta.Volatility(closes); !math.IsNaN(v) {
		m.Volatility = v
		m.AnnualizedVol = ta.Annualize(v)
	}
	m.RSI = ta.RSI(closes, rsiPeriod)

	if len(closes) < trendWindow {
		m.Trend = "insufficient data"
		m.Momentum = math.NaN()
	} else {
		if m.End > ta.SMA(closes, trendWindow) {
			m.Trend = "upward"
		} else {
			m.Trend = "downward"
		}
		m.Momentum = ta.Momentum(closes, trendWindow)
	}
	return m, true
}

// AnalyzeAll returns metrics for every series with enough data, keyed by symbol.
func AnalyzeAll(series map[string]types.Series) map[string]Metrics {
	out := make(map[string]Metrics, len(series))
	for sym, s := range series {
		if m, ok := Analyze(s); ok {
			out[sym] = m
		}
	}
	return out
}

// Sentiment is a coarse read of market mood from the VIX and the S&P 500.
type Sentiment struct {
	VIX       float64
	VIXLevel  string
	Trend     string
	Available bool
}

// MarketSentiment buckets the latest VIX (<20 complacent, <30 normal, else fearful)
// and compares the S&P 500's last five closes with its first five.
func MarketSentiment(snap *types.MarketSnapshot) Sentiment {
	s := Sentiment{VIXLevel: "unknown", Trend: "unknown"}
	if snap == nil {
		return s
	}
	if vix, ok := snap.Indices[SymbolVIX].Last(); ok {
		s.Available = true
		s.VIX = vix.Close
		switch {
		case vix.Close < 20:
			s.VIXLevel = "Low volatility - complacent market"
		case vix.Close < 30:
			s.VIXLevel = "Moderate volatility - normal market conditions"
		default:
			s.VIXLevel = "High volatility - fearful market"
		}
	}
	if closes := snap.Indices[SymbolSP500].Closes(); len(closes) >= 2 {
		s.Available = true
		n := 5
		if len(closes) < n {
			n = len(closes)
		}
		recent := ta.SMA(closes, n)
		older := ta.Mean(closes[:n])
		if recent > older {
			s.Trend = "bullish"
		} else {
			s.Trend = "bearish"
		}
	}
	return s
}
