package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"market-report/internal/api"
	"market-report/internal/interfaces"
	"market-report/internal/store"
	"market-report/internal/types"
)

// EODHDConfig configures the EODHD end-of-day source
type EODHDConfig struct {
	BaseURL   string
	APIKey    string
	RateLimit int
	Symbols   []store.Symbol
}

// EODHDSource is a secondary index feed, merged under the Yahoo symbols via Symbol.Key
type EODHDSource struct {
	client *api.Client
	cfg    EODHDConfig
}

var _ interfaces.Source = (*EODHDSource)(nil)

func NewEODHDSource(cfg EODHDConfig, opts ...api.ClientOption) *EODHDSource {
	all := append([]api.ClientOption{
		api.WithBaseURL(cfg.BaseURL),
		api.WithRateLimit(cfg.RateLimit),
		api.WithTimeout(30 * time.Second),
	}, opts...)
	return &EODHDSource{client: api.NewClient(all...), cfg: cfg}
}

func (s *EODHDSource) Name() string { return "eodhd" }

type eodBar struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
	Volume        int64   `json:"volume"`
}

func (s *EODHDSource) Fetch(ctx context.Context, r types.DateRange) (*types.SourceData, error) {
	data := &types.SourceData{Indices: map[string]types.Series{}}
	var errs []error
	for _, sym := range s.cfg.Symbols {
		series, err := s.eod(ctx, sym, r)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("%s: %w", sym.Symbol, err))
			continue
		}
		data.Indices[sym.MergeKey()] = series
	}
	if len(s.cfg.Symbols) > 0 && len(data.Indices) == 0 {
		return nil, errors.Join(errs...)
	}
	return data, nil
}

func (s *EODHDSource) eod(ctx context.Context, sym store.Symbol, r types.DateRange) (types.Series, error) {
	q := url.Values{}
	q.Set("from", r.Start.Format(types.DateLayout))
	q.Set("to", r.End.Format(types.DateLayout))
	q.Set("period", "d")
	q.Set("api_token", s.cfg.APIKey)
	q.Set("fmt", "json")

	resp, err := s.client.GET(ctx, "/eod/"+url.PathEscape(sym.Symbol)+"?"+q.Encode())
	if err != nil {
		return types.Series{}, err
	}
	var bars []eodBar
	if err := resp.ParseJSON(&bars); err != nil {
		return types.Series{}, err
	}

	series := types.Series{Symbol: sym.MergeKey(), Name: sym.Name}
	for _, b := range bars {
		t, err := time.Parse(types.DateLayout, b.Date)
		if err != nil {
			continue
		}
		series.Points = append(series.Points, types.PricePoint{
			Time: t, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
		})
	}
	if len(series.Points) == 0 {
		return types.Series{}, errors.New("no bars in range")
	}
	return series, nil
}
