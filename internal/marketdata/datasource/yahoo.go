package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"market-report/internal/api"
	"market-report/internal/interfaces"
	"market-report/internal/logger"
	"market-report/internal/store"
	"market-report/internal/types"
)

// YahooConfig lists the symbol groups fetched from the Yahoo chart API
type YahooConfig struct {
	BaseURL    string
	RateLimit  int
	Indices    []store.Symbol
	Sectors    []store.Symbol
	Indicators []store.Symbol
	Watchlist  []store.Symbol
}

// chartRetry absorbs Yahoo's frequent 429s without stalling the whole fetch.
var chartRetry = &api.RetryConfig{MaxAttempts: 2, InitialWait: 500 * time.Millisecond, MaxWait: 2 * time.Second}

// YahooSource reads daily bars from the Yahoo Finance chart API
type YahooSource struct {
	client *api.Client
	cfg    YahooConfig
}

var _ interfaces.Source = (*YahooSource)(nil)

// NewYahooSource creates the source. Extra client options are applied last.
func NewYahooSource(cfg YahooConfig, opts ...api.ClientOption) *YahooSource {
	all := append([]api.ClientOption{
		api.WithBaseURL(cfg.BaseURL),
		api.WithHeaders(api.YahooFinanceHeaders()),
		api.WithRateLimit(cfg.RateLimit),
		api.WithTimeout(15 * time.Second),
	}, opts...)
	return &YahooSource{client: api.NewClient(all...), cfg: cfg}
}

func (s *YahooSource) Name() string { return "yahoo" }

// chartResponse is the subset of /v8/finance/chart used here. Bars can be null.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch pulls every configured symbol. Individual symbols may fail; the source
// fails only when none could be read.
func (s *YahooSource) Fetch(ctx context.Context, r types.DateRange) (*types.SourceData, error) {
	data := &types.SourceData{
		Prices:     map[string]types.Series{},
		Indices:    map[string]types.Series{},
		Indicators: map[string]float64{},
	}

	var errs []error
	total, ok := 0, 0
	fetchGroup := func(symbols []store.Symbol, put func(store.Symbol, types.Series)) {
		for _, sym := range symbols {
			if ctx.Err() != nil {
				errs = append(errs, ctx.Err())
				return
			}
			total++
			series, err := s.chart(ctx, sym, r)
			if err != nil {
				logger.Debug(ctx, "Yahoo symbol failed", "symbol", sym.Symbol, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", sym.Symbol, err))
				continue
			}
			ok++
			put(sym, series)
		}
	}

	fetchGroup(s.cfg.Indices, func(sym store.Symbol, ser types.Series) { data.Indices[sym.MergeKey()] = ser })
	fetchGroup(s.cfg.Sectors, func(sym store.Symbol, ser types.Series) { data.Prices[sym.MergeKey()] = ser })
	fetchGroup(s.cfg.Watchlist, func(sym store.Symbol, ser types.Series) { data.Prices[sym.MergeKey()] = ser })
	fetchGroup(s.cfg.Indicators, func(sym store.Symbol, ser types.Series) {
		if last, found := ser.Last(); found {
			data.Indicators[sym.Name] = last.Close
		}
	})

	if total > 0 && ok == 0 {
		return nil, fmt.Errorf("all %d symbols failed: %w", total, errors.Join(errs...))
	}
	if len(errs) > 0 {
		logger.Warn(ctx, "Yahoo fetch partially failed", "failed", len(errs), "total", total)
	}
	return data, nil
}

func (s *YahooSource) chart(ctx context.Context, sym store.Symbol, r types.DateRange) (types.Series, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(r.Start.Unix(), 10))
	// period2 is exclusive
	q.Set("period2", strconv.FormatInt(r.End.AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", "1d")

	req := api.NewRequest(http.MethodGet, "/v8/finance/chart/"+url.PathEscape(sym.Symbol)+"?"+q.Encode()).WithContext(ctx)
	resp, err := s.client.DoWithRetry(req, chartRetry)
	if err != nil {
		return types.Series{}, err
	}
	var cr chartResponse
	if err := resp.ParseJSON(&cr); err != nil {
		return types.Series{}, err
	}
	return parseChart(sym, cr)
}

func parseChart(sym store.Symbol, cr chartResponse) (types.Series, error) {
	if cr.Chart.Error != nil {
		return types.Series{}, fmt.Errorf("chart error %s: %s", cr.Chart.Error.Code, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return types.Series{}, errors.New("empty chart result")
	}
	res := cr.Chart.Result[0]
	q := res.Indicators.Quote[0]

	series := types.Series{Symbol: sym.MergeKey(), Name: sym.Name}
	for i, ts := range res.Timestamp {
		c := at(q.Close, i)
		if c == nil {
			continue
		}
		p := types.PricePoint{Time: time.Unix(ts, 0).UTC(), Close: *c}
		if v := at(q.Open, i); v != nil {
			p.Open = *v
		}
		if v := at(q.High, i); v != nil {
			p.High = *v
		}
		if v := at(q.Low, i); v != nil {
			p.Low = *v
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			p.Volume = *q.Volume[i]
		}
		series.Points = append(series.Points, p)
	}
	if len(series.Points) == 0 {
		return types.Series{}, errors.New("no bars in range")
	}
	return series, nil
}

func at(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}
