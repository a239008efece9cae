package datasource

import (
	"context"
	"errors"
	"fmt"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"market-report/internal/interfaces"
	"market-report/internal/store"
	"market-report/internal/types"
)

// KiteSource reads daily index candles from Zerodha Kite Connect
type KiteSource struct {
	kc          *kiteconnect.Client
	instruments []store.KiteInstrument
}

var _ interfaces.Source = (*KiteSource)(nil)

// NewKiteSource needs both the API key and a session access token.
func NewKiteSource(apiKey, accessToken string, instruments []store.KiteInstrument) *KiteSource {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	return &KiteSource{kc: kc, instruments: instruments}
}

// SetBaseURI points the client at a different Kite host.
func (s *KiteSource) SetBaseURI(uri string) {
	s.kc.SetBaseURI(uri)
}

func (s *KiteSource) Name() string { return "kite" }

// Fetch has no context support in the Kite client, so cancellation is checked
// between instruments.
func (s *KiteSource) Fetch(ctx context.Context, r types.DateRange) (*types.SourceData, error) {
	data := &types.SourceData{Indices: map[string]types.Series{}}
	var errs []error
	for _, inst := range s.instruments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candles, err := s.kc.GetHistoricalData(inst.Token, "day", r.Start, r.End.AddDate(0, 0, 1), false, false)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", inst.Name, err))
			continue
		}
		series := types.Series{Symbol: inst.Name, Name: inst.Name}
		for _, c := range candles {
			series.Points = append(series.Points, types.PricePoint{
				Time:   c.Date.Time,
				Open:   c.Open,
				High:   c.High,
				Low:    c.Low,
				Close:  c.Close,
				Volume: int64(c.Volume),
			})
		}
		if len(series.Points) > 0 {
			data.Indices[inst.Name] = series
		}
	}
	if len(s.instruments) > 0 && len(data.Indices) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return data, nil
}
