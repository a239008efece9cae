package marketdata

import (
	"context"
	"fmt"

	"market-report/internal/interfaces"
	"market-report/internal/logger"
	"market-report/internal/marketdata/datasource"
	"market-report/internal/store"
)

// NewSources builds the configured sources in merge order. Sources without the
// credential they need are skipped.
func NewSources(ctx context.Context, cfg *store.Config, creds store.Credentials) ([]interfaces.Source, error) {
	var sources []interfaces.Source
	for _, name := range cfg.Data.Sources {
		if !creds.HasSource(name) {
			logger.Info(ctx, "Skipping data source without credentials", "source", name)
			continue
		}
		switch name {
		case "yahoo":
			sources = append(sources, datasource.NewYahooSource(datasource.YahooConfig{
				BaseURL:    cfg.Data.Yahoo.BaseURL,
				RateLimit:  cfg.Data.Yahoo.RateLimit,
				Indices:    cfg.Data.Yahoo.Indices,
				Sectors:    cfg.Data.Yahoo.Sectors,
				Indicators: cfg.Data.Yahoo.Indicators,
				Watchlist:  cfg.Data.Yahoo.Watchlist,
			}))
		case "eodhd":
			sources = append(sources, datasource.NewEODHDSource(datasource.EODHDConfig{
				BaseURL:   cfg.Data.EODHD.BaseURL,
				APIKey:    creds.EODHDKey,
				RateLimit: cfg.Data.EODHD.RateLimit,
				Symbols:   cfg.Data.EODHD.Symbols,
			}))
		case "newsapi":
			sources = append(sources, datasource.NewNewsAPISource(datasource.NewsAPIConfig{
				BaseURL:  cfg.Data.NewsAPI.BaseURL,
				APIKey:   creds.NewsAPIKey,
				Query:    cfg.Data.NewsAPI.Query,
				PageSize: cfg.Data.NewsAPI.PageSize,
			}))
		case "rss":
			sources = append(sources, datasource.NewRSSSource(cfg.Data.RSS.Feeds, cfg.Data.RSS.PerFeed, cfg.Data.SourceTimeout))
		case "kite":
			sources = append(sources, datasource.NewKiteSource(creds.KiteAPIKey, creds.KiteAccessToken, cfg.Data.Kite.Instruments))
		default:
			return nil, fmt.Errorf("unknown data source: %s", name)
		}
	}
	return sources, nil
}

// NewFromConfig wires an Aggregator with the configured sources and options.
func NewFromConfig(ctx context.Context, cfg *store.Config, creds store.Credentials) (*Aggregator, error) {
	sources, err := NewSources(ctx, cfg, creds)
	if err != nil {
		return nil, err
	}
	return NewAggregator(sources,
		WithConcurrency(cfg.Data.Concurrency),
		WithSourceTimeout(cfg.Data.SourceTimeout),
		WithMaxRangeDays(cfg.Data.MaxRangeDays),
		WithIndicatorMerge(cfg.Data.IndicatorMerge),
	), nil
}
