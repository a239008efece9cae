package marketdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-report/internal/store"
)

func TestNewSources_SkipsUncredentialed(t *testing.T) {
	cfg := store.Default()

	sources, err := NewSources(context.Background(), cfg, store.Credentials{})
	require.NoError(t, err)

	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"yahoo", "rss"}, names)

	sources, err = NewSources(context.Background(), cfg, store.Credentials{
		NewsAPIKey:      "n",
		EODHDKey:        "e",
		KiteAPIKey:      "k",
		KiteAccessToken: "t",
	})
	require.NoError(t, err)
	names = names[:0]
	for _, s := range sources {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"yahoo", "eodhd", "kite", "newsapi", "rss"}, names)
}

func TestNewSources_UnknownSource(t *testing.T) {
	cfg := store.Default()
	cfg.Data.Sources = []string{"bloomberg"}
	_, err := NewSources(context.Background(), cfg, store.Credentials{})
	assert.ErrorContains(t, err, "unknown data source")
}

func TestNewFromConfig(t *testing.T) {
	cfg := store.Default()
	cfg.Data.Concurrency = 2
	cfg.Data.MaxRangeDays = 30

	agg, err := NewFromConfig(context.Background(), cfg, store.Credentials{})
	require.NoError(t, err)
	assert.Len(t, agg.sources, 2)
	assert.Equal(t, 2, agg.concurrency)
	assert.Equal(t, 30, agg.maxRangeDays)
	assert.Equal(t, cfg.Data.SourceTimeout, agg.sourceTimeout)
}
