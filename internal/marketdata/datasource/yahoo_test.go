package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-report/internal/store"
	"market-report/internal/types"
)

const chartJSON = `{"chart":{"result":[{"meta":{"symbol":"%s","currency":"USD"},
"timestamp":[1709251200,1709510400,1709596800],
"indicators":{"quote":[{"open":[100,101,null],"high":[102,103,null],"low":[99,100,null],
"close":[101,102.5,null],"volume":[1000,2000,null]}]}}],"error":null}}`

func march(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func newYahooServer(t *testing.T, failing map[string]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sym := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		if code, ok := failing[sym]; ok {
			w.WriteHeader(code)
			return
		}
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.URL.Query().Get("period1"))
		_, _ = w.Write([]byte(strings.Replace(chartJSON, "%s", sym, 1)))
	}))
}

func TestYahooSource_RoutesSymbolGroups(t *testing.T) {
	srv := newYahooServer(t, nil)
	defer srv.Close()

	src := NewYahooSource(YahooConfig{
		BaseURL:    srv.URL,
		Indices:    []store.Symbol{{Symbol: "^GSPC", Name: "S&P 500"}},
		Sectors:    []store.Symbol{{Symbol: "XLK", Name: "Technology"}},
		Watchlist:  []store.Symbol{{Symbol: "AAPL", Name: "Apple"}},
		Indicators: []store.Symbol{{Symbol: "^TNX", Name: "10-Year Treasury Yield"}},
	})
	assert.Equal(t, "yahoo", src.Name())

	data, err := src.Fetch(context.Background(), types.DateRange{Start: march(1), End: march(5)})
	require.NoError(t, err)

	gspc := data.Indices["^GSPC"]
	require.Len(t, gspc.Points, 2, "null bars are skipped")
	assert.Equal(t, "S&P 500", gspc.Name)
	assert.Equal(t, 102.5, gspc.Points[1].Close)
	assert.Equal(t, int64(2000), gspc.Points[1].Volume)
	assert.Equal(t, 103.0, gspc.Points[1].High)

	assert.Contains(t, data.Prices, "XLK")
	assert.Contains(t, data.Prices, "AAPL")
	assert.Equal(t, 102.5, data.Indicators["10-Year Treasury Yield"])
}

func TestYahooSource_PartialAndTotalFailure(t *testing.T) {
	srv := newYahooServer(t, map[string]int{"^BAD": http.StatusNotFound, "^WORSE": http.StatusUnauthorized})
	defer srv.Close()

	partial := NewYahooSource(YahooConfig{
		BaseURL: srv.URL,
		Indices: []store.Symbol{{Symbol: "^BAD"}, {Symbol: "^GSPC"}},
	})
	data, err := partial.Fetch(context.Background(), types.DateRange{Start: march(1), End: march(5)})
	require.NoError(t, err)
	assert.Len(t, data.Indices, 1)

	total := NewYahooSource(YahooConfig{
		BaseURL: srv.URL,
		Indices: []store.Symbol{{Symbol: "^BAD"}, {Symbol: "^WORSE"}},
	})
	_, err = total.Fetch(context.Background(), types.DateRange{Start: march(1), End: march(5)})
	assert.ErrorContains(t, err, "all 2 symbols failed")
}

func TestParseChart_Error(t *testing.T) {
	var cr chartResponse
	cr.Chart.Error = &struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	}{Code: "Not Found", Description: "No data found"}

	_, err := parseChart(store.Symbol{Symbol: "X"}, cr)
	assert.ErrorContains(t, err, "No data found")

	_, err = parseChart(store.Symbol{Symbol: "X"}, chartResponse{})
	assert.ErrorContains(t, err, "empty chart result")
}
