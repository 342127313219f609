package finance

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioFrontier/internal/portfolio"
)

var (
	testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
)

// bar returns the unix time of 14:30 UTC on 2025-01-<day>.
func bar(day int) int64 {
	return time.Date(2025, 1, day, 14, 30, 0, 0, time.UTC).Unix()
}

type fields struct {
	adj, close, open []any
}

func chartBody(symbol string, ts []int64, f fields) []byte {
	quote := map[string]any{}
	if f.close != nil {
		quote["close"] = f.close
	}
	if f.open != nil {
		quote["open"] = f.open
	}
	indicators := map[string]any{"quote": []any{quote}}
	if f.adj != nil {
		indicators["adjclose"] = []any{map[string]any{"adjclose": f.adj}}
	}
	body, _ := json.Marshal(map[string]any{
		"chart": map[string]any{
			"result": []any{map[string]any{
				"meta":       map[string]any{"symbol": symbol, "gmtoffset": 0, "exchangeTimezoneName": "UTC"},
				"timestamp":  ts,
				"indicators": indicators,
			}},
			"error": nil,
		},
	})
	return body
}

type yahooStub struct {
	mu    sync.Mutex
	hits  map[string]int
	serve func(symbol string, hit int, w http.ResponseWriter)
}

func newYahooStub(t *testing.T, serve func(symbol string, hit int, w http.ResponseWriter)) (*yahooStub, *httptest.Server) {
	t.Helper()
	stub := &yahooStub{hits: map[string]int{}, serve: serve}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		stub.mu.Lock()
		stub.hits[symbol]++
		hit := stub.hits[symbol]
		stub.mu.Unlock()
		stub.serve(symbol, hit, w)
	}))
	t.Cleanup(srv.Close)
	return stub, srv
}

func testClient(srv *httptest.Server) *YahooClient {
	return NewYahooClient(zerolog.Nop(),
		WithBaseURLs(srv.URL),
		WithBackoffs(),
		WithRateLimit(1000, 100),
	)
}

func TestFetchPricesAdjClose(t *testing.T) {
	_, srv := newYahooStub(t, func(symbol string, _ int, w http.ResponseWriter) {
		switch symbol {
		case "SPY":
			w.Write(chartBody(symbol, []int64{bar(2), bar(3), bar(6)}, fields{
				adj:   []any{100.0, 101.0, 102.0},
				close: []any{200.0, 201.0, 202.0},
			}))
		case "TLT":
			w.Write(chartBody(symbol, []int64{bar(2), bar(6)}, fields{adj: []any{90.0, nil}}))
		}
	})

	table, err := testClient(srv).FetchPrices(context.Background(), []string{"spy", "TLT", "SPY"}, testStart, testEnd)
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "TLT"}, table.Assets)
	require.Equal(t, 3, table.NumRows())
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), table.Dates[0])
	assert.Equal(t, []float64{100, 101, 102}, table.Column(0))

	tlt := table.Column(1)
	assert.Equal(t, 90.0, tlt[0])
	assert.True(t, math.IsNaN(tlt[1]), "no TLT bar on the 3rd")
	assert.True(t, math.IsNaN(tlt[2]), "null price becomes NaN")
}

func TestFetchPricesFallsBackToOpen(t *testing.T) {
	_, srv := newYahooStub(t, func(symbol string, _ int, w http.ResponseWriter) {
		w.Write(chartBody(symbol, []int64{bar(2), bar(3)}, fields{
			close: []any{nil, nil},
			open:  []any{10.0, 11.0},
		}))
	})

	table, err := testClient(srv).FetchPrices(context.Background(), []string{"AAA"}, testStart, testEnd)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, table.Column(0))
}

func TestFetchPricesDropsUnknownTicker(t *testing.T) {
	stub, srv := newYahooStub(t, func(symbol string, _ int, w http.ResponseWriter) {
		if symbol == "NOPE" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(chartBody(symbol, []int64{bar(2), bar(3)}, fields{adj: []any{1.0, 2.0}}))
	})

	table, err := testClient(srv).FetchPrices(context.Background(), []string{"SPY", "NOPE", "TLT"}, testStart, testEnd)
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "TLT"}, table.Assets)
	assert.Equal(t, 1, stub.hits["NOPE"], "not found is not retried")
}

func TestFetchPricesRetriesServerErrors(t *testing.T) {
	stub, srv := newYahooStub(t, func(symbol string, hit int, w http.ResponseWriter) {
		if hit < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(chartBody(symbol, []int64{bar(2), bar(3)}, fields{adj: []any{5.0, 6.0}}))
	})

	table, err := testClient(srv).FetchPrices(context.Background(), []string{"SPY"}, testStart, testEnd)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6}, table.Column(0))
	assert.Equal(t, 3, stub.hits["SPY"])
}

func TestFetchPricesAllFail(t *testing.T) {
	tests := []struct {
		name  string
		serve func(symbol string, hit int, w http.ResponseWriter)
	}{
		{"server errors", func(_ string, _ int, w http.ResponseWriter) { w.WriteHeader(http.StatusBadGateway) }},
		{"rate limited", func(_ string, _ int, w http.ResponseWriter) { w.WriteHeader(http.StatusTooManyRequests) }},
		{"html body", func(_ string, _ int, w http.ResponseWriter) { w.Write([]byte("<html>consent</html>")) }},
		{"bad json", func(_ string, _ int, w http.ResponseWriter) { w.Write([]byte("{")) }},
		{"chart error", func(_ string, _ int, w http.ResponseWriter) {
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
		}},
		{"no usable prices", func(symbol string, _ int, w http.ResponseWriter) {
			w.Write(chartBody(symbol, []int64{bar(2)}, fields{adj: []any{0.0}, close: []any{-1.0}}))
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, srv := newYahooStub(t, tc.serve)
			_, err := testClient(srv).FetchPrices(context.Background(), []string{"SPY", "TLT"}, testStart, testEnd)
			require.Error(t, err)
			assert.ErrorIs(t, err, portfolio.ErrDataUnavailable)
		})
	}
}

func TestFetchPricesNoTickers(t *testing.T) {
	_, srv := newYahooStub(t, func(string, int, http.ResponseWriter) {})
	_, err := testClient(srv).FetchPrices(context.Background(), []string{" ", ""}, testStart, testEnd)
	assert.ErrorIs(t, err, portfolio.ErrDataUnavailable)
}

func TestFetchPricesCancelled(t *testing.T) {
	_, srv := newYahooStub(t, func(_ string, _ int, w http.ResponseWriter) { w.WriteHeader(http.StatusBadGateway) })
	c := NewYahooClient(zerolog.Nop(), WithBaseURLs(srv.URL), WithBackoffs(time.Hour), WithRateLimit(1000, 100))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.FetchPrices(ctx, []string{"SPY"}, testStart, testEnd)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSeriesFromResultDuplicateDay(t *testing.T) {
	c := NewYahooClient(zerolog.Nop())
	p1, p2 := 10.0, 11.0
	r := &yahooChartResult{Timestamp: []int64{bar(2), bar(2) + 3600}}
	r.Meta.ExchangeTimezoneName = "UTC"
	r.Indicators.AdjClose = []struct {
		AdjClose []*float64 `json:"adjclose"`
	}{{AdjClose: []*float64{&p1, &p2}}}

	out, err := c.seriesFromResult("SPY", r)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 11.0, out[0].price)
}

func TestSanitizePrices(t *testing.T) {
	v := func(f float64) *float64 { return &f }
	ts, vals := sanitizePrices([]int64{1, 2, 3, 4, 5}, []*float64{v(1), nil, v(0), v(math.Inf(1)), v(-2)})
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ts)
	assert.Equal(t, 1.0, vals[0])
	for _, x := range vals[1:] {
		assert.True(t, math.IsNaN(x))
	}
}

func TestNormalizeTickers(t *testing.T) {
	assert.Equal(t, []string{"SPY", "BRK.B"}, normalizeTickers([]string{" spy", "brk.b", "SPY", ""}))
}
