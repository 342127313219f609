package finance

import (
	"context"
	"time"

	"portfolioFrontier/internal/portfolio"
)

// PriceProvider returns daily prices for tickers over [start, end).
type PriceProvider interface {
	FetchPrices(ctx context.Context, tickers []string, start, end time.Time) (*portfolio.PriceTable, error)
}

// PriceCache stores fetched price tables.
type PriceCache interface {
	LoadPrices(key string, maxAge time.Duration) (*portfolio.PriceTable, bool, error)
	SavePrices(key string, table *portfolio.PriceTable) error
}

// yahooChartResp mirrors the Yahoo v8 chart response (trimmed to needed fields).
// Price arrays hold nulls for bars without a print.
type yahooChartResp struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		GmtOffset            int64  `json:"gmtoffset"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open  []*float64 `json:"open"`
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// dailyPrice is one trading day's price for a single ticker.
type dailyPrice struct {
	day   time.Time
	price float64
}

// Chart image cache entry
type chartCacheEntry struct {
	createdAt time.Time
	image     []byte
}

const chartCacheTTL = 10 * time.Minute
