package finance

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"portfolioFrontier/internal/portfolio"
)

// DefaultWindow is the lookback used when none is given.
const DefaultWindow = "3y"

// ParseWindow turns a lookback such as 90d, 6w, 18m or 3y into a [start, end) range
// ending at now.
func ParseWindow(window string, now time.Time) (time.Time, time.Time, error) {
	window = strings.ToLower(strings.TrimSpace(window))
	if window == "" {
		window = DefaultWindow
	}
	if len(window) < 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window format: %s (use format like 90d, 6w, 18m, 3y)", window)
	}

	n, err := strconv.Atoi(window[:len(window)-1])
	if err != nil || n <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window format: %s (use format like 90d, 6w, 18m, 3y)", window)
	}

	end := now
	var start time.Time
	switch window[len(window)-1] {
	case 'd':
		start = end.AddDate(0, 0, -n)
	case 'w':
		start = end.AddDate(0, 0, -7*n)
	case 'm':
		start = end.AddDate(0, -n, 0)
	case 'y':
		start = end.AddDate(-n, 0, 0)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window format: %s (use format like 90d, 6w, 18m, 3y)", window)
	}
	return start, end, nil
}

// alignSeries outer-joins per-ticker series on trading day. A ticker without a print on
// some day gets NaN there; the returns calculator drops such rows.
func alignSeries(symbols []string, series [][]dailyPrice) (*portfolio.PriceTable, error) {
	if len(symbols) != len(series) {
		return nil, fmt.Errorf("%d symbols for %d series", len(symbols), len(series))
	}

	byDay := make([]map[time.Time]float64, len(series))
	daySet := map[time.Time]struct{}{}
	for i, s := range series {
		byDay[i] = make(map[time.Time]float64, len(s))
		for _, p := range s {
			byDay[i][p.day] = p.price
			daySet[p.day] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	prices := make([][]float64, len(dates))
	for r, d := range dates {
		row := make([]float64, len(symbols))
		for i := range symbols {
			if v, ok := byDay[i][d]; ok {
				row[i] = v
			} else {
				row[i] = math.NaN()
			}
		}
		prices[r] = row
	}
	return portfolio.NewPriceTable(dates, symbols, prices)
}

// CachedProvider serves price tables from a cache while they are fresh.
type CachedProvider struct {
	next  PriceProvider
	cache PriceCache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedProvider wraps next with cache. Cache failures are logged and bypassed.
func NewCachedProvider(next PriceProvider, cache PriceCache, ttl time.Duration, log zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "price_cache").Logger(),
	}
}

// FetchPrices implements PriceProvider.
func (p *CachedProvider) FetchPrices(ctx context.Context, tickers []string, start, end time.Time) (*portfolio.PriceTable, error) {
	key := PriceCacheKey(tickers, start, end)
	table, ok, err := p.cache.LoadPrices(key, p.ttl)
	if err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("price cache read failed")
	} else if ok {
		p.log.Debug().Str("key", key).Msg("price cache hit")
		return table, nil
	}

	table, err = p.next.FetchPrices(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, portfolio.ErrDataUnavailable
	}
	if !coversTickers(table, tickers) {
		p.log.Warn().Str("key", key).Strs("assets", table.Assets).Msg("partial price table not cached")
		return table, nil
	}
	if err := p.cache.SavePrices(key, table); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("price cache write failed")
	}
	return table, nil
}

// coversTickers reports whether table has a column for every requested ticker.
func coversTickers(table *portfolio.PriceTable, tickers []string) bool {
	have := make(map[string]bool, len(table.Assets))
	for _, a := range table.Assets {
		have[a] = true
	}
	for _, t := range normalizeTickers(tickers) {
		if !have[t] {
			return false
		}
	}
	return true
}

// PriceCacheKey identifies a request by its normalized tickers and calendar dates.
func PriceCacheKey(tickers []string, start, end time.Time) string {
	return strings.Join(normalizeTickers(tickers), ",") + "|" +
		start.UTC().Format("2006-01-02") + "|" + end.UTC().Format("2006-01-02")
}
