package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"portfolioFrontier/internal/metrics"
	"portfolioFrontier/internal/portfolio"
)

var errSymbolNotFound = errors.New("symbol not found")

// YahooClient downloads daily bars from the Yahoo v8 chart endpoint.
type YahooClient struct {
	client   *http.Client
	baseURLs []string
	attempts int
	backoffs []time.Duration
	limiter  *rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker
	log      zerolog.Logger
}

// YahooOption configures a YahooClient.
type YahooOption func(*YahooClient)

// WithBaseURLs replaces the Yahoo hosts, tried in order on every attempt.
func WithBaseURLs(urls ...string) YahooOption {
	return func(c *YahooClient) { c.baseURLs = urls }
}

// WithAttempts bounds the number of rounds over all hosts.
func WithAttempts(n int) YahooOption {
	return func(c *YahooClient) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackoffs sets the pause after each failed round.
func WithBackoffs(b ...time.Duration) YahooOption {
	return func(c *YahooClient) { c.backoffs = b }
}

// WithRateLimit paces outgoing requests.
func WithRateLimit(rps float64, burst int) YahooOption {
	return func(c *YahooClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) YahooOption {
	return func(c *YahooClient) { c.client = h }
}

// NewYahooClient builds a client with three attempts, the query1/query2 hosts and a
// modest request rate.
func NewYahooClient(log zerolog.Logger, opts ...YahooOption) *YahooClient {
	c := &YahooClient{
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURLs: []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"},
		attempts: 3,
		backoffs: []time.Duration{500 * time.Millisecond, 2 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(4), 2),
		log:      log.With().Str("client", "yahoo").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breakers = make(map[string]*gobreaker.CircuitBreaker, len(c.baseURLs))
	for _, base := range c.baseURLs {
		c.breakers[base] = newBreaker(base)
	}
	return c
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// FetchPrices downloads every ticker and joins the series on trading day. Tickers that
// stay unavailable after all attempts are dropped with a warning; the call fails with
// portfolio.ErrDataUnavailable only when none survives.
func (c *YahooClient) FetchPrices(ctx context.Context, tickers []string, start, end time.Time) (*portfolio.PriceTable, error) {
	symbols := normalizeTickers(tickers)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("yahoo: no tickers: %w", portfolio.ErrDataUnavailable)
	}

	var kept []string
	var series [][]dailyPrice
	var lastErr error
	for _, symbol := range symbols {
		prices, err := c.fetchTicker(ctx, symbol, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.PriceFetches.WithLabelValues("failed").Inc()
			c.log.Warn().Str("symbol", symbol).Err(err).Msg("dropping ticker without usable data")
			lastErr = err
			continue
		}
		metrics.PriceFetches.WithLabelValues("ok").Inc()
		kept = append(kept, symbol)
		series = append(series, prices)
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("yahoo: %s: %v: %w", strings.Join(symbols, ","), lastErr, portfolio.ErrDataUnavailable)
	}
	table, err := alignSeries(kept, series)
	if err != nil {
		return nil, fmt.Errorf("yahoo: %v: %w", err, portfolio.ErrDataUnavailable)
	}
	c.log.Info().
		Strs("symbols", kept).
		Int("rows", table.NumRows()).
		Msg("downloaded price history")
	return table, nil
}

// fetchTicker retries over all hosts for a bounded number of rounds.
func (c *YahooClient) fetchTicker(ctx context.Context, symbol string, start, end time.Time) ([]dailyPrice, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		for _, base := range c.baseURLs {
			res, err := c.get(ctx, base, symbol, start, end)
			if err == nil {
				return c.seriesFromResult(symbol, res)
			}
			if errors.Is(err, errSymbolNotFound) || ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
		}
		c.log.Debug().Str("symbol", symbol).Int("attempt", attempt+1).Err(lastErr).Msg("yahoo round failed")
		if attempt < c.attempts-1 && attempt < len(c.backoffs) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoffs[attempt]):
			}
		}
	}
	return nil, fmt.Errorf("%s after %d attempts: %w", symbol, c.attempts, lastErr)
}

type chartFetch struct {
	result   *yahooChartResult
	notFound bool
}

func (c *YahooClient) get(ctx context.Context, base, symbol string, start, end time.Time) (*yahooChartResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.breakers[base].Execute(func() (interface{}, error) {
		return c.request(ctx, base, symbol, start, end)
	})
	if err != nil {
		return nil, err
	}
	f := out.(chartFetch)
	if f.notFound {
		return nil, fmt.Errorf("%s: %w", symbol, errSymbolNotFound)
	}
	return f.result, nil
}

// request performs one HTTP round trip. An unknown symbol is a successful exchange as
// far as the breaker is concerned.
func (c *YahooClient) request(ctx context.Context, base, symbol string, start, end time.Time) (chartFetch, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div,splits&includeAdjustedClose=true",
		base, url.PathEscape(symbol), start.Unix(), end.Unix())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return chartFetch{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.client.Do(req)
	if err != nil {
		return chartFetch{}, err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return chartFetch{}, fmt.Errorf("failed to read yahoo response: %w", readErr)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return chartFetch{notFound: true}, nil
	case resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests"):
		return chartFetch{}, fmt.Errorf("yahoo %s returned 429: Edge: Too Many Requests", base)
	case resp.StatusCode != http.StatusOK:
		return chartFetch{}, fmt.Errorf("yahoo %s returned %d: %s", base, resp.StatusCode, preview(body))
	case strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:"):
		return chartFetch{}, fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}

	var yc yahooChartResp
	if err := json.Unmarshal(body, &yc); err != nil {
		return chartFetch{}, fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
	}
	if yc.Chart.Error != nil {
		if yc.Chart.Error.Code == "Not Found" {
			return chartFetch{notFound: true}, nil
		}
		return chartFetch{}, fmt.Errorf("yahoo error %s: %s", yc.Chart.Error.Code, yc.Chart.Error.Description)
	}
	if len(yc.Chart.Result) == 0 {
		return chartFetch{}, errors.New("yahoo returned no result")
	}
	return chartFetch{result: &yc.Chart.Result[0]}, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

func normalizeTickers(tickers []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		su := strings.ToUpper(strings.TrimSpace(t))
		if su == "" {
			continue
		}
		if _, ok := seen[su]; ok {
			continue
		}
		seen[su] = struct{}{}
		out = append(out, su)
	}
	return out
}
