package optimizer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioFrontier/internal/portfolio"
	"portfolioFrontier/internal/storage"
)

type fakeProvider struct {
	table *portfolio.PriceTable
	err   error
	calls int
}

func (f *fakeProvider) FetchPrices(_ context.Context, _ []string, _, _ time.Time) (*portfolio.PriceTable, error) {
	f.calls++
	return f.table, f.err
}

type fakeStore struct {
	runs []storage.Run
	err  error
}

func (f *fakeStore) SaveRun(r storage.Run) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, r)
	return nil
}

func priceFixture(t *testing.T) *portfolio.PriceTable {
	t.Helper()
	assets := []string{"SPY", "TLT", "GLD"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var dates []time.Time
	var rows [][]float64
	for i := 0; i < 60; i++ {
		x := float64(i)
		dates = append(dates, start.AddDate(0, 0, i))
		rows = append(rows, []float64{
			100 * (1 + 0.002*x + 0.01*math.Sin(x)),
			90 * (1 - 0.0005*x + 0.004*math.Cos(x*1.3)),
			180 * (1 + 0.001*x + 0.006*math.Sin(x*0.7)),
		})
	}
	table, err := portfolio.NewPriceTable(dates, assets, rows)
	require.NoError(t, err)
	return table
}

func request(seed uint64) Request {
	return Request{
		Tickers: []string{"SPY", "TLT", "GLD"},
		Start:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Trials:  400,
		Seed:    seed,
		Workers: 1,
	}
}

func TestRunProducesOutcome(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(&fakeProvider{table: priceFixture(t)}, zerolog.Nop(), WithStore(store))

	out, err := svc.Run(context.Background(), request(42))
	require.NoError(t, err)

	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, uint64(42), out.Seed)
	assert.Equal(t, []string{"SPY", "TLT", "GLD"}, out.Assets)
	assert.Equal(t, 59, out.Rows)
	assert.Equal(t, 400, out.Results.Len())
	assert.GreaterOrEqual(t, out.Optimal.MaxSharpe.Performance.Sharpe, out.Optimal.MinVolatility.Performance.Sharpe)
	assert.LessOrEqual(t, out.Optimal.MinVolatility.Performance.Volatility, out.Optimal.MaxReturn.Performance.Volatility)

	require.Len(t, store.runs, 1)
	assert.Equal(t, out.RunID, store.runs[0].ID)
	assert.Equal(t, out.Optimal, store.runs[0].Optimal)
	assert.Equal(t, 400, store.runs[0].Trials)
}

func TestRunIsReproducibleForSeed(t *testing.T) {
	svc := NewService(&fakeProvider{table: priceFixture(t)}, zerolog.Nop())

	a, err := svc.Run(context.Background(), request(7))
	require.NoError(t, err)

	req := request(7)
	req.Workers = 4
	b, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a.Results.Weights, b.Results.Weights)
	assert.Equal(t, a.Optimal, b.Optimal)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunDerivesSeedFromClock(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 123, time.UTC)
	svc := NewService(&fakeProvider{table: priceFixture(t)}, zerolog.Nop(),
		WithClock(func() time.Time { return now }))

	out, err := svc.Run(context.Background(), request(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(now.UnixNano()), out.Seed)
}

func TestRunStoreFailureIsNotFatal(t *testing.T) {
	svc := NewService(&fakeProvider{table: priceFixture(t)}, zerolog.Nop(),
		WithStore(&fakeStore{err: errors.New("disk full")}))

	out, err := svc.Run(context.Background(), request(1))
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestRunErrors(t *testing.T) {
	single, err := portfolio.NewPriceTable(
		[]time.Time{time.Now(), time.Now().Add(24 * time.Hour)},
		[]string{"SPY"},
		[][]float64{{100}, {101}},
	)
	require.NoError(t, err)
	oneRow, err := portfolio.NewPriceTable([]time.Time{time.Now()}, []string{"A", "B"}, [][]float64{{1, 2}})
	require.NoError(t, err)

	tests := []struct {
		name     string
		provider *fakeProvider
		mutate   func(*Request)
		want     error
	}{
		{"no tickers", &fakeProvider{}, func(r *Request) { r.Tickers = nil }, portfolio.ErrInsufficientAssets},
		{"zero trials", &fakeProvider{}, func(r *Request) { r.Trials = 0 }, portfolio.ErrNoValidPortfolio},
		{"provider failure", &fakeProvider{err: portfolio.ErrDataUnavailable}, nil, portfolio.ErrDataUnavailable},
		{"nil table", &fakeProvider{}, nil, portfolio.ErrDataUnavailable},
		{"one price row", &fakeProvider{table: oneRow}, nil, portfolio.ErrEmptyResult},
		{"single asset", &fakeProvider{table: single}, nil, portfolio.ErrInsufficientAssets},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(tc.provider, zerolog.Nop())
			req := request(3)
			if tc.mutate != nil {
				tc.mutate(&req)
			}
			_, err := svc.Run(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRunRejectsInvertedRange(t *testing.T) {
	p := &fakeProvider{table: priceFixture(t)}
	svc := NewService(p, zerolog.Nop())
	req := request(1)
	req.Start, req.End = req.End, req.Start

	_, err := svc.Run(context.Background(), req)
	assert.Error(t, err)
	assert.Equal(t, 0, p.calls)
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "ok", outcomeLabel(nil))
	assert.Equal(t, "data_unavailable", outcomeLabel(portfolio.ErrDataUnavailable))
	assert.Equal(t, "no_valid_portfolio", outcomeLabel(errors.Join(errors.New("x"), portfolio.ErrNoValidPortfolio)))
	assert.Equal(t, "error", outcomeLabel(errors.New("boom")))
}
