package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioFrontier/internal/portfolio"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSchema(db))
	return NewStore(db)
}

func sampleSet() portfolio.OptimalSet {
	pick := func(i int, r, v float64, alloc portfolio.Allocation) portfolio.Pick {
		return portfolio.Pick{
			Index:       i,
			Performance: portfolio.Performance{Return: r, Volatility: v, Sharpe: r / v},
			Allocation:  alloc,
		}
	}
	return portfolio.OptimalSet{
		MaxSharpe:     pick(3, 0.12, 0.15, portfolio.Allocation{"SPY": 0.6, "TLT": 0.4}),
		MinVolatility: pick(7, 0.05, 0.08, portfolio.Allocation{"SPY": 0.2, "TLT": 0.8}),
		MaxReturn:     pick(1, 0.18, 0.25, portfolio.Allocation{"SPY": 0.95, "TLT": 0.05}),
	}
}

func TestInitSchemaIdempotent(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, InitSchema(db))
	require.NoError(t, InitSchema(db))
}

func TestSaveAndListRuns(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		err := s.SaveRun(Run{
			ID:          id,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
			Tickers:     []string{"SPY", "TLT"},
			Trials:      1000,
			ValidTrials: 998,
			Seed:        1<<63 + uint64(i),
			Start:       base.AddDate(-1, 0, 0),
			End:         base,
			Optimal:     sampleSet(),
		})
		require.NoError(t, err)
	}

	runs, err := s.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)

	got := runs[0]
	assert.Equal(t, []string{"SPY", "TLT"}, got.Tickers)
	assert.Equal(t, 1000, got.Trials)
	assert.Equal(t, 998, got.ValidTrials)
	assert.Equal(t, uint64(1<<63+2), got.Seed)
	assert.True(t, got.End.Equal(base))
	assert.Equal(t, sampleSet(), got.Optimal)
}

func TestSaveRunDuplicateID(t *testing.T) {
	s := newTestStore(t)
	r := Run{ID: "dup", CreatedAt: time.Now(), Tickers: []string{"A", "B"}, Optimal: sampleSet()}
	require.NoError(t, s.SaveRun(r))
	assert.Error(t, s.SaveRun(r))
}

func TestPriceCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)
	dates := []time.Time{
		time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	table, err := portfolio.NewPriceTable(dates, []string{"SPY", "TLT"}, [][]float64{{100, 90}, {101, 89.5}})
	require.NoError(t, err)

	_, ok, err := s.LoadPrices("k", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SavePrices("k", table))
	got, ok, err := s.LoadPrices("k", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, table.Assets, got.Assets)
	assert.Equal(t, table.Prices, got.Prices)
	for i := range dates {
		assert.True(t, dates[i].Equal(got.Dates[i]))
	}

	// overwrite
	table.Prices[1][1] = 88
	require.NoError(t, s.SavePrices("k", table))
	got, ok, err = s.LoadPrices("k", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 88.0, got.Prices[1][1])
}

func TestPriceCacheExpiry(t *testing.T) {
	s := newTestStore(t)
	_, err := s.db.Exec(`INSERT INTO price_cache(cache_key,fetched_at,payload) VALUES(?,?,?)`,
		"old", time.Now().Add(-48*time.Hour).Unix(), []byte{0x80})
	require.NoError(t, err)

	_, ok, err := s.LoadPrices("old", 12*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}
