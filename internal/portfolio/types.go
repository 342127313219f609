package portfolio

import (
	"fmt"
	"math"
	"time"
)

// TradingPeriodsPerYear is the annualization constant for daily series.
const TradingPeriodsPerYear = 252.0

// PriceTable holds chronological prices, one column per asset.
// A missing price is stored as NaN.
type PriceTable struct {
	Dates  []time.Time
	Assets []string
	Prices [][]float64 // Prices[row][asset]
}

// NewPriceTable validates the shape of a price table: at least one row, at least one
// asset, unique asset identifiers and rows matching the asset count.
func NewPriceTable(dates []time.Time, assets []string, prices [][]float64) (*PriceTable, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("price table has no assets")
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("price table has no rows")
	}
	if len(dates) != len(prices) {
		return nil, fmt.Errorf("price table has %d dates for %d rows", len(dates), len(prices))
	}
	seen := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		if _, dup := seen[a]; dup {
			return nil, fmt.Errorf("duplicate asset %s", a)
		}
		seen[a] = struct{}{}
	}
	for i, row := range prices {
		if len(row) != len(assets) {
			return nil, fmt.Errorf("row %d has %d prices, expected %d", i, len(row), len(assets))
		}
	}
	return &PriceTable{Dates: dates, Assets: assets, Prices: prices}, nil
}

// NumRows returns the number of price rows.
func (t *PriceTable) NumRows() int { return len(t.Prices) }

// Column returns a copy of one asset's price series.
func (t *PriceTable) Column(asset int) []float64 {
	out := make([]float64, len(t.Prices))
	for i, row := range t.Prices {
		out[i] = row[asset]
	}
	return out
}

// ReturnTable holds fractional period returns. Each row is fully defined across assets.
type ReturnTable struct {
	Dates   []time.Time
	Assets  []string
	Returns [][]float64 // Returns[row][asset]
}

// NumRows returns the number of return rows.
func (t *ReturnTable) NumRows() int { return len(t.Returns) }

// NumAssets returns the number of asset columns.
func (t *ReturnTable) NumAssets() int { return len(t.Assets) }

// WeightVector is a long-only allocation aligned with a table's asset order.
type WeightVector []float64

// Sum returns the total weight.
func (w WeightVector) Sum() float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

// Performance is the annualized score of one weight vector.
type Performance struct {
	Return     float64
	Volatility float64
	Sharpe     float64
}

// Invalid is the sentinel returned for degenerate weight draws.
func Invalid() Performance {
	nan := math.NaN()
	return Performance{Return: nan, Volatility: nan, Sharpe: nan}
}

// Valid reports whether all three metrics are finite.
func (p Performance) Valid() bool {
	return finite(p.Return) && finite(p.Volatility) && finite(p.Sharpe)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Results is the outcome of one simulation: performances parallel-indexed with the
// weight vectors that produced them, in draw order.
type Results struct {
	Assets      []string
	Performance []Performance
	Weights     []WeightVector
}

// Len returns the number of trials.
func (r *Results) Len() int { return len(r.Performance) }

// ValidCount returns how many trials carry finite metrics.
func (r *Results) ValidCount() int {
	n := 0
	for _, p := range r.Performance {
		if p.Valid() {
			n++
		}
	}
	return n
}

// Allocation maps asset identifiers to raw fractional weights.
type Allocation map[string]float64

// Pick is one selected portfolio: where it sits in the results and what it holds.
type Pick struct {
	Index       int
	Performance Performance
	Allocation  Allocation
}

// OptimalSet is the three notable portfolios of a run.
type OptimalSet struct {
	MaxSharpe     Pick
	MinVolatility Pick
	MaxReturn     Pick
}
