package finance

import (
	"time"

	"portfolioFrontier/internal/portfolio"
)

// AllocationRow is one line of an allocation table.
type AllocationRow struct {
	Asset   string
	Weight  float64 // raw fraction
	Percent float64 // Weight * 100
}

// NamedPick pairs a selected portfolio with its display title.
type NamedPick struct {
	Key   string
	Title string
	Pick  portfolio.Pick
}

// NamedPicks lists the optimal set in display order.
func NamedPicks(set portfolio.OptimalSet) []NamedPick {
	return []NamedPick{
		{Key: "max_sharpe", Title: "Maximum Sharpe Ratio Portfolio", Pick: set.MaxSharpe},
		{Key: "min_volatility", Title: "Minimum Volatility Portfolio", Pick: set.MinVolatility},
		{Key: "max_return", Title: "Maximum Return Portfolio", Pick: set.MaxReturn},
	}
}

// HoldingPath is the value of a buy-and-hold position over the price history.
type HoldingPath struct {
	Dates   []time.Time
	Values  []float64 // starting from the initial value
	Returns []float64 // daily returns
}

// HoldingStats summarizes a HoldingPath. Percentages are fractions ×100.
type HoldingStats struct {
	InitialValue float64
	FinalValue   float64
	TotalReturn  float64 // percent
	AnnualReturn float64 // percent, geometric
	Volatility   float64 // percent, annualized
	SharpeRatio  float64 // risk-free rate assumed to be 0
	MaxDrawdown  float64 // percent
	NumDays      int
}
