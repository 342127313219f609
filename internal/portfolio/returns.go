package portfolio

import (
	"fmt"
	"time"
)

// ComputeReturns converts prices into period-over-period returns.
// A row is kept only when every asset has a defined return for it: a missing prior or
// current price, or a non-finite quotient, drops the whole row. Nothing is filled.
func ComputeReturns(prices *PriceTable) (*ReturnTable, error) {
	if prices == nil || len(prices.Assets) == 0 {
		return nil, fmt.Errorf("compute returns: %w", ErrEmptyResult)
	}

	assets := make([]string, len(prices.Assets))
	copy(assets, prices.Assets)

	var dates []time.Time
	var rows [][]float64
	for t := 1; t < len(prices.Prices); t++ {
		prev, cur := prices.Prices[t-1], prices.Prices[t]
		row := make([]float64, len(assets))
		defined := true
		for j := range assets {
			r := (cur[j] - prev[j]) / prev[j]
			if !finite(r) {
				defined = false
				break
			}
			row[j] = r
		}
		if !defined {
			continue
		}
		rows = append(rows, row)
		if t < len(prices.Dates) {
			dates = append(dates, prices.Dates[t])
		}
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("compute returns over %d price rows: %w", len(prices.Prices), ErrEmptyResult)
	}
	return &ReturnTable{Dates: dates, Assets: assets, Returns: rows}, nil
}
