package finance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"portfolioFrontier/internal/portfolio"
)

// HoldAllocation buys alloc at the first date on which every held asset has a price and
// holds the shares to the end. Unallocated weight stays in cash. Dates where a held
// asset has no price are skipped.
func HoldAllocation(prices *portfolio.PriceTable, alloc portfolio.Allocation, initialValue float64) (*HoldingPath, error) {
	if prices == nil || prices.NumRows() == 0 {
		return nil, fmt.Errorf("no price data")
	}
	if initialValue <= 0 {
		return nil, fmt.Errorf("initial value must be positive, got %f", initialValue)
	}

	column := make(map[string]int, len(prices.Assets))
	for i, a := range prices.Assets {
		column[a] = i
	}
	var held []int
	var weights []float64
	netWeight := 0.0
	for asset, w := range alloc {
		idx, ok := column[asset]
		if !ok {
			return nil, fmt.Errorf("asset %s not in price table", asset)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("invalid weight %f for %s", w, asset)
		}
		if w == 0 {
			continue
		}
		held = append(held, idx)
		weights = append(weights, w)
		netWeight += w
	}
	if len(held) == 0 {
		return nil, fmt.Errorf("allocation holds no assets")
	}

	var rows []int
	for r, row := range prices.Prices {
		ok := true
		for _, idx := range held {
			if p := row[idx]; !(p > 0) || math.IsInf(p, 0) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, r)
		}
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("need at least 2 priced dates, got %d", len(rows))
	}

	cash := initialValue * (1 - netWeight)
	shares := make([]float64, len(held))
	first := prices.Prices[rows[0]]
	for i, idx := range held {
		shares[i] = initialValue * weights[i] / first[idx]
	}

	path := &HoldingPath{}
	for _, r := range rows {
		v := cash
		for i, idx := range held {
			v += shares[i] * prices.Prices[r][idx]
		}
		if n := len(path.Values); n > 0 {
			path.Returns = append(path.Returns, (v-path.Values[n-1])/path.Values[n-1])
		}
		path.Values = append(path.Values, v)
		if r < len(prices.Dates) {
			path.Dates = append(path.Dates, prices.Dates[r])
		}
	}
	return path, nil
}

// HoldingStatsOf computes return, risk and drawdown statistics for a path.
// Volatility uses the sample (N-1) standard deviation scaled by sqrt(252).
func HoldingStatsOf(path *HoldingPath) (*HoldingStats, error) {
	if path == nil || len(path.Values) < 2 {
		return nil, fmt.Errorf("insufficient portfolio data")
	}
	if len(path.Returns) < 2 {
		return nil, fmt.Errorf("need at least 2 return observations for statistics")
	}

	initialValue := path.Values[0]
	finalValue := path.Values[len(path.Values)-1]
	totalReturn := (finalValue - initialValue) / initialValue

	_, dailyVolatility := stat.MeanStdDev(path.Returns, nil)
	years := float64(len(path.Returns)) / portfolio.TradingPeriodsPerYear

	var annualReturn float64
	if finalValue > 0 && initialValue > 0 {
		annualReturn = math.Pow(finalValue/initialValue, 1.0/years) - 1.0
	}
	annualVolatility := dailyVolatility * math.Sqrt(portfolio.TradingPeriodsPerYear)

	var sharpe float64
	if annualVolatility > 0 {
		sharpe = annualReturn / annualVolatility
	}

	stats := &HoldingStats{
		InitialValue: initialValue,
		FinalValue:   finalValue,
		TotalReturn:  totalReturn * 100,
		AnnualReturn: annualReturn * 100,
		Volatility:   annualVolatility * 100,
		SharpeRatio:  sharpe,
		MaxDrawdown:  maxDrawdown(path.Values) * 100,
		NumDays:      len(path.Values),
	}
	for name, v := range map[string]float64{
		"total return":  stats.TotalReturn,
		"annual return": stats.AnnualReturn,
		"volatility":    stats.Volatility,
		"Sharpe ratio":  stats.SharpeRatio,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid %s: %f", name, v)
		}
	}
	return stats, nil
}

// maxDrawdown is the largest peak-to-trough decline as a fraction of the peak.
func maxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}

	peak := values[0]
	if peak <= 0 {
		for i := 1; i < len(values); i++ {
			if values[i] > 0 {
				peak = values[i]
				break
			}
		}
		if peak <= 0 {
			return 0.0
		}
	}

	dd := 0.0
	for _, value := range values {
		if value > peak {
			peak = value
		}
		if peak > 0 && value >= 0 {
			if d := (peak - value) / peak; d > dd {
				dd = d
			}
		}
	}
	return dd
}
