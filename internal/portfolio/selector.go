package portfolio

import "fmt"

// SelectOptimal finds the max-Sharpe, min-volatility and max-return portfolios among the
// valid trials. Ties resolve to the earliest index. Weights are mapped positionally onto
// assetIDs and returned unrounded.
func SelectOptimal(matrix []Performance, weights []WeightVector, assetIDs []string) (OptimalSet, error) {
	if len(matrix) != len(weights) {
		return OptimalSet{}, fmt.Errorf("select: %d results for %d weight vectors", len(matrix), len(weights))
	}

	maxSharpe, minVol, maxRet := -1, -1, -1
	for i, p := range matrix {
		if !p.Valid() {
			continue
		}
		if maxSharpe < 0 || p.Sharpe > matrix[maxSharpe].Sharpe {
			maxSharpe = i
		}
		if minVol < 0 || p.Volatility < matrix[minVol].Volatility {
			minVol = i
		}
		if maxRet < 0 || p.Return > matrix[maxRet].Return {
			maxRet = i
		}
	}
	if maxSharpe < 0 {
		return OptimalSet{}, fmt.Errorf("select among %d trials: %w", len(matrix), ErrNoValidPortfolio)
	}

	pick := func(i int) (Pick, error) {
		w := weights[i]
		if len(w) != len(assetIDs) {
			return Pick{}, fmt.Errorf("select: trial %d has %d weights for %d assets", i, len(w), len(assetIDs))
		}
		alloc := make(Allocation, len(assetIDs))
		for j, id := range assetIDs {
			alloc[id] = w[j]
		}
		return Pick{Index: i, Performance: matrix[i], Allocation: alloc}, nil
	}

	var set OptimalSet
	var err error
	if set.MaxSharpe, err = pick(maxSharpe); err != nil {
		return OptimalSet{}, err
	}
	if set.MinVolatility, err = pick(minVol); err != nil {
		return OptimalSet{}, err
	}
	if set.MaxReturn, err = pick(maxRet); err != nil {
		return OptimalSet{}, err
	}
	return set, nil
}

// Select is SelectOptimal over a simulation's own results.
func (r *Results) Select() (OptimalSet, error) {
	return SelectOptimal(r.Performance, r.Weights, r.Assets)
}
