package portfolio

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SharpeEpsilon keeps the Sharpe ratio finite when volatility is exactly zero.
const SharpeEpsilon = 1e-10

// Moments holds the per-period mean returns and the annualized sample covariance of a
// return table. It is read-only after construction and safe for concurrent use.
type Moments struct {
	mean []float64
	cov  *mat.SymDense
}

// NewMoments computes the statistics Evaluate needs from a return table.
func NewMoments(returns *ReturnTable) (*Moments, error) {
	if returns == nil || returns.NumAssets() == 0 || returns.NumRows() == 0 {
		return nil, fmt.Errorf("moments: %w", ErrEmptyResult)
	}
	n, rows := returns.NumAssets(), returns.NumRows()

	x := mat.NewDense(rows, n, nil)
	for i, row := range returns.Returns {
		if len(row) != n {
			return nil, fmt.Errorf("moments: row %d has %d returns, expected %d", i, len(row), n)
		}
		x.SetRow(i, row)
	}

	mean := make([]float64, n)
	for j := 0; j < n; j++ {
		mean[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}

	cov := mat.NewSymDense(n, nil)
	if rows < 2 {
		// The unbiased estimator is undefined for a single observation.
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				cov.SetSym(i, j, math.NaN())
			}
		}
	} else {
		stat.CovarianceMatrix(cov, x, nil)
		cov.ScaleSym(TradingPeriodsPerYear, cov)
	}

	return &Moments{mean: mean, cov: cov}, nil
}

// Evaluate scores one weight vector. Degenerate inputs yield Invalid(), never an error;
// the error return is reserved for a weight vector of the wrong length.
func (m *Moments) Evaluate(weights WeightVector) (Performance, error) {
	if len(weights) != len(m.mean) {
		return Invalid(), fmt.Errorf("evaluate: %d weights for %d assets", len(weights), len(m.mean))
	}

	annReturn := floats.Dot(m.mean, weights) * TradingPeriodsPerYear

	w := mat.NewVecDense(len(weights), weights)
	radicand := mat.Inner(w, m.cov, w)
	if radicand < 0 {
		radicand = 0
	}
	annVol := math.Sqrt(radicand)

	p := Performance{
		Return:     annReturn,
		Volatility: annVol,
		Sharpe:     annReturn / (annVol + SharpeEpsilon),
	}
	if !p.Valid() {
		return Invalid(), nil
	}
	return p, nil
}

// Evaluate scores weights against a return table. It is a pure function of its inputs.
func Evaluate(weights WeightVector, returns *ReturnTable) (Performance, error) {
	m, err := NewMoments(returns)
	if err != nil {
		return Invalid(), err
	}
	return m.Evaluate(weights)
}
