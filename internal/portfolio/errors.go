package portfolio

import "errors"

// Terminal failures of an optimization run. Callers branch on them with errors.Is;
// every layer above wraps them with context.
var (
	// ErrDataUnavailable means price retrieval produced no usable table.
	ErrDataUnavailable = errors.New("price data unavailable")
	// ErrEmptyResult means no row survived the returns computation.
	ErrEmptyResult = errors.New("returns computation yielded no rows")
	// ErrInsufficientAssets means fewer than two assets have computable returns.
	ErrInsufficientAssets = errors.New("need at least 2 assets with valid returns")
	// ErrNoValidPortfolio means every simulated trial was numerically degenerate.
	ErrNoValidPortfolio = errors.New("no valid portfolio could be generated")
)
