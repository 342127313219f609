package finance

import "math"

// sanitizePrices aligns timestamps with values and marks nulls, non-finite and
// non-positive prices as missing (NaN). Nothing is filled or removed.
func sanitizePrices(ts []int64, vals []*float64) ([]int64, []float64) {
	n := len(ts)
	if len(vals) < n {
		n = len(vals)
	}
	outTs := make([]int64, n)
	outCl := make([]float64, n)
	for i := 0; i < n; i++ {
		outTs[i] = ts[i]
		v := vals[i]
		if v == nil || *v <= 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
			outCl[i] = math.NaN()
			continue
		}
		outCl[i] = *v
	}
	return outTs, outCl
}
