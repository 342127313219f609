package finance

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioFrontier/internal/portfolio"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func resultsFixture(t *testing.T) (*portfolio.Results, portfolio.OptimalSet) {
	t.Helper()
	res := &portfolio.Results{
		Assets: []string{"SPY", "TLT"},
		Performance: []portfolio.Performance{
			{Return: 0.05, Volatility: 0.07, Sharpe: 0.71},
			portfolio.Invalid(),
			{Return: 0.09, Volatility: 0.09, Sharpe: 1.0},
			{Return: 0.14, Volatility: 0.18, Sharpe: 0.78},
		},
		Weights: []portfolio.WeightVector{{0.1, 0.9}, {0.5, 0.5}, {0.5, 0.5}, {0.95, 0.05}},
	}
	set, err := res.Select()
	require.NoError(t, err)
	return res, set
}

func TestFrontierChart(t *testing.T) {
	res, set := resultsFixture(t)
	img, err := FrontierChart(res, set)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	_, err = FrontierChart(nil, set)
	assert.Error(t, err)
	_, err = FrontierChart(&portfolio.Results{Performance: []portfolio.Performance{portfolio.Invalid()}}, set)
	assert.Error(t, err)
}

func TestFrontierChartSingleSharpe(t *testing.T) {
	res := &portfolio.Results{
		Assets:      []string{"A", "B"},
		Performance: []portfolio.Performance{{Return: 0.1, Volatility: 0.1, Sharpe: 1}},
		Weights:     []portfolio.WeightVector{{0.5, 0.5}},
	}
	set, err := res.Select()
	require.NoError(t, err)
	img, err := FrontierChart(res, set)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))
}

func TestAllocationPie(t *testing.T) {
	_, set := resultsFixture(t)
	img, err := AllocationPie("Maximum Sharpe Ratio Portfolio", set.MaxSharpe.Allocation)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	_, err = AllocationPie("empty", nil)
	assert.Error(t, err)
}

func TestCachedFrontierChart(t *testing.T) {
	res, set := resultsFixture(t)
	first, err := CachedFrontierChart("SPY_TLT|cache-test", res, set)
	require.NoError(t, err)

	img, ok := cacheGet("frontier-spy_tlt|cache-test")
	require.True(t, ok)
	assert.Equal(t, first, img)

	// a cached entry is served without re-rendering
	second, err := CachedFrontierChart("SPY_TLT|cache-test", nil, set)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
