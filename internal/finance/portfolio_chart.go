package finance

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/vicanso/go-charts/v2"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"portfolioFrontier/internal/portfolio"
)

// FrontierChart plots every valid trial as volatility against return, coloured by Sharpe
// ratio, with the three optimal portfolios marked.
func FrontierChart(res *portfolio.Results, set portfolio.OptimalSet) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("no results to plot")
	}

	var xs, ys, sharpes []float64
	minS, maxS := math.Inf(1), math.Inf(-1)
	for _, p := range res.Performance {
		if !p.Valid() {
			continue
		}
		xs = append(xs, p.Volatility)
		ys = append(ys, p.Return)
		sharpes = append(sharpes, p.Sharpe)
		minS = math.Min(minS, p.Sharpe)
		maxS = math.Max(maxS, p.Sharpe)
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("no valid portfolios to plot")
	}
	if maxS <= minS {
		maxS = minS + 1
	}

	cloud := chart.ContinuousSeries{
		Name: "Simulated portfolios",
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    2,
			DotColorProvider: func(_, _ chart.Range, index int, _, _ float64) drawing.Color {
				return chart.Viridis(sharpes[index], minS, maxS).WithAlpha(90)
			},
		},
		XValues: xs,
		YValues: ys,
	}

	marker := func(name string, p portfolio.Pick, c drawing.Color) chart.ContinuousSeries {
		return chart.ContinuousSeries{
			Name: name,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    8,
				DotColor:    c,
			},
			XValues: []float64{p.Performance.Volatility},
			YValues: []float64{p.Performance.Return},
		}
	}

	graph := chart.Chart{
		Title:  "Portfolio Optimization - Efficient Frontier",
		Width:  1200,
		Height: 800,
		Background: chart.Style{
			Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Volatility (Risk)",
			ValueFormatter: chart.PercentValueFormatter,
			Range:          paddedRange(xs),
		},
		YAxis: chart.YAxis{
			Name:           "Expected Return",
			ValueFormatter: chart.PercentValueFormatter,
			Range:          paddedRange(ys),
		},
		Series: []chart.Series{
			cloud,
			marker("Max Sharpe", set.MaxSharpe, drawing.ColorRed),
			marker("Min Volatility", set.MinVolatility, drawing.ColorGreen),
			marker("Max Return", set.MaxReturn, drawing.ColorBlue),
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// paddedRange spans vals with a 5% margin; a degenerate span is widened so the axis
// always has a non-zero delta.
func paddedRange(vals []float64) *chart.ContinuousRange {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(lo)*0.05, 0.01)
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// AllocationPie renders one allocation as a pie chart.
func AllocationPie(title string, alloc portfolio.Allocation) ([]byte, error) {
	rows := AllocationTable(alloc)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no allocation to plot")
	}

	var values []float64
	var labels []string
	for _, row := range rows {
		values = append(values, row.Percent)
		labels = append(labels, fmt.Sprintf("%s (%.1f%%)", row.Asset, row.Percent))
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(title),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// CachedFrontierChart renders the frontier once per key while the cache entry is fresh.
func CachedFrontierChart(key string, res *portfolio.Results, set portfolio.OptimalSet) ([]byte, error) {
	key = "frontier-" + strings.ToLower(key)
	if img, found := cacheGet(key); found {
		return img, nil
	}
	img, err := FrontierChart(res, set)
	if err != nil {
		return nil, err
	}
	cacheSet(key, img)
	return img, nil
}
