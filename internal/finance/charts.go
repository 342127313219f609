package finance

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/vicanso/go-charts/v2"

	"portfolioFrontier/internal/portfolio"
)

// IndexedPriceChart plots every asset rebased to 100 at the first date on which all of
// them have a price. Dates with a missing price are left out.
func IndexedPriceChart(prices *portfolio.PriceTable) ([]byte, error) {
	if prices == nil || len(prices.Assets) == 0 {
		return nil, errors.New("no symbols provided")
	}

	var rows []int
	for r, row := range prices.Prices {
		complete := true
		for _, p := range row {
			if !(p > 0) || math.IsInf(p, 0) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, r)
		}
	}
	if len(rows) < 2 {
		return nil, errors.New("not enough data points")
	}

	xLabels := make([]string, len(rows))
	for i, r := range rows {
		xLabels[i] = prices.Dates[r].Format("2006-01-02")
	}

	base := prices.Prices[rows[0]]
	values := make([][]float64, len(prices.Assets))
	gmin, gmax := math.Inf(1), math.Inf(-1)
	for a := range prices.Assets {
		out := make([]float64, len(rows))
		for i, r := range rows {
			v := prices.Prices[r][a] / base[a] * 100
			out[i] = v
			gmin = math.Min(gmin, v)
			gmax = math.Max(gmax, v)
		}
		values[a] = out
	}
	pad := (gmax - gmin) * 0.05
	if pad == 0 {
		pad = 1
	}
	yMin, yMax := gmin-pad, gmax+pad

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = prices.Assets[i]
		seriesList[i].AxisIndex = 0
	}
	first, last := prices.Dates[rows[0]], prices.Dates[rows[len(rows)-1]]
	title := "Indexed Prices • Base 100"
	subtitle := fmt.Sprintf("%s • %s to %s", strings.Join(prices.Assets, ", "),
		first.Format("2006-01-02"), last.Format("2006-01-02"))

	painter, err := charts.Render(
		charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, BoundaryGap: charts.FalseFlag(), SplitNumber: 10}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: prices.Assets}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return painter.Bytes()
}
