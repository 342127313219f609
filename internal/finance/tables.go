package finance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"portfolioFrontier/internal/portfolio"
)

// AllocationTable sorts an allocation by descending weight (ties by asset) and expresses
// each weight as a percentage.
func AllocationTable(a portfolio.Allocation) []AllocationRow {
	rows := make([]AllocationRow, 0, len(a))
	for asset, w := range a {
		rows = append(rows, AllocationRow{Asset: asset, Weight: w, Percent: w * 100})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Weight != rows[j].Weight {
			return rows[i].Weight > rows[j].Weight
		}
		return rows[i].Asset < rows[j].Asset
	})
	return rows
}

func metricsLine(p portfolio.Performance) string {
	return fmt.Sprintf("Return %.2f%% · Volatility %.2f%% · Sharpe %.2f",
		p.Return*100, p.Volatility*100, p.Sharpe)
}

// AllocationMarkdown renders the three optimal portfolios as markdown tables.
func AllocationMarkdown(set portfolio.OptimalSet) string {
	var b strings.Builder
	b.WriteString("# Optimal Portfolio Allocations\n")
	for _, np := range NamedPicks(set) {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n\n", np.Title, metricsLine(np.Pick.Performance))
		b.WriteString("| Asset | Allocation |\n|:---|---:|\n")
		for _, row := range AllocationTable(np.Pick.Allocation) {
			fmt.Fprintf(&b, "| %s | %.2f%% |\n", row.Asset, row.Percent)
		}
	}
	return b.String()
}

// AllocationText renders the optimal portfolios as fixed-width text for chat clients
// without table support.
func AllocationText(set portfolio.OptimalSet) string {
	var b strings.Builder
	for i, np := range NamedPicks(set) {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n%s\n", np.Title, metricsLine(np.Pick.Performance))
		for _, row := range AllocationTable(np.Pick.Allocation) {
			fmt.Fprintf(&b, "  %-8s %7.2f%%\n", row.Asset, row.Percent)
		}
	}
	return b.String()
}

// HoldingMarkdown reports how each optimal allocation would have fared bought at the
// start of the price history and held to its end.
func HoldingMarkdown(prices *portfolio.PriceTable, set portfolio.OptimalSet) string {
	var b strings.Builder
	b.WriteString("## Buy and Hold Over the Sample\n\n")
	b.WriteString("| Portfolio | Total | Annualized | Volatility | Max Drawdown |\n|:---|---:|---:|---:|---:|\n")
	for _, np := range NamedPicks(set) {
		path, err := HoldAllocation(prices, np.Pick.Allocation, 100)
		var stats *HoldingStats
		if err == nil {
			stats, err = HoldingStatsOf(path)
		}
		if err != nil {
			fmt.Fprintf(&b, "| %s | n/a | n/a | n/a | n/a |\n", np.Title)
			continue
		}
		fmt.Fprintf(&b, "| %s | %.2f%% | %.2f%% | %.2f%% | %.2f%% |\n",
			np.Title, stats.TotalReturn, stats.AnnualReturn, stats.Volatility, stats.MaxDrawdown)
	}
	return b.String()
}

// RenderTerminal formats markdown for a terminal of the given width.
func RenderTerminal(md string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
