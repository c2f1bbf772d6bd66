package dashboard

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// renderValueChart writes an HTML page with the account value line and one
// price line per symbol.
func renderValueChart(w io.Writer, s State) error {
	page := components.NewPage().SetPageTitle("levtrader")

	value := charts.NewLine()
	value.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros, Width: "1100px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Account value",
			Subtitle: fmt.Sprintf("total $%.2f  cash $%.2f  roi %.2f%%  open %d", s.Stats.TotalValue, s.Stats.Cash, s.Stats.ROIPercent, s.Stats.OpenPositions),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	xs := make([]string, len(s.ValueHistory))
	ys := make([]opts.LineData, len(s.ValueHistory))
	for i, p := range s.ValueHistory {
		xs[i] = p.Time.Local().Format("15:04:05")
		ys[i] = opts.LineData{Value: p.Value}
	}
	value.SetXAxis(xs).AddSeries("value", ys,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}))
	page.AddCharts(value)

	for _, sym := range sortedKeys(s.PriceHistory) {
		pts := s.PriceHistory[sym]
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros, Width: "1100px", Height: "240px"}),
			charts.WithTitleOpts(opts.Title{Title: sym}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
		)
		px := make([]string, len(pts))
		py := make([]opts.LineData, len(pts))
		for i, p := range pts {
			px[i] = p.Time.Local().Format("15:04:05")
			py[i] = opts.LineData{Value: p.Price}
		}
		line.SetXAxis(px).AddSeries(sym, py,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		page.AddCharts(line)
	}

	return page.Render(w)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
