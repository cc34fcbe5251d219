// Package render draws holdings data as self-contained echarts HTML pages.
package render

import (
	"io"
	"sort"

	"tracker/src/models"
	"tracker/src/utils"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/shopspring/decimal"
)

// ExposureLineChart plots total weight and average yield per pull date.
func ExposureLineChart(w io.Writer, title string, points []models.ExposurePoint) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	dates := make([]string, 0, len(points))
	weights := make([]opts.LineData, 0, len(points))
	yields := make([]opts.LineData, 0, len(points))
	for _, p := range points {
		dates = append(dates, p.DateOfPull.String())
		weights = append(weights, opts.LineData{Value: chartValue(p.TotalWeight)})
		yields = append(yields, opts.LineData{Value: chartValue(p.AvgYTM)})
	}
	line.SetXAxis(dates).
		AddSeries("Weight (%)", weights, seriesColor(0)).
		AddSeries("Avg YTM (%)", yields, seriesColor(1))
	return line.Render(w)
}

// WeightLineChart plots the weight of each instrument over time, one series per ETF and ticker.
func WeightLineChart(w io.Writer, title string, holdings []models.Holding) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	dateSet := map[string]bool{}
	series := map[string]map[string]decimal.NullDecimal{}
	var names []string
	for _, h := range holdings {
		date := h.DateOfPull.String()
		dateSet[date] = true
		name := h.ETFCode + " " + seriesLabel(h)
		if _, ok := series[name]; !ok {
			series[name] = map[string]decimal.NullDecimal{}
			names = append(names, name)
		}
		series[name][date] = h.WeightPct
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	line.SetXAxis(dates)
	for i, name := range names {
		data := make([]opts.LineData, 0, len(dates))
		for _, d := range dates {
			data = append(data, opts.LineData{Value: chartValue(series[name][d])})
		}
		line.AddSeries(name, data, seriesColor(i))
	}
	return line.Render(w)
}

// LocationPie shows how the weight of a snapshot splits across locations.
func LocationPie(w io.Writer, title string, holdings []models.Holding) error {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	totals := map[string]decimal.Decimal{}
	for _, h := range holdings {
		loc := models.StringOf(h.Location)
		if loc == "" {
			loc = "-"
		}
		if h.WeightPct.Valid {
			totals[loc] = totals[loc].Add(h.WeightPct.Decimal)
		}
	}
	locations := make([]string, 0, len(totals))
	for loc := range totals {
		locations = append(locations, loc)
	}
	sort.Slice(locations, func(i, j int) bool { return totals[locations[i]].GreaterThan(totals[locations[j]]) })

	items := make([]opts.PieData, 0, len(locations))
	for i, loc := range locations {
		items = append(items, opts.PieData{
			Name:      loc,
			Value:     totals[loc].InexactFloat64(),
			ItemStyle: &opts.ItemStyle{Color: utils.GetChartColor(i)},
		})
	}
	pie.AddSeries("Weight (%)", items)
	return pie.Render(w)
}

func seriesColor(index int) charts.SeriesOpts {
	return charts.WithItemStyleOpts(opts.ItemStyle{Color: utils.GetChartColor(index)})
}

func seriesLabel(h models.Holding) string {
	if h.Ticker != nil {
		return *h.Ticker
	}
	return models.StringOf(h.Name)
}

func chartValue(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}
