package services

import (
	"fmt"
	"sort"

	"tracker/src/models"
	"tracker/src/schemas"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	holdingsSheet   = "Holdings"
	locationSheet   = "By Location"
	comparisonSheet = "Changes"
	summarySheet    = "Summary"
)

type ExportServiceI interface {
	SnapshotXLSX(snapshot *schemas.Snapshot) (*excelize.File, error)
	ComparisonXLSX(comparison *schemas.Comparison) (*excelize.File, error)
}

// ExportService renders query results as workbooks.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

var snapshotHeader = []string{"Ticker", "Name", "Location", "Sector", "Maturity", "Weight (%)", "YTM (%)",
	"Market Value", "Notional Value", "Shares", "Price"}

// SnapshotXLSX writes one row per holding plus a per-location breakdown with a pie chart.
func (s *ExportService) SnapshotXLSX(snapshot *schemas.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", holdingsSheet); err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(snapshot.Holdings))
	for _, h := range snapshot.Holdings {
		rows = append(rows, []interface{}{
			models.StringOf(h.Ticker), models.StringOf(h.Name), models.StringOf(h.Location),
			models.StringOf(h.Sector), models.StringOf(h.Maturity),
			cellValue(h.WeightPct), cellValue(h.YTMPct), cellValue(h.MarketValue),
			cellValue(h.NotionalValue), cellValue(h.Shares), cellValue(h.Price),
		})
	}
	if err := writeTable(f, holdingsSheet, snapshotHeader, rows); err != nil {
		return nil, err
	}

	if len(snapshot.Holdings) > 0 {
		if _, err := f.NewSheet(locationSheet); err != nil {
			return nil, err
		}
		if err := writeTable(f, locationSheet, []string{"Location", "Weight (%)", "Holdings"}, locationRows(snapshot.Holdings)); err != nil {
			return nil, err
		}
		if err := addLocationPieChart(f, locationSheet, snapshot); err != nil {
			return nil, err
		}
	}
	return f, nil
}

var comparisonHeader = []string{"Ticker", "Name", "Location", "Status", "Weight Old", "Weight New", "Weight Change",
	"YTM Old", "YTM New", "YTM Change"}

// ComparisonXLSX writes the per-instrument changes and the summary counts on separate sheets.
func (s *ExportService) ComparisonXLSX(comparison *schemas.Comparison) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", comparisonSheet); err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(comparison.Rows))
	for _, r := range comparison.Rows {
		rows = append(rows, []interface{}{
			models.StringOf(r.Ticker), models.StringOf(r.Name), models.StringOf(r.Location), string(r.Kind),
			cellValue(r.WeightOld), cellValue(r.WeightNew), r.WeightChange.InexactFloat64(),
			cellValue(r.YTMOld), cellValue(r.YTMNew), cellValue(r.YTMChange),
		})
	}
	if err := writeTable(f, comparisonSheet, comparisonHeader, rows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	summary := [][]interface{}{
		{"ETF", comparison.ETFCode},
		{"From", comparison.Date1.String()},
		{"To", comparison.Date2.String()},
		{"New positions", comparison.Summary.NewPositions},
		{"Removed positions", comparison.Summary.RemovedPositions},
		{"Changed positions", comparison.Summary.ChangedPositions},
	}
	if err := writeTable(f, summarySheet, []string{"Field", "Value"}, summary); err != nil {
		return nil, err
	}
	return f, nil
}

func cellValue(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

// locationRows sums weights per location, heaviest first. Holdings without a location are grouped under "-".
func locationRows(holdings []models.Holding) [][]interface{} {
	weights := map[string]decimal.Decimal{}
	counts := map[string]int{}
	for _, h := range holdings {
		loc := models.StringOf(h.Location)
		if loc == "" {
			loc = "-"
		}
		weights[loc] = weights[loc].Add(orZero(h.WeightPct))
		counts[loc]++
	}

	locations := make([]string, 0, len(weights))
	for loc := range weights {
		locations = append(locations, loc)
	}
	sort.Slice(locations, func(i, j int) bool {
		if !weights[locations[i]].Equal(weights[locations[j]]) {
			return weights[locations[i]].GreaterThan(weights[locations[j]])
		}
		return locations[i] < locations[j]
	})

	rows := make([][]interface{}, 0, len(locations))
	for _, loc := range locations {
		rows = append(rows, []interface{}{loc, weights[loc].InexactFloat64(), counts[loc]})
	}
	return rows
}

// writeTable writes a styled header on row 1 followed by rows.
func writeTable(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	for i, title := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return err
		}
	}
	for r, row := range rows {
		start, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6E6"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 15); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func addLocationPieChart(f *excelize.File, sheet string, snapshot *schemas.Snapshot) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	endRow := len(rows)

	title := fmt.Sprintf("%s %s", snapshot.ETFCode, snapshot.DateOfPull)
	chart := excelize.Chart{
		Type: excelize.Pie,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("'%s'!$B$1", sheet),
				Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, endRow),
				Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", sheet, endRow),
			},
		},
		Title: []excelize.RichTextRun{
			{
				Text: title,
				Font: &excelize.Font{Bold: true, Size: 18},
			},
		},
		Legend: excelize.ChartLegend{
			Position: "right",
		},
		Dimension: excelize.ChartDimension{
			Width:  800,
			Height: 600,
		},
		PlotArea: excelize.ChartPlotArea{
			ShowPercent: true,
		},
	}
	if err := f.AddChart(sheet, "E2", &chart); err != nil {
		return fmt.Errorf("failed to add pie chart to sheet %s: %w", sheet, err)
	}
	return nil
}
