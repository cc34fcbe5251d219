package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tracker/src/clients/feed"
	"tracker/src/models"
	"tracker/src/registry"
	"tracker/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"
)

// ErrNoData means a feed could not be turned into any holdings.
var ErrNoData = errors.New("no holdings data")

// MaxFeedRows caps how many qualifying rows are read from one feed.
const MaxFeedRows = 1000

// Source column names as published by the vendor.
const (
	ColWeight        = "Weight (%)"
	ColYTM           = "YTM (%)"
	ColMarketValue   = "Market Value"
	ColNotionalValue = "Notional Value"
	ColShares        = "Shares"
	ColPrice         = "Price"
	ColTicker        = "Ticker"
	ColName          = "Name"
	ColLocation      = "Location"
	ColSector        = "Sector"
	ColMaturity      = "Maturity"
)

var numericColumns = []struct {
	source string
	set    func(*models.Holding, decimal.NullDecimal)
}{
	{ColWeight, func(h *models.Holding, v decimal.NullDecimal) { h.WeightPct = v }},
	{ColYTM, func(h *models.Holding, v decimal.NullDecimal) { h.YTMPct = v }},
	{ColMarketValue, func(h *models.Holding, v decimal.NullDecimal) { h.MarketValue = v }},
	{ColNotionalValue, func(h *models.Holding, v decimal.NullDecimal) { h.NotionalValue = v }},
	{ColShares, func(h *models.Holding, v decimal.NullDecimal) { h.Shares = v }},
	{ColPrice, func(h *models.Holding, v decimal.NullDecimal) { h.Price = v }},
}

var textColumns = []struct {
	source string
	set    func(*models.Holding, *string)
}{
	{ColTicker, func(h *models.Holding, v *string) { h.Ticker = v }},
	{ColName, func(h *models.Holding, v *string) { h.Name = v }},
	{ColLocation, func(h *models.Holding, v *string) { h.Location = v }},
	{ColSector, func(h *models.Holding, v *string) { h.Sector = v }},
	{ColMaturity, func(h *models.Holding, v *string) { h.Maturity = v }},
}

// missingValues are the cell spellings read as null.
var missingValues = []string{"", "#N/A", "N/A", "NA", "<NA>", "NaN", "nan", "n/a", "NULL", "null", "None"}

type NormalizerServiceI interface {
	Normalize(ctx context.Context, etfCode string, entry registry.Entry) ([]models.Holding, error)
}

type NormalizerService struct {
	feedClient feed.FeedClientI
	now        func() time.Time
}

func NewNormalizerService(feedClient feed.FeedClientI, now func() time.Time) *NormalizerService {
	if now == nil {
		now = time.Now
	}
	return &NormalizerService{feedClient: feedClient, now: now}
}

// Normalize fetches the feed of entry and returns its canonical holdings stamped with etfCode and today's date.
// Any fetch or parse failure, and a feed with no usable rows, is reported as ErrNoData.
func (s *NormalizerService) Normalize(ctx context.Context, etfCode string, entry registry.Entry) ([]models.Holding, error) {
	logger := utils.LoggerFromContext(ctx).WithField("etf_code", etfCode)
	logger.Info("Fetching holdings feed")

	body, err := s.feedClient.GetCSV(ctx, entry.URL)
	if err != nil {
		logger.WithError(err).Error("Error fetching feed")
		return nil, fmt.Errorf("%w: fetching %s: %w", ErrNoData, etfCode, err)
	}

	records, err := utils.ReadCSVFromOffset(bytes.NewReader(body), entry.HeaderRow)
	if err != nil {
		logger.WithError(err).Error("Error parsing feed")
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrNoData, etfCode, err)
	}

	holdings, err := NormalizeRecords(etfCode, models.DateOf(s.now()), records)
	if err != nil {
		logger.WithError(err).Error("Error normalizing feed")
		return nil, fmt.Errorf("%w: normalizing %s: %w", ErrNoData, etfCode, err)
	}
	if len(holdings) == 0 {
		logger.Warn("Feed has no usable holdings")
		return nil, fmt.Errorf("%w: %s feed has no usable rows", ErrNoData, etfCode)
	}

	logger.WithField("holdings", len(holdings)).Info("Fetched holdings")
	return holdings, nil
}

// NormalizeRecords turns a header-first CSV table into holdings. Rows whose weight is zero or not numeric are
// discarded, at most MaxFeedRows rows are kept, and rows with fewer than half of the available columns set are
// dropped. Columns the feed does not publish stay null and are not counted as available.
func NormalizeRecords(etfCode string, date models.Date, records [][]string) ([]models.Holding, error) {
	if len(records) < 2 {
		return nil, nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingValues),
	)
	if df.Err != nil {
		return nil, df.Err
	}

	present := map[string]bool{}
	for _, name := range df.Names() {
		present[name] = true
	}
	if !present[ColWeight] {
		return nil, nil
	}

	weights := df.Col(ColWeight)
	var keep []int
	for i := 0; i < df.Nrow() && len(keep) < MaxFeedRows; i++ {
		if w := parseNumeric(weights.Elem(i)); w.Valid && !w.Decimal.IsZero() {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, nil
	}
	df = df.Subset(keep)
	if df.Err != nil {
		return nil, df.Err
	}

	// etf_code and date_of_pull are always available and set
	available := 2
	cols := map[string]series.Series{}
	for _, c := range numericColumns {
		if present[c.source] {
			cols[c.source] = df.Col(c.source)
			available++
		}
	}
	for _, c := range textColumns {
		if present[c.source] {
			cols[c.source] = df.Col(c.source)
			available++
		}
	}

	holdings := make([]models.Holding, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		h := models.Holding{ETFCode: etfCode, DateOfPull: date}
		set := 2
		for _, c := range numericColumns {
			col, ok := cols[c.source]
			if !ok {
				continue
			}
			v := parseNumeric(col.Elem(i))
			if v.Valid {
				set++
			}
			c.set(&h, v)
		}
		for _, c := range textColumns {
			col, ok := cols[c.source]
			if !ok {
				continue
			}
			v := parseText(col.Elem(i))
			if v != nil {
				set++
			}
			c.set(&h, v)
		}
		if 2*set < available {
			continue
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}

// parseNumeric coerces a cell to a decimal, ignoring surrounding spaces and thousands separators. Anything else
// that does not parse is null.
func parseNumeric(e series.Element) decimal.NullDecimal {
	if e.IsNA() {
		return decimal.NullDecimal{}
	}
	s := strings.ReplaceAll(strings.TrimSpace(e.String()), ",", "")
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func parseText(e series.Element) *string {
	if e.IsNA() {
		return nil
	}
	s := strings.TrimSpace(e.String())
	if s == "" {
		return nil
	}
	return &s
}
