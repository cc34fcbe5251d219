package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one constituent of an ETF portfolio as pulled on DateOfPull.
type Holding struct {
	ID            int                 `db:"id" json:"id"`
	ETFCode       string              `db:"etf_code" json:"etf_code"`
	DateOfPull    Date                `db:"date_of_pull" json:"date_of_pull"`
	Ticker        *string             `db:"ticker" json:"ticker"`
	Name          *string             `db:"name" json:"name"`
	Location      *string             `db:"location" json:"location"`
	Sector        *string             `db:"sector" json:"sector"`
	Maturity      *string             `db:"maturity" json:"maturity"`
	WeightPct     decimal.NullDecimal `db:"weight_pct" json:"weight_pct"`
	YTMPct        decimal.NullDecimal `db:"ytm_pct" json:"ytm_pct"`
	MarketValue   decimal.NullDecimal `db:"market_value" json:"market_value"`
	NotionalValue decimal.NullDecimal `db:"notional_value" json:"notional_value"`
	Shares        decimal.NullDecimal `db:"shares" json:"shares"`
	Price         decimal.NullDecimal `db:"price" json:"price"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
}

// HoldingColumns lists the insertable columns of the holdings table.
var HoldingColumns = []string{
	"etf_code", "date_of_pull", "ticker", "name", "location", "sector", "maturity",
	"weight_pct", "ytm_pct", "market_value", "notional_value", "shares", "price",
}

// ScanTargets returns destinations for id, HoldingColumns and created_at, in that order.
func (h *Holding) ScanTargets() []interface{} {
	return []interface{}{
		&h.ID, &h.ETFCode, &h.DateOfPull, &h.Ticker, &h.Name, &h.Location, &h.Sector, &h.Maturity,
		&h.WeightPct, &h.YTMPct, &h.MarketValue, &h.NotionalValue, &h.Shares, &h.Price, &h.CreatedAt,
	}
}

// StringOf dereferences an optional string, returning "" for nil.
func StringOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
