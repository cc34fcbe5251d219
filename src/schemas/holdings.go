package schemas

import (
	"tracker/src/models"

	"github.com/shopspring/decimal"
)

// TopHolding is the projection returned by the top-N query.
type TopHolding struct {
	Name      *string             `json:"name"`
	Ticker    *string             `json:"ticker"`
	Location  *string             `json:"location"`
	WeightPct decimal.NullDecimal `json:"weight_pct"`
	YTMPct    decimal.NullDecimal `json:"ytm_pct"`
	Maturity  *string             `json:"maturity"`
}

func NewTopHolding(h models.Holding) TopHolding {
	return TopHolding{
		Name:      h.Name,
		Ticker:    h.Ticker,
		Location:  h.Location,
		WeightPct: h.WeightPct,
		YTMPct:    h.YTMPct,
		Maturity:  h.Maturity,
	}
}

// TimeSeriesFilter selects the holdings of a time series. Empty fields are not applied.
type TimeSeriesFilter struct {
	Ticker  string `json:"ticker"`
	Name    string `json:"name"`
	ETFCode string `json:"etf_code"`
}

// Snapshot is the full holding set of one ETF on one pull date.
type Snapshot struct {
	ETFCode    string           `json:"etf_code"`
	DateOfPull models.Date      `json:"date_of_pull"`
	Holdings   []models.Holding `json:"holdings"`
}
