package models

import "github.com/shopspring/decimal"

// ExposurePoint aggregates the holdings sharing one location on one pull date.
type ExposurePoint struct {
	DateOfPull  Date                `json:"date_of_pull"`
	TotalWeight decimal.NullDecimal `json:"total_weight"`
	NumHoldings int                 `json:"num_holdings"`
	AvgYTM      decimal.NullDecimal `json:"avg_ytm"`
}

// DateCount is the number of holdings stored for a pull date, optionally for one ETF.
type DateCount struct {
	DateOfPull  Date   `json:"date_of_pull"`
	ETFCode     string `json:"etf_code"`
	NumHoldings int    `json:"num_holdings"`
}

// ETFStats summarizes what is stored for one ETF.
type ETFStats struct {
	ETFCode   string `json:"etf_code"`
	Records   int    `json:"records"`
	Dates     int    `json:"dates"`
	FirstDate Date   `json:"first_date"`
	LastDate  Date   `json:"last_date"`
}

// DatabaseStats summarizes the whole holdings table. Dates are zero when the table is empty.
type DatabaseStats struct {
	TotalRecords int        `json:"total_records"`
	FirstDate    Date       `json:"first_date"`
	LastDate     Date       `json:"last_date"`
	ByETF        []ETFStats `json:"by_etf"`
}
