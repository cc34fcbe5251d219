package schemas

import (
	"tracker/src/models"

	"github.com/shopspring/decimal"
)

// PresenceKind tells on which side of a comparison an instrument was found.
type PresenceKind string

const (
	OnlyOld PresenceKind = "only_old"
	OnlyNew PresenceKind = "only_new"
	Both    PresenceKind = "both"
)

// ComparisonRow is the change of one (ticker, name) instrument between two pull dates.
type ComparisonRow struct {
	Ticker       *string             `json:"ticker"`
	Name         *string             `json:"name"`
	Location     *string             `json:"location"`
	Kind         PresenceKind        `json:"kind"`
	WeightOld    decimal.NullDecimal `json:"weight_old"`
	WeightNew    decimal.NullDecimal `json:"weight_new"`
	WeightChange decimal.Decimal     `json:"weight_change"`
	YTMOld       decimal.NullDecimal `json:"ytm_old"`
	YTMNew       decimal.NullDecimal `json:"ytm_new"`
	YTMChange    decimal.NullDecimal `json:"ytm_change"`
}

// ComparisonSummary counts instruments added, removed and changed between the two dates.
type ComparisonSummary struct {
	NewPositions     int `json:"new_positions"`
	RemovedPositions int `json:"removed_positions"`
	ChangedPositions int `json:"changed_positions"`
}

type Comparison struct {
	ETFCode string            `json:"etf_code"`
	Date1   models.Date       `json:"date1"`
	Date2   models.Date       `json:"date2"`
	Rows    []ComparisonRow   `json:"changes"`
	Summary ComparisonSummary `json:"summary"`
}
