package models

import "time"

// RunLogEntry is the recorded outcome of one ETF within an ingestion run.
type RunLogEntry struct {
	ID        int       `db:"id" json:"-"`
	RunID     string    `db:"run_id" json:"run_id"`
	ETFCode   string    `db:"etf_code" json:"etf_code"`
	RunDate   Date      `db:"run_date" json:"run_date"`
	Outcome   string    `db:"outcome" json:"outcome"`
	Message   *string   `db:"message" json:"message,omitempty"`
	Holdings  int       `db:"holdings" json:"holdings"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
