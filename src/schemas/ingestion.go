package schemas

import "tracker/src/models"

// RunSummary reports the outcome of one ingestion run. Every requested code lands in exactly one list.
type RunSummary struct {
	RunID     string            `json:"run_id"`
	RunDate   models.Date       `json:"run_date"`
	Succeeded []string          `json:"succeeded"`
	Skipped   []string          `json:"skipped"`
	Failed    []string          `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// Total is the number of codes the run considered.
func (s RunSummary) Total() int {
	return len(s.Succeeded) + len(s.Skipped) + len(s.Failed)
}
