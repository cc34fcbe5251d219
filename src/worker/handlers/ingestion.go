package handlers

import (
	"net/http"
	"strings"
	"time"
)

// RunIngestion triggers a run. The optional codes query parameter is a comma separated list of ETF codes.
func (h *Handler) RunIngestion(w http.ResponseWriter, r *http.Request) {
	var codes []string
	for _, code := range strings.Split(r.URL.Query().Get("codes"), ",") {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			codes = append(codes, code)
		}
	}

	summary, err := h.Controller.RunIngestion(r.Context(), codes)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, summary, http.StatusOK)
}

type ingestionStatus struct {
	NextRun *time.Time  `json:"next_run"`
	LastRun interface{} `json:"last_run"`
}

func (h *Handler) IngestionStatus(w http.ResponseWriter, r *http.Request) {
	status := ingestionStatus{}
	if next := h.Controller.NextRun(); !next.IsZero() {
		status.NextRun = &next
	}
	if last := h.Controller.LastRun(); last != nil {
		status.LastRun = last
	}
	h.respond(w, r, status, http.StatusOK)
}
