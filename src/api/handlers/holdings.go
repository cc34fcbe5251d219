package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tracker/src/schemas"
	"tracker/src/utils"
)

const defaultTopN = 10

func (h *Handler) GetETFs(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.HoldingsController.ListETFs(r.Context()), http.StatusOK)
}

func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	snapshot, err := h.HoldingsController.GetSnapshot(ctx, etfCode(r), nil)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, snapshot, http.StatusOK)
}

// GetSnapshot serves the holdings of {code} on ?date=, or the latest pull when date is omitted.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	date, err := optionalDate(r, "date")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	snapshot, err := h.HoldingsController.GetSnapshot(ctx, etfCode(r), date)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, snapshot, http.StatusOK)
}

func (h *Handler) GetTopHoldings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	n, err := positiveInt(r, "n", defaultTopN)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	date, err := optionalDate(r, "date")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}

	top, err := h.HoldingsController.GetTopHoldings(ctx, etfCode(r), n, date)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, top, http.StatusOK)
}

func (h *Handler) GetExposure(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		h.HandleErrors(w, utils.BadRequest("missing location parameter"))
		return
	}

	points, err := h.HoldingsController.GetExposure(ctx, etfCode(r), location)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, points, http.StatusOK)
}

// GetComparison diffs ?from= against ?to=. With format=xlsx the result is a workbook.
func (h *Handler) GetComparison(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	from, err := requiredDate(r, "from")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	to, err := requiredDate(r, "to")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	code := etfCode(r)

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		comparison, err := h.HoldingsController.GetComparison(ctx, code, from, to)
		if err != nil {
			h.HandleErrors(w, err)
			return
		}
		h.respond(w, r, comparison, http.StatusOK)
	case "xlsx":
		f, err := h.HoldingsController.GenerateComparisonXLSX(ctx, code, from, to)
		if err != nil {
			h.HandleErrors(w, err)
			return
		}
		h.respondXLSX(w, f, fmt.Sprintf("%s_%s_%s.xlsx", code, from, to))
	default:
		h.HandleErrors(w, utils.BadRequest(fmt.Sprintf("unsupported format %q", format)))
	}
}

func (h *Handler) GetSnapshotXLSX(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	date, err := optionalDate(r, "date")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	code := etfCode(r)
	f, err := h.HoldingsController.GenerateSnapshotXLSX(ctx, code, date)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}

	filename := code + "_latest.xlsx"
	if date != nil {
		filename = fmt.Sprintf("%s_%s.xlsx", code, date)
	}
	h.respondXLSX(w, f, filename)
}

func (h *Handler) GetExposureChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		h.HandleErrors(w, utils.BadRequest("missing location parameter"))
		return
	}
	code := etfCode(r)
	h.respondHTML(w, func(out io.Writer) error {
		return h.HoldingsController.RenderExposureChart(ctx, out, code, location)
	})
}

func (h *Handler) GetAllocationChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	date, err := optionalDate(r, "date")
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	code := etfCode(r)
	h.respondHTML(w, func(out io.Writer) error {
		return h.HoldingsController.RenderAllocationChart(ctx, out, code, date)
	})
}

// timeSeriesFilter reads ticker, name and etf. Omitted parameters are not applied, so no parameters match every record.
func timeSeriesFilter(r *http.Request) schemas.TimeSeriesFilter {
	q := r.URL.Query()
	return schemas.TimeSeriesFilter{
		Ticker:  strings.TrimSpace(q.Get("ticker")),
		Name:    strings.TrimSpace(q.Get("name")),
		ETFCode: strings.ToUpper(strings.TrimSpace(q.Get("etf"))),
	}
}

func (h *Handler) GetTimeSeriesChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := timeSeriesFilter(r)
	h.respondHTML(w, func(out io.Writer) error {
		return h.HoldingsController.RenderTimeSeriesChart(ctx, out, filter)
	})
}

func (h *Handler) GetTimeSeries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := timeSeriesFilter(r)

	series, err := h.HoldingsController.GetTimeSeries(ctx, filter)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, series, http.StatusOK)
}

func (h *Handler) GetAvailableDates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	dates, err := h.HoldingsController.GetAvailableDates(ctx, strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("etf"))))
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, dates, http.StatusOK)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stats, err := h.HoldingsController.GetStats(ctx)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, stats, http.StatusOK)
}

func (h *Handler) GetRuns(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit, err := positiveInt(r, "limit", 30)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	runs, err := h.HoldingsController.GetRuns(ctx, strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("etf"))), limit)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, runs, http.StatusOK)
}
