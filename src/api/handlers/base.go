package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"tracker/src/api/controllers"
	"tracker/src/models"
	"tracker/src/utils"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

type Handler struct {
	HoldingsController controllers.HoldingsControllerI
	Logger             *logrus.Logger
}

func NewHandler(holdingsController controllers.HoldingsControllerI, logger *logrus.Logger) *Handler {
	return &Handler{HoldingsController: holdingsController, Logger: logger}
}

func Healthcheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		fmt.Fprintf(w, "Im alive!")
	} else {
		fmt.Fprintf(w, "Method not available: %s", r.Method)
	}
}

func (h *Handler) respond(w http.ResponseWriter, _ *http.Request, data interface{}, status int) {
	res, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(res)
}

func (h *Handler) HandleErrors(w http.ResponseWriter, err error) {
	var httpErr *utils.HTTPError
	if errors.Is(err, context.DeadlineExceeded) {
		h.respond(w, nil, map[string]string{"error": "Request timed out"}, http.StatusGatewayTimeout)
	} else if errors.As(err, &httpErr) {
		h.respond(w, nil, map[string]string{"error": httpErr.Message}, httpErr.Code)
	} else if err != nil {
		h.Logger.WithError(err).Error("Request failed")
		h.respond(w, nil, map[string]string{"error": err.Error()}, http.StatusInternalServerError)
	} else {
		h.respond(w, nil, map[string]string{"error": "Unhandled error"}, http.StatusInternalServerError)
	}
}

func (h *Handler) respondXLSX(w http.ResponseWriter, f *excelize.File, filename string) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	if err := f.Write(w); err != nil {
		h.Logger.WithError(err).Error("Error writing workbook")
	}
}

// respondHTML renders into a buffer first so a failed render still yields a JSON error.
func (h *Handler) respondHTML(w http.ResponseWriter, draw func(io.Writer) error) {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		h.HandleErrors(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// etfCode is the upper-cased {code} URL parameter.
func etfCode(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
}

// optionalDate parses the named query parameter, nil when absent.
func optionalDate(r *http.Request, name string) (*models.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, utils.BadRequest(fmt.Sprintf("invalid %s %q, expected YYYY-MM-DD", name, raw))
	}
	return &d, nil
}

func requiredDate(r *http.Request, name string) (models.Date, error) {
	d, err := optionalDate(r, name)
	if err != nil {
		return models.Date{}, err
	}
	if d == nil {
		return models.Date{}, utils.BadRequest(fmt.Sprintf("missing %s parameter", name))
	}
	return *d, nil
}

func positiveInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, utils.BadRequest(fmt.Sprintf("invalid %s %q, expected a positive integer", name, raw))
	}
	return n, nil
}
