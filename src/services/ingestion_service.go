package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tracker/src/models"
	"tracker/src/registry"
	"tracker/src/repositories"
	"tracker/src/schemas"
	"tracker/src/utils"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrUnknownETF is recorded for codes missing from the registry.
var ErrUnknownETF = errors.New("unknown ETF code")

type IngestionServiceI interface {
	Run(ctx context.Context, codes []string) schemas.RunSummary
}

type IngestionService struct {
	registry          *registry.Registry
	normalizer        NormalizerServiceI
	holdingRepository repositories.HoldingRepository
	runLogRepository  repositories.RunLogRepository
	now               func() time.Time
}

// NewIngestionService wires an orchestrator. runLogRepository may be nil, in which case outcomes are only logged.
func NewIngestionService(reg *registry.Registry, normalizer NormalizerServiceI, holdingRepository repositories.HoldingRepository, runLogRepository repositories.RunLogRepository, now func() time.Time) *IngestionService {
	if now == nil {
		now = time.Now
	}
	return &IngestionService{
		registry:          reg,
		normalizer:        normalizer,
		holdingRepository: holdingRepository,
		runLogRepository:  runLogRepository,
		now:               now,
	}
}

// Run ingests today's holdings of every code, in order. Nil or empty codes means every registered ETF.
// A failure for one code never stops the others.
func (s *IngestionService) Run(ctx context.Context, codes []string) schemas.RunSummary {
	timer := prometheus.NewTimer(ingestRunDuration)
	defer timer.ObserveDuration()

	if len(codes) == 0 {
		codes = s.registry.Codes()
	}
	codes = uniqueCodes(codes)
	summary := schemas.RunSummary{
		RunID:     uuid.NewString(),
		RunDate:   models.DateOf(s.now()),
		Succeeded: []string{},
		Skipped:   []string{},
		Failed:    []string{},
		Errors:    map[string]string{},
	}
	logger := utils.LoggerFromContext(ctx).WithField("run_id", summary.RunID).WithField("date", summary.RunDate.String())
	ctx = utils.WithLogger(ctx, logger)
	logger.WithField("codes", codes).Info("Starting ingestion run")

	if err := s.holdingRepository.Initialize(ctx); err != nil {
		logger.WithError(err).Error("Error initializing holdings store")
		for _, code := range codes {
			s.fail(&summary, code, fmt.Errorf("initializing store: %w", err))
		}
		return summary
	}

	saved := map[string]int{}
	for _, code := range codes {
		if ctx.Err() != nil {
			s.fail(&summary, code, ctx.Err())
			continue
		}
		saved[code] = s.ingest(ctx, &summary, code)
	}
	s.recordRun(ctx, summary, codes, saved)

	logger.WithField("succeeded", len(summary.Succeeded)).
		WithField("skipped", len(summary.Skipped)).
		WithField("failed", len(summary.Failed)).
		Info("Ingestion run finished")
	return summary
}

// ingest processes one code and returns how many holdings it saved.
func (s *IngestionService) ingest(ctx context.Context, summary *schemas.RunSummary, code string) int {
	logger := utils.LoggerFromContext(ctx).WithField("etf_code", code)

	entry, ok := s.registry.Lookup(code)
	if !ok {
		logger.Warn("ETF code is not registered")
		s.fail(summary, code, fmt.Errorf("%w: %s", ErrUnknownETF, code))
		return 0
	}

	exists, err := s.holdingRepository.Exists(ctx, code, summary.RunDate)
	if err != nil {
		logger.WithError(err).Error("Error checking stored holdings")
		s.fail(summary, code, err)
		return 0
	}
	if exists {
		logger.Info("Holdings already stored for today, skipping")
		s.skip(summary, code)
		return 0
	}

	holdings, err := s.normalizer.Normalize(ctx, code, entry)
	if err != nil {
		s.fail(summary, code, err)
		return 0
	}
	// holdings carry the run date so Exists and Append agree
	for i := range holdings {
		holdings[i].DateOfPull = summary.RunDate
	}

	err = s.holdingRepository.Append(ctx, holdings)
	switch {
	case errors.Is(err, repositories.ErrAlreadyExists):
		logger.Info("Holdings were stored concurrently, skipping")
		s.skip(summary, code)
	case err != nil:
		logger.WithError(err).Error("Error saving holdings")
		s.fail(summary, code, err)
	default:
		logger.WithField("holdings", len(holdings)).Info("Saved holdings")
		summary.Succeeded = append(summary.Succeeded, code)
		ingestOutcomesTotal.WithLabelValues(OutcomeSucceeded).Inc()
		holdingsSavedTotal.Add(float64(len(holdings)))
		return len(holdings)
	}
	return 0
}

func (s *IngestionService) skip(summary *schemas.RunSummary, code string) {
	summary.Skipped = append(summary.Skipped, code)
	ingestOutcomesTotal.WithLabelValues(OutcomeSkipped).Inc()
}

func (s *IngestionService) fail(summary *schemas.RunSummary, code string, err error) {
	summary.Failed = append(summary.Failed, code)
	summary.Errors[code] = err.Error()
	ingestOutcomesTotal.WithLabelValues(OutcomeFailed).Inc()
}

// recordRun stores one run log entry per code. The run log is informational, so failures are only logged.
func (s *IngestionService) recordRun(ctx context.Context, summary schemas.RunSummary, codes []string, saved map[string]int) {
	if s.runLogRepository == nil {
		return
	}
	logger := utils.LoggerFromContext(ctx)

	outcomes := map[string]string{}
	for _, code := range summary.Succeeded {
		outcomes[code] = OutcomeSucceeded
	}
	for _, code := range summary.Skipped {
		outcomes[code] = OutcomeSkipped
	}
	for _, code := range summary.Failed {
		outcomes[code] = OutcomeFailed
	}

	entries := make([]models.RunLogEntry, 0, len(codes))
	for _, code := range codes {
		entry := models.RunLogEntry{
			RunID:    summary.RunID,
			ETFCode:  code,
			RunDate:  summary.RunDate,
			Outcome:  outcomes[code],
			Holdings: saved[code],
		}
		if msg, ok := summary.Errors[code]; ok {
			entry.Message = &msg
		}
		entries = append(entries, entry)
	}

	// the run log is kept even when the caller has gone away
	recordCtx := context.WithoutCancel(ctx)
	if err := s.runLogRepository.Record(recordCtx, entries); err != nil {
		logger.WithError(err).Warn("Error recording ingestion run")
	}
}

// uniqueCodes drops repeated codes, keeping the first occurrence.
func uniqueCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	return out
}
