package services_test

import (
	"context"
	"errors"
	"testing"

	"tracker/src/database/dbtest"
	"tracker/src/models"
	"tracker/src/repositories"
	"tracker/src/services"
	"tracker/src/utils"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ingestionFixture struct {
	client  *fakeFeedClient
	repo    repositories.HoldingRepository
	runLog  repositories.RunLogRepository
	service *services.IngestionService
}

func newIngestionFixture(t *testing.T, codes ...string) *ingestionFixture {
	db := dbtest.NewTestDB(t)
	repo := repositories.NewHoldingRepository(db, "sqlite3")
	runLog := repositories.NewRunLogRepository(db, "sqlite3")
	client := newFakeFeedClient()
	clock := fixedClock(2025, 1, 1)
	normalizer := services.NewNormalizerService(client, clock)
	return &ingestionFixture{
		client:  client,
		repo:    repo,
		runLog:  runLog,
		service: services.NewIngestionService(testRegistry(codes...), normalizer, repo, runLog, clock),
	}
}

// failingAppendRepo rejects Append for one ETF and delegates everything else.
type failingAppendRepo struct {
	repositories.HoldingRepository
	etfCode string
	err     error
}

func (r *failingAppendRepo) Append(ctx context.Context, holdings []models.Holding) error {
	if len(holdings) > 0 && holdings[0].ETFCode == r.etfCode {
		return r.err
	}
	return r.HoldingRepository.Append(ctx, holdings)
}

func testContext() context.Context {
	return utils.WithLogger(context.Background(), utils.NewSilentLogger())
}

func assertDisjoint(t *testing.T, lists ...[]string) {
	t.Helper()
	seen := map[string]bool{}
	for _, list := range lists {
		for _, code := range list {
			assert.False(t, seen[code], "code %s appears in more than one outcome", code)
			seen[code] = true
		}
	}
}

func TestIngestionService_Run(t *testing.T) {
	ctx := testContext()

	t.Run("second run on the same day skips", func(t *testing.T) {
		f := newIngestionFixture(t, "EMBI")
		f.client.set("EMBI", buildFeed(
			feedRow{Ticker: "MEX10Y", Name: "MEXICO", Location: "Mexico", Weight: "3.2", YTM: "6.1", Price: "98"},
			feedRow{Ticker: "BRA10Y", Name: "BRAZIL", Location: "Brazil", Weight: "2.1", YTM: "7.0", Price: "101"},
		))

		first := f.service.Run(ctx, []string{"EMBI"})
		assert.Equal(t, []string{"EMBI"}, first.Succeeded)
		assert.Empty(t, first.Skipped)
		assert.Empty(t, first.Failed)
		assert.Equal(t, models.NewDate(2025, 1, 1), first.RunDate)
		assert.NotEmpty(t, first.RunID)

		count, err := f.repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		second := f.service.Run(ctx, []string{"EMBI"})
		assert.Equal(t, []string{"EMBI"}, second.Skipped)
		assert.Empty(t, second.Succeeded)
		assert.NotEqual(t, first.RunID, second.RunID)
		assert.Equal(t, 1, f.client.callsFor("EMBI"), "the feed is not fetched for a stored date")

		after, err := f.repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, count, after)
	})

	t.Run("nil codes run the registry in order", func(t *testing.T) {
		f := newIngestionFixture(t, "CEMBI", "EMBI")
		f.client.set("CEMBI", buildFeed(feedRow{Ticker: "A", Name: "A CORP", Location: "Chile", Weight: "1.0", YTM: "5", Price: "99"}))
		f.client.set("EMBI", buildFeed(feedRow{Ticker: "B", Name: "B GOVT", Location: "Peru", Weight: "2.0", YTM: "6", Price: "97"}))

		summary := f.service.Run(ctx, nil)
		assert.Equal(t, []string{"CEMBI", "EMBI"}, summary.Succeeded)
		assert.Equal(t, 2, summary.Total())
	})

	t.Run("failures are isolated per code", func(t *testing.T) {
		f := newIngestionFixture(t, "EMBI", "GBI", "EMHY")
		f.client.set("EMBI", buildFeed(feedRow{Ticker: "MEX10Y", Name: "MEXICO", Location: "Mexico", Weight: "3.2", YTM: "6.1", Price: "98"}))
		f.client.fail("GBI", errors.New("503 service unavailable"))
		f.client.set("EMHY", buildFeed(feedRow{Ticker: "CASH", Name: "CASH", Location: "US", Weight: "0", YTM: "0", Price: "1"}))

		summary := f.service.Run(ctx, []string{"EMBI", "GBI", "NOPE", "EMHY"})
		assert.Equal(t, []string{"EMBI"}, summary.Succeeded)
		assert.Equal(t, []string{"GBI", "NOPE", "EMHY"}, summary.Failed)
		assert.Empty(t, summary.Skipped)
		assert.Contains(t, summary.Errors["GBI"], "503")
		assert.Contains(t, summary.Errors["NOPE"], services.ErrUnknownETF.Error())
		assert.Contains(t, summary.Errors["EMHY"], services.ErrNoData.Error())
		assert.NotContains(t, summary.Errors, "EMBI")
		assertDisjoint(t, summary.Succeeded, summary.Skipped, summary.Failed)
		assert.Zero(t, f.client.callsFor("NOPE"))
	})

	t.Run("repeated codes are processed once", func(t *testing.T) {
		f := newIngestionFixture(t, "EMBI")
		f.client.set("EMBI", buildFeed(feedRow{Ticker: "MEX10Y", Name: "MEXICO", Location: "Mexico", Weight: "3.2", YTM: "6.1", Price: "98"}))

		summary := f.service.Run(ctx, []string{"EMBI", "EMBI"})
		assert.Equal(t, []string{"EMBI"}, summary.Succeeded)
		assert.Empty(t, summary.Skipped)
		assert.Equal(t, 1, summary.Total())
	})

	t.Run("outcomes are written to the run log", func(t *testing.T) {
		f := newIngestionFixture(t, "EMBI", "GBI")
		f.client.set("EMBI", buildFeed(
			feedRow{Ticker: "MEX10Y", Name: "MEXICO", Location: "Mexico", Weight: "3.2", YTM: "6.1", Price: "98"},
			feedRow{Ticker: "BRA10Y", Name: "BRAZIL", Location: "Brazil", Weight: "2.1", YTM: "7.0", Price: "101"},
		))
		f.client.fail("GBI", errors.New("timeout"))

		summary := f.service.Run(ctx, nil)
		entries, err := f.runLog.GetLastRun(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, summary.RunID, entries[0].RunID)
		assert.Equal(t, "EMBI", entries[0].ETFCode)
		assert.Equal(t, services.OutcomeSucceeded, entries[0].Outcome)
		assert.Equal(t, 2, entries[0].Holdings)
		assert.Nil(t, entries[0].Message)

		assert.Equal(t, "GBI", entries[1].ETFCode)
		assert.Equal(t, services.OutcomeFailed, entries[1].Outcome)
		require.NotNil(t, entries[1].Message)
		assert.Contains(t, *entries[1].Message, "timeout")
	})

	t.Run("outcomes are counted", func(t *testing.T) {
		f := newIngestionFixture(t, "EMBI")
		f.client.set("EMBI", buildFeed(
			feedRow{Ticker: "MEX10Y", Name: "MEXICO", Location: "Mexico", Weight: "3.2", YTM: "6.1", Price: "98"},
			feedRow{Ticker: "BRA10Y", Name: "BRAZIL", Location: "Brazil", Weight: "2.1", YTM: "7.0", Price: "101"},
		))
		succeeded := testutil.ToFloat64(services.IngestOutcomes(services.OutcomeSucceeded))
		saved := testutil.ToFloat64(services.HoldingsSaved())

		f.service.Run(ctx, []string{"EMBI"})
		assert.Equal(t, succeeded+1, testutil.ToFloat64(services.IngestOutcomes(services.OutcomeSucceeded)))
		assert.Equal(t, saved+2, testutil.ToFloat64(services.HoldingsSaved()))
	})

	t.Run("append rejected as duplicate is skipped", func(t *testing.T) {
		f := newIngestionFixture(t, "EMBI")
		f.client.set("EMBI", buildFeed(
			feedRow{Ticker: "MEX10Y", Name: "MEXICO", Location: "Mexico", Weight: "3.2", YTM: "6.1", Price: "98"},
			feedRow{Ticker: "MEX10Y", Name: "MEXICO", Location: "Mexico", Weight: "1.0", YTM: "6.0", Price: "97"},
		))

		summary := f.service.Run(ctx, []string{"EMBI"})
		assert.Equal(t, []string{"EMBI"}, summary.Skipped)
		assert.Empty(t, summary.Succeeded)
		assert.Empty(t, summary.Failed)

		count, err := f.repo.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count, "a rejected batch leaves the store unchanged")
	})

	t.Run("append error fails the code and later codes still run", func(t *testing.T) {
		f := newIngestionFixture(t, "EMBI", "GBI")
		row := feedRow{Ticker: "MEX10Y", Name: "MEXICO", Location: "Mexico", Weight: "3.2", YTM: "6.1", Price: "98"}
		f.client.set("EMBI", buildFeed(row))
		f.client.set("GBI", buildFeed(row))

		repo := &failingAppendRepo{HoldingRepository: f.repo, etfCode: "EMBI", err: errors.New("disk full")}
		normalizer := services.NewNormalizerService(f.client, fixedClock(2025, 1, 1))
		service := services.NewIngestionService(testRegistry("EMBI", "GBI"), normalizer, repo, nil, fixedClock(2025, 1, 1))

		summary := service.Run(ctx, nil)
		assert.Equal(t, []string{"EMBI"}, summary.Failed)
		assert.Contains(t, summary.Errors["EMBI"], "disk full")
		assert.Equal(t, []string{"GBI"}, summary.Succeeded)
		assert.Empty(t, summary.Skipped)

		count, err := f.repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("store initialization failure fails every code", func(t *testing.T) {
		db := dbtest.NewTestDB(t)
		require.NoError(t, db.Close())
		client := newFakeFeedClient()
		clock := fixedClock(2025, 1, 1)
		service := services.NewIngestionService(testRegistry("EMBI", "GBI"),
			services.NewNormalizerService(client, clock), repositories.NewHoldingRepository(db, "sqlite3"), nil, clock)

		summary := service.Run(ctx, nil)
		assert.Equal(t, []string{"EMBI", "GBI"}, summary.Failed)
		assert.Empty(t, summary.Succeeded)
		assert.Zero(t, client.callsFor("EMBI"))
	})

	t.Run("cancelled context fails remaining codes", func(t *testing.T) {
		f := newIngestionFixture(t, "EMBI")
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		summary := f.service.Run(cancelled, nil)
		assert.Equal(t, []string{"EMBI"}, summary.Failed)
	})
}
