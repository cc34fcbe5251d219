package repositories_test

import (
	"context"
	"database/sql"
	"testing"

	"tracker/src/database/dbtest"
	"tracker/src/models"
	"tracker/src/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holding(etf string, date models.Date, ticker, name, location string, weight, ytm string) models.Holding {
	h := models.Holding{
		ETFCode:    etf,
		DateOfPull: date,
		Ticker:     models.StringPtr(ticker),
		Name:       models.StringPtr(name),
		Location:   models.StringPtr(location),
	}
	if weight != "" {
		h.WeightPct = decimal.NewNullDecimal(decimal.RequireFromString(weight))
	}
	if ytm != "" {
		h.YTMPct = decimal.NewNullDecimal(decimal.RequireFromString(ytm))
	}
	return h
}

func newRepo(t *testing.T, db *sql.DB, driver string) repositories.HoldingRepository {
	repo := repositories.NewHoldingRepository(db, driver)
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func TestHoldingRepository(t *testing.T) {
	runHoldingRepositoryTests(t, dbtest.NewTestDB(t), "sqlite3")
}

func TestHoldingRepositoryPostgres(t *testing.T) {
	runHoldingRepositoryTests(t, dbtest.NewPostgresTestDB(t), "pgx")
}

func runHoldingRepositoryTests(t *testing.T, db *sql.DB, driver string) {
	ctx := context.Background()
	repo := newRepo(t, db, driver)
	day1 := models.NewDate(2025, 1, 1)
	day2 := models.NewDate(2025, 1, 2)

	batch := []models.Holding{
		holding("EMBI", day1, "MEX10Y", "MEXICO 10Y", "MEXICO", "3.2", "6.1"),
		holding("EMBI", day1, "MEX30Y", "MEXICO 30Y", "MEXICO", "1.0", ""),
		holding("EMBI", day1, "BRA10Y", "BRAZIL 10Y", "BRAZIL", "2.1", "7.0"),
	}

	t.Run("Initialize is idempotent", func(t *testing.T) {
		require.NoError(t, repo.Initialize(ctx))
		require.NoError(t, repo.Initialize(ctx))
	})

	t.Run("Append and Exists", func(t *testing.T) {
		exists, err := repo.Exists(ctx, "EMBI", day1)
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, repo.Append(ctx, batch))

		exists, err = repo.Exists(ctx, "EMBI", day1)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.Exists(ctx, "EMBI", day2)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Append of the same batch is rejected whole", func(t *testing.T) {
		before, err := repo.Count(ctx)
		require.NoError(t, err)

		err = repo.Append(ctx, batch)
		assert.ErrorIs(t, err, repositories.ErrAlreadyExists)

		// a partially colliding batch keeps nothing either
		mixed := []models.Holding{
			holding("EMBI", day1, "CHL10Y", "CHILE 10Y", "CHILE", "0.5", ""),
			batch[0],
		}
		err = repo.Append(ctx, mixed)
		assert.ErrorIs(t, err, repositories.ErrAlreadyExists)

		after, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Append of an empty batch is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.Append(ctx, nil))
	})

	require.NoError(t, repo.Append(ctx, []models.Holding{
		holding("EMBI", day2, "MEX10Y", "MEXICO 10Y", "MEXICO", "4.0", "6.3"),
		holding("CEMBI", day2, "PEMEX", "PETROLEOS MEXICANOS_2030", "MEXICO", "1.5", "8.0"),
	}))

	t.Run("GetByETFAndDate orders by weight", func(t *testing.T) {
		got, err := repo.GetByETFAndDate(ctx, "EMBI", day1)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "MEX10Y", models.StringOf(got[0].Ticker))
		assert.Equal(t, "BRA10Y", models.StringOf(got[1].Ticker))
		assert.Equal(t, "MEX30Y", models.StringOf(got[2].Ticker))
		assert.Equal(t, day1, got[0].DateOfPull)
		assert.True(t, got[0].WeightPct.Decimal.Equal(decimal.RequireFromString("3.2")))
		assert.False(t, got[2].YTMPct.Valid)
		assert.Nil(t, got[0].Sector)
		assert.False(t, got[0].CreatedAt.IsZero())
	})

	t.Run("LatestDate", func(t *testing.T) {
		latest, ok, err := repo.LatestDate(ctx, "EMBI")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, day2, latest)

		_, ok, err = repo.LatestDate(ctx, "NONE")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Search", func(t *testing.T) {
		all, err := repo.Search(ctx, repositories.HoldingFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 5)

		byTicker, err := repo.Search(ctx, repositories.HoldingFilter{Ticker: "MEX10Y"})
		require.NoError(t, err)
		require.Len(t, byTicker, 2)
		assert.Equal(t, day1, byTicker[0].DateOfPull)
		assert.Equal(t, day2, byTicker[1].DateOfPull)

		byName, err := repo.Search(ctx, repositories.HoldingFilter{Name: "MEXICO", ETFCode: "EMBI"})
		require.NoError(t, err)
		assert.Len(t, byName, 3)

		// wildcards in the name are literal
		literal, err := repo.Search(ctx, repositories.HoldingFilter{Name: "_2030"})
		require.NoError(t, err)
		assert.Len(t, literal, 1)
		none, err := repo.Search(ctx, repositories.HoldingFilter{Name: "%"})
		require.NoError(t, err)
		assert.Empty(t, none)

		injected, err := repo.Search(ctx, repositories.HoldingFilter{Ticker: "x' OR '1'='1"})
		require.NoError(t, err)
		assert.Empty(t, injected)
	})

	t.Run("ExposureByDate", func(t *testing.T) {
		points, err := repo.ExposureByDate(ctx, "EMBI", "MEXICO")
		require.NoError(t, err)
		require.Len(t, points, 2)

		assert.Equal(t, day1, points[0].DateOfPull)
		assert.InDelta(t, 4.2, points[0].TotalWeight.Decimal.InexactFloat64(), 1e-9)
		assert.Equal(t, 2, points[0].NumHoldings)
		assert.InDelta(t, 6.1, points[0].AvgYTM.Decimal.InexactFloat64(), 1e-9)

		assert.InDelta(t, 4.0, points[1].TotalWeight.Decimal.InexactFloat64(), 1e-9)
		assert.Equal(t, 1, points[1].NumHoldings)
	})

	t.Run("AvailableDates", func(t *testing.T) {
		scoped, err := repo.AvailableDates(ctx, "EMBI")
		require.NoError(t, err)
		require.Len(t, scoped, 2)
		assert.Equal(t, day2, scoped[0].DateOfPull)
		assert.Equal(t, 1, scoped[0].NumHoldings)
		assert.Equal(t, 3, scoped[1].NumHoldings)

		all, err := repo.AvailableDates(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "CEMBI", all[0].ETFCode)
		assert.Equal(t, "EMBI", all[1].ETFCode)
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, stats.TotalRecords)
		assert.Equal(t, day1, stats.FirstDate)
		assert.Equal(t, day2, stats.LastDate)
		require.Len(t, stats.ByETF, 2)
		assert.Equal(t, models.ETFStats{ETFCode: "EMBI", Records: 4, Dates: 2, FirstDate: day1, LastDate: day2}, stats.ByETF[1])
	})
}

func TestHoldingRepositoryEmpty(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, dbtest.NewTestDB(t), "sqlite3")

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRecords)
	assert.True(t, stats.FirstDate.IsZero())
	assert.Empty(t, stats.ByETF)

	got, err := repo.GetByETFAndDate(ctx, "EMBI", models.NewDate(2025, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, got)
}
