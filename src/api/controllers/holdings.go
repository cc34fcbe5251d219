package controllers

import (
	"context"
	"io"
	"time"

	"tracker/src/models"
	"tracker/src/registry"
	"tracker/src/repositories"
	"tracker/src/schemas"
	"tracker/src/services"
	"tracker/src/utils"
	"tracker/src/utils/render"

	"github.com/xuri/excelize/v2"
)

type HoldingsControllerI interface {
	ListETFs(ctx context.Context) []registry.Entry
	GetSnapshot(ctx context.Context, etfCode string, date *models.Date) (*schemas.Snapshot, error)
	GetTopHoldings(ctx context.Context, etfCode string, n int, date *models.Date) ([]schemas.TopHolding, error)
	GetExposure(ctx context.Context, etfCode, location string) ([]models.ExposurePoint, error)
	GetComparison(ctx context.Context, etfCode string, from, to models.Date) (*schemas.Comparison, error)
	GetTimeSeries(ctx context.Context, filter schemas.TimeSeriesFilter) ([]models.Holding, error)
	GetAvailableDates(ctx context.Context, etfCode string) ([]models.DateCount, error)
	GetStats(ctx context.Context) (*models.DatabaseStats, error)
	GetRuns(ctx context.Context, etfCode string, limit int) ([]models.RunLogEntry, error)

	GenerateSnapshotXLSX(ctx context.Context, etfCode string, date *models.Date) (*excelize.File, error)
	GenerateComparisonXLSX(ctx context.Context, etfCode string, from, to models.Date) (*excelize.File, error)

	RenderExposureChart(ctx context.Context, w io.Writer, etfCode, location string) error
	RenderAllocationChart(ctx context.Context, w io.Writer, etfCode string, date *models.Date) error
	RenderTimeSeriesChart(ctx context.Context, w io.Writer, filter schemas.TimeSeriesFilter) error
}

// statsTTL bounds how stale /api/stats may be; holdings only change once a day.
const statsTTL = time.Minute

type HoldingsController struct {
	Registry *registry.Registry
	Query    services.QueryServiceI
	Export   services.ExportServiceI
	RunLog   repositories.RunLogRepository

	statsCache *utils.Cache[*models.DatabaseStats]
}

func NewHoldingsController(reg *registry.Registry, query services.QueryServiceI, export services.ExportServiceI, runLog repositories.RunLogRepository) *HoldingsController {
	return &HoldingsController{
		Registry:   reg,
		Query:      query,
		Export:     export,
		RunLog:     runLog,
		statsCache: utils.NewCache[*models.DatabaseStats](statsTTL),
	}
}

func (c *HoldingsController) ListETFs(_ context.Context) []registry.Entry {
	return c.Registry.Entries()
}

// GetSnapshot returns the holdings on date, or on the latest pull when date is nil.
func (c *HoldingsController) GetSnapshot(ctx context.Context, etfCode string, date *models.Date) (*schemas.Snapshot, error) {
	if date == nil {
		return c.Query.LatestSnapshot(ctx, etfCode)
	}
	return c.Query.SnapshotAt(ctx, etfCode, *date)
}

func (c *HoldingsController) GetTopHoldings(ctx context.Context, etfCode string, n int, date *models.Date) ([]schemas.TopHolding, error) {
	return c.Query.TopN(ctx, etfCode, n, date)
}

func (c *HoldingsController) GetExposure(ctx context.Context, etfCode, location string) ([]models.ExposurePoint, error) {
	return c.Query.ExposureOverTime(ctx, etfCode, location)
}

func (c *HoldingsController) GetComparison(ctx context.Context, etfCode string, from, to models.Date) (*schemas.Comparison, error) {
	return c.Query.CompareDates(ctx, etfCode, from, to)
}

func (c *HoldingsController) GetTimeSeries(ctx context.Context, filter schemas.TimeSeriesFilter) ([]models.Holding, error) {
	return c.Query.TimeSeries(ctx, filter)
}

func (c *HoldingsController) GetAvailableDates(ctx context.Context, etfCode string) ([]models.DateCount, error) {
	return c.Query.AvailableDates(ctx, etfCode)
}

// GetStats scans the whole table, so the result is cached for statsTTL.
func (c *HoldingsController) GetStats(ctx context.Context) (*models.DatabaseStats, error) {
	if stats, ok := c.statsCache.Get(); ok {
		return stats, nil
	}
	stats, err := c.Query.DatabaseStats(ctx)
	if err != nil {
		return nil, err
	}
	c.statsCache.Set(stats)
	return stats, nil
}

// GetRuns returns the run log of etfCode newest first, or the entries of the last run when etfCode is empty.
func (c *HoldingsController) GetRuns(ctx context.Context, etfCode string, limit int) ([]models.RunLogEntry, error) {
	if etfCode == "" {
		return c.RunLog.GetLastRun(ctx)
	}
	return c.RunLog.GetByETF(ctx, etfCode, limit)
}

func (c *HoldingsController) GenerateSnapshotXLSX(ctx context.Context, etfCode string, date *models.Date) (*excelize.File, error) {
	snapshot, err := c.GetSnapshot(ctx, etfCode, date)
	if err != nil {
		return nil, err
	}
	return c.Export.SnapshotXLSX(snapshot)
}

func (c *HoldingsController) GenerateComparisonXLSX(ctx context.Context, etfCode string, from, to models.Date) (*excelize.File, error) {
	comparison, err := c.GetComparison(ctx, etfCode, from, to)
	if err != nil {
		return nil, err
	}
	return c.Export.ComparisonXLSX(comparison)
}

func (c *HoldingsController) RenderExposureChart(ctx context.Context, w io.Writer, etfCode, location string) error {
	points, err := c.GetExposure(ctx, etfCode, location)
	if err != nil {
		return err
	}
	return render.ExposureLineChart(w, etfCode+" "+location, points)
}

func (c *HoldingsController) RenderAllocationChart(ctx context.Context, w io.Writer, etfCode string, date *models.Date) error {
	snapshot, err := c.GetSnapshot(ctx, etfCode, date)
	if err != nil {
		return err
	}
	return render.LocationPie(w, etfCode+" "+snapshot.DateOfPull.String(), snapshot.Holdings)
}

func (c *HoldingsController) RenderTimeSeriesChart(ctx context.Context, w io.Writer, filter schemas.TimeSeriesFilter) error {
	holdings, err := c.GetTimeSeries(ctx, filter)
	if err != nil {
		return err
	}
	return render.WeightLineChart(w, "Weight over time", holdings)
}
