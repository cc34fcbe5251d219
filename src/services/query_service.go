package services

import (
	"context"
	"sort"

	"tracker/src/models"
	"tracker/src/repositories"
	"tracker/src/schemas"

	"github.com/shopspring/decimal"
)

type QueryServiceI interface {
	LatestSnapshot(ctx context.Context, etfCode string) (*schemas.Snapshot, error)
	SnapshotAt(ctx context.Context, etfCode string, date models.Date) (*schemas.Snapshot, error)
	TopN(ctx context.Context, etfCode string, n int, date *models.Date) ([]schemas.TopHolding, error)
	TimeSeries(ctx context.Context, filter schemas.TimeSeriesFilter) ([]models.Holding, error)
	ExposureOverTime(ctx context.Context, etfCode, location string) ([]models.ExposurePoint, error)
	AvailableDates(ctx context.Context, etfCode string) ([]models.DateCount, error)
	CompareDates(ctx context.Context, etfCode string, date1, date2 models.Date) (*schemas.Comparison, error)
	DatabaseStats(ctx context.Context) (*models.DatabaseStats, error)
}

// QueryService answers read-only questions over stored holdings. Missing data is returned as empty results.
type QueryService struct {
	holdingRepository repositories.HoldingRepository
}

func NewQueryService(holdingRepository repositories.HoldingRepository) *QueryService {
	return &QueryService{holdingRepository: holdingRepository}
}

// LatestSnapshot returns the holdings of the most recent pull of etfCode. An ETF with no data has an empty snapshot
// with a zero date.
func (s *QueryService) LatestSnapshot(ctx context.Context, etfCode string) (*schemas.Snapshot, error) {
	latest, ok, err := s.holdingRepository.LatestDate(ctx, etfCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &schemas.Snapshot{ETFCode: etfCode, Holdings: []models.Holding{}}, nil
	}
	return s.SnapshotAt(ctx, etfCode, latest)
}

func (s *QueryService) SnapshotAt(ctx context.Context, etfCode string, date models.Date) (*schemas.Snapshot, error) {
	holdings, err := s.holdingRepository.GetByETFAndDate(ctx, etfCode, date)
	if err != nil {
		return nil, err
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}
	return &schemas.Snapshot{ETFCode: etfCode, DateOfPull: date, Holdings: holdings}, nil
}

// TopN returns the n heaviest holdings on date, or on the latest pull when date is nil.
func (s *QueryService) TopN(ctx context.Context, etfCode string, n int, date *models.Date) ([]schemas.TopHolding, error) {
	top := []schemas.TopHolding{}
	if n <= 0 {
		return top, nil
	}

	var snapshot *schemas.Snapshot
	var err error
	if date == nil {
		snapshot, err = s.LatestSnapshot(ctx, etfCode)
	} else {
		snapshot, err = s.SnapshotAt(ctx, etfCode, *date)
	}
	if err != nil {
		return nil, err
	}

	for i, h := range snapshot.Holdings {
		if i == n {
			break
		}
		top = append(top, schemas.NewTopHolding(h))
	}
	return top, nil
}

func (s *QueryService) TimeSeries(ctx context.Context, filter schemas.TimeSeriesFilter) ([]models.Holding, error) {
	holdings, err := s.holdingRepository.Search(ctx, repositories.HoldingFilter{
		Ticker:  filter.Ticker,
		Name:    filter.Name,
		ETFCode: filter.ETFCode,
	})
	if err != nil {
		return nil, err
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}
	return holdings, nil
}

func (s *QueryService) ExposureOverTime(ctx context.Context, etfCode, location string) ([]models.ExposurePoint, error) {
	points, err := s.holdingRepository.ExposureByDate(ctx, etfCode, location)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []models.ExposurePoint{}
	}
	return points, nil
}

// AvailableDates lists pull dates newest first. An empty etfCode lists every ETF's dates.
func (s *QueryService) AvailableDates(ctx context.Context, etfCode string) ([]models.DateCount, error) {
	dates, err := s.holdingRepository.AvailableDates(ctx, etfCode)
	if err != nil {
		return nil, err
	}
	if dates == nil {
		dates = []models.DateCount{}
	}
	return dates, nil
}

func (s *QueryService) DatabaseStats(ctx context.Context) (*models.DatabaseStats, error) {
	stats, err := s.holdingRepository.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if stats.ByETF == nil {
		stats.ByETF = []models.ETFStats{}
	}
	return stats, nil
}

// CompareDates diffs the snapshots of etfCode on date1 (old) and date2 (new).
func (s *QueryService) CompareDates(ctx context.Context, etfCode string, date1, date2 models.Date) (*schemas.Comparison, error) {
	older, err := s.holdingRepository.GetByETFAndDate(ctx, etfCode, date1)
	if err != nil {
		return nil, err
	}
	newer, err := s.holdingRepository.GetByETFAndDate(ctx, etfCode, date2)
	if err != nil {
		return nil, err
	}

	rows := CompareHoldings(older, newer)
	return &schemas.Comparison{
		ETFCode: etfCode,
		Date1:   date1,
		Date2:   date2,
		Rows:    rows,
		Summary: Summarize(rows),
	}, nil
}

// instrumentKey identifies a holding across dates. Null ticker or name only matches null.
type instrumentKey struct {
	ticker, name       string
	hasTicker, hasName bool
}

func keyOf(h *models.Holding) instrumentKey {
	return instrumentKey{
		ticker:    models.StringOf(h.Ticker),
		name:      models.StringOf(h.Name),
		hasTicker: h.Ticker != nil,
		hasName:   h.Name != nil,
	}
}

// CompareHoldings full-outer-joins older and newer on (ticker, name). A missing weight counts as zero in the
// weight change; the ytm change is null unless both yields are known. Rows are ordered by the absolute weight
// change, largest first, and otherwise keep the order of older followed by the additions of newer.
func CompareHoldings(older, newer []models.Holding) []schemas.ComparisonRow {
	index := map[instrumentKey][]int{}
	for i := range newer {
		k := keyOf(&newer[i])
		index[k] = append(index[k], i)
	}

	rows := make([]schemas.ComparisonRow, 0, len(older)+len(newer))
	matched := make([]bool, len(newer))
	for i := range older {
		old := &older[i]
		hits := index[keyOf(old)]
		if len(hits) == 0 {
			rows = append(rows, compareRow(old, nil))
			continue
		}
		for _, j := range hits {
			matched[j] = true
			rows = append(rows, compareRow(old, &newer[j]))
		}
	}
	for j := range newer {
		if !matched[j] {
			rows = append(rows, compareRow(nil, &newer[j]))
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].WeightChange.Abs().GreaterThan(rows[b].WeightChange.Abs())
	})
	return rows
}

func compareRow(old, cur *models.Holding) schemas.ComparisonRow {
	var row schemas.ComparisonRow
	switch {
	case old != nil && cur != nil:
		row.Kind = schemas.Both
	case old != nil:
		row.Kind = schemas.OnlyOld
	default:
		row.Kind = schemas.OnlyNew
	}

	if old != nil {
		row.Ticker, row.Name, row.Location = old.Ticker, old.Name, old.Location
		row.WeightOld, row.YTMOld = old.WeightPct, old.YTMPct
	}
	if cur != nil {
		row.Ticker, row.Name = cur.Ticker, cur.Name
		if cur.Location != nil {
			row.Location = cur.Location
		}
		row.WeightNew, row.YTMNew = cur.WeightPct, cur.YTMPct
	}

	row.WeightChange = orZero(row.WeightNew).Sub(orZero(row.WeightOld))
	if row.YTMOld.Valid && row.YTMNew.Valid {
		row.YTMChange = decimal.NewNullDecimal(row.YTMNew.Decimal.Sub(row.YTMOld.Decimal))
	}
	return row
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// Summarize counts rows without an old weight as new, rows without a new weight as removed and rows with a
// nonzero weight change as changed.
func Summarize(rows []schemas.ComparisonRow) schemas.ComparisonSummary {
	var summary schemas.ComparisonSummary
	for _, r := range rows {
		if !r.WeightOld.Valid {
			summary.NewPositions++
		}
		if !r.WeightNew.Valid {
			summary.RemovedPositions++
		}
		if !r.WeightChange.IsZero() {
			summary.ChangedPositions++
		}
	}
	return summary
}
