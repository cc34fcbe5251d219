package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tracker/migrations"
	"tracker/src/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// ErrAlreadyExists is returned by Append when the batch collides with stored rows. Nothing from the batch is kept.
var ErrAlreadyExists = errors.New("holdings already exist for this date")

// HoldingFilter selects holdings for a time series. Empty fields are not applied; Name matches as a substring.
type HoldingFilter struct {
	Ticker  string
	Name    string
	ETFCode string
}

type HoldingRepository interface {
	Initialize(ctx context.Context) error
	Exists(ctx context.Context, etfCode string, date models.Date) (bool, error)
	Append(ctx context.Context, holdings []models.Holding) error
	Count(ctx context.Context) (int, error)
	LatestDate(ctx context.Context, etfCode string) (models.Date, bool, error)
	GetByETFAndDate(ctx context.Context, etfCode string, date models.Date) ([]models.Holding, error)
	Search(ctx context.Context, filter HoldingFilter) ([]models.Holding, error)
	ExposureByDate(ctx context.Context, etfCode, location string) ([]models.ExposurePoint, error)
	AvailableDates(ctx context.Context, etfCode string) ([]models.DateCount, error)
	Stats(ctx context.Context) (*models.DatabaseStats, error)
}

type holdingRepo struct {
	db     *sql.DB
	driver string
}

// NewHoldingRepository returns a store over db. driver is the database/sql driver name db was opened with.
func NewHoldingRepository(db *sql.DB, driver string) HoldingRepository {
	return &holdingRepo{db: db, driver: driver}
}

const selectHolding = `SELECT id, etf_code, date_of_pull, ticker, name, location, sector, maturity,
		weight_pct, ytm_pct, market_value, notional_value, shares, price, created_at
	FROM holdings`

func (r *holdingRepo) Initialize(ctx context.Context) error {
	return migrations.Up(ctx, r.db, r.driver)
}

func (r *holdingRepo) Exists(ctx context.Context, etfCode string, date models.Date) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, rebind(r.driver, `
		SELECT COUNT(*) FROM holdings
		WHERE etf_code = ? AND date_of_pull = ?`),
		etfCode, date.String()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *holdingRepo) Append(ctx context.Context, holdings []models.Holding) (err error) {
	if len(holdings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(models.HoldingColumns)), ", ")
	query := fmt.Sprintf("INSERT INTO holdings (%s) VALUES (%s)", strings.Join(models.HoldingColumns, ", "), placeholders)

	stmt, err := tx.PrepareContext(ctx, rebind(r.driver, query))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range holdings {
		if _, err = stmt.ExecContext(ctx, insertArgs(&holdings[i])...); err != nil {
			if isUniqueViolation(err) {
				err = fmt.Errorf("%w: %s on %s", ErrAlreadyExists, holdings[i].ETFCode, holdings[i].DateOfPull)
			}
			return err
		}
	}
	return tx.Commit()
}

func (r *holdingRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM holdings`).Scan(&count)
	return count, err
}

func (r *holdingRepo) LatestDate(ctx context.Context, etfCode string) (models.Date, bool, error) {
	var latest models.Date
	err := r.db.QueryRowContext(ctx, rebind(r.driver, `
		SELECT MAX(date_of_pull) FROM holdings WHERE etf_code = ?`),
		etfCode).Scan(&latest)
	if err != nil {
		return models.Date{}, false, err
	}
	return latest, !latest.IsZero(), nil
}

func (r *holdingRepo) GetByETFAndDate(ctx context.Context, etfCode string, date models.Date) ([]models.Holding, error) {
	return r.queryHoldings(ctx, selectHolding+`
		WHERE etf_code = ? AND date_of_pull = ?
		ORDER BY weight_pct DESC NULLS LAST, id`,
		etfCode, date.String())
}

func (r *holdingRepo) Search(ctx context.Context, filter HoldingFilter) ([]models.Holding, error) {
	var clauses []string
	var args []interface{}
	if filter.Ticker != "" {
		clauses = append(clauses, "ticker = ?")
		args = append(args, filter.Ticker)
	}
	if filter.Name != "" {
		clauses = append(clauses, `name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(filter.Name)+"%")
	}
	if filter.ETFCode != "" {
		clauses = append(clauses, "etf_code = ?")
		args = append(args, filter.ETFCode)
	}
	where := "1=1"
	if len(clauses) > 0 {
		where = strings.Join(clauses, " AND ")
	}
	return r.queryHoldings(ctx, selectHolding+`
		WHERE `+where+`
		ORDER BY date_of_pull, etf_code, id`,
		args...)
}

func (r *holdingRepo) ExposureByDate(ctx context.Context, etfCode, location string) ([]models.ExposurePoint, error) {
	rows, err := r.db.QueryContext(ctx, rebind(r.driver, `
		SELECT date_of_pull, SUM(weight_pct), COUNT(*), AVG(ytm_pct)
		FROM holdings
		WHERE etf_code = ? AND location = ?
		GROUP BY date_of_pull
		ORDER BY date_of_pull`),
		etfCode, location)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.ExposurePoint
	for rows.Next() {
		var p models.ExposurePoint
		if err := rows.Scan(&p.DateOfPull, &p.TotalWeight, &p.NumHoldings, &p.AvgYTM); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *holdingRepo) AvailableDates(ctx context.Context, etfCode string) ([]models.DateCount, error) {
	var rows *sql.Rows
	var err error
	if etfCode != "" {
		rows, err = r.db.QueryContext(ctx, rebind(r.driver, `
			SELECT date_of_pull, etf_code, COUNT(*)
			FROM holdings
			WHERE etf_code = ?
			GROUP BY date_of_pull, etf_code
			ORDER BY date_of_pull DESC`),
			etfCode)
	} else {
		rows, err = r.db.QueryContext(ctx, `
			SELECT date_of_pull, etf_code, COUNT(*)
			FROM holdings
			GROUP BY date_of_pull, etf_code
			ORDER BY date_of_pull DESC, etf_code`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []models.DateCount
	for rows.Next() {
		var d models.DateCount
		if err := rows.Scan(&d.DateOfPull, &d.ETFCode, &d.NumHoldings); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *holdingRepo) Stats(ctx context.Context) (*models.DatabaseStats, error) {
	stats := &models.DatabaseStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(date_of_pull), MAX(date_of_pull) FROM holdings`).
		Scan(&stats.TotalRecords, &stats.FirstDate, &stats.LastDate)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT etf_code, COUNT(*), COUNT(DISTINCT date_of_pull), MIN(date_of_pull), MAX(date_of_pull)
		FROM holdings
		GROUP BY etf_code
		ORDER BY etf_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s models.ETFStats
		if err := rows.Scan(&s.ETFCode, &s.Records, &s.Dates, &s.FirstDate, &s.LastDate); err != nil {
			return nil, err
		}
		stats.ByETF = append(stats.ByETF, s)
	}
	return stats, rows.Err()
}

func (r *holdingRepo) queryHoldings(ctx context.Context, query string, args ...interface{}) ([]models.Holding, error) {
	rows, err := r.db.QueryContext(ctx, rebind(r.driver, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(h.ScanTargets()...); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// rebind turns ? placeholders into $n for the postgres driver.
func rebind(driver, query string) string {
	if driver != "pgx" && driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func insertArgs(h *models.Holding) []interface{} {
	return []interface{}{
		h.ETFCode, h.DateOfPull.String(), h.Ticker, h.Name, h.Location, h.Sector, h.Maturity,
		numericArg(h.WeightPct), numericArg(h.YTMPct), numericArg(h.MarketValue),
		numericArg(h.NotionalValue), numericArg(h.Shares), numericArg(h.Price),
	}
}

// numericArg binds decimals as float64 since the columns are REAL / DOUBLE PRECISION on both backends.
func numericArg(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
