// Package datasource loads the daily market series the backtest consumes.
// The CSV is staged through DuckDB so type inference, date parsing and
// ordering happen in SQL; realized-vol derivation happens in Go.
package datasource

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/skewlab/overlay-backtest/internal/logger"
	"github.com/skewlab/overlay-backtest/internal/types"
	"github.com/skewlab/overlay-backtest/pkg/errors"
	"go.uber.org/zap"
)

// rvWindow is the trailing window for the realized-vol estimate, matching
// the 30-day convention of the vol-gap signal.
const rvWindow = 30

// Source loads daily rows (date, price, r, sigma) from a CSV file.
type Source struct {
	db  *sql.DB
	log *logger.Logger
}

// NewSource opens an in-memory DuckDB staging database.
func NewSource(log *logger.Logger) (*Source, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to open staging database", err)
	}

	return &Source{db: db, log: log}, nil
}

// LoadSeries reads the market CSV, derives realized vol and the vol gap,
// drops the warm-up rows that lack a realized-vol estimate, and validates
// the series invariants. Data errors are fatal to the run.
//
// Expected columns: date, price, r (annualized decimal), sigma (decimal).
func (s *Source) LoadSeries(path string) ([]types.MarketData, error) {
	s.log.Debug("Loading market data", zap.String("path", path))

	if _, err := s.db.Exec(`DROP VIEW IF EXISTS market_raw;`); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop staging view", err)
	}

	query := fmt.Sprintf(`
		CREATE VIEW market_raw AS
		SELECT CAST(date AS DATE) AS date, price, r, sigma
		FROM read_csv_auto('%s');
	`, path)

	if _, err := s.db.Exec(query); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMissingColumn,
			"failed to stage market data (check date/price/r/sigma columns)", err)
	}

	rows, err := s.db.Query(`SELECT date, price, r, sigma FROM market_raw ORDER BY date ASC`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read market data", err)
	}
	defer rows.Close()

	var raw []types.MarketData

	for rows.Next() {
		var (
			date               time.Time
			price, rate, sigma float64
		)

		if err := rows.Scan(&date, &price, &rate, &sigma); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan market row", err)
		}

		raw = append(raw, types.MarketData{
			Date:  date,
			Spot:  price,
			Rate:  rate,
			Sigma: sigma,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "market row iteration failed", err)
	}

	if err := types.ValidateSeries(raw); err != nil {
		return nil, err
	}

	series := DeriveVolGap(raw)
	if len(series) == 0 {
		return nil, errors.Newf(errors.ErrCodeInsufficientData,
			"series too short for %d-day realized vol: %d rows", rvWindow, len(raw))
	}

	s.log.Info("Market data loaded",
		zap.Int("rows", len(series)),
		zap.Time("first", series[0].Date),
		zap.Time("last", series[len(series)-1].Date),
	)

	return series, nil
}

// Close releases the staging database.
func (s *Source) Close() error {
	return s.db.Close()
}

// DeriveVolGap computes log returns, the trailing 30-day annualized realized
// vol and the implied-minus-realized gap, then drops the leading rows that
// have no realized-vol estimate yet (the dropna step).
func DeriveVolGap(raw []types.MarketData) []types.MarketData {
	if len(raw) <= rvWindow {
		return nil
	}

	logReturns := make([]float64, len(raw))
	for i := 1; i < len(raw); i++ {
		logReturns[i] = math.Log(raw[i].Spot / raw[i-1].Spot)
	}

	out := make([]types.MarketData, 0, len(raw)-rvWindow)

	for i := rvWindow; i < len(raw); i++ {
		// Trailing window of the last rvWindow log returns, ending at i.
		window := logReturns[i-rvWindow+1 : i+1]
		rv := sampleStd(window) * math.Sqrt(daysPerYear)

		row := raw[i]
		row.RealizedVol = rv
		row.VolGap = row.Sigma - rv
		out = append(out, row)
	}

	return out
}

const daysPerYear = 365.0

func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}

	variance /= float64(len(values) - 1)

	return math.Sqrt(variance)
}
