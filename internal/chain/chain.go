// Package chain loads an empirical option-chain table into an in-memory
// DuckDB database and resolves nearest-strike / nearest-delta lookups for
// the hybrid pricing engine.
package chain

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/skewlab/overlay-backtest/internal/logger"
	"github.com/skewlab/overlay-backtest/internal/pricing"
	"github.com/skewlab/overlay-backtest/internal/types"
	"github.com/skewlab/overlay-backtest/pkg/errors"
	"go.uber.org/zap"
)

// strikeTolerance is the maximum relative distance between the requested
// strike and the nearest chain strike before the lookup counts as a miss.
const strikeTolerance = 0.05

// Table is a read-only option-chain lookup backed by DuckDB. Construct it
// once, Initialize it with a CSV path, and share it across strategy runs;
// all queries are reads.
type Table struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// NewTable opens an in-memory DuckDB instance for the chain data.
func NewTable(log *logger.Logger) (*Table, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeChainUnavailable, "failed to open chain database", err)
	}

	return &Table{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize loads the chain CSV. Expected columns: date, option_type
// (call/put), strike, price, delta.
func (t *Table) Initialize(path string) error {
	t.log.Debug("Initializing option chain table", zap.String("path", path))

	if _, err := t.db.Exec(`DROP VIEW IF EXISTS option_chain;`); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing chain view", err)
	}

	// read_csv_auto infers column types; CREATE VIEW is raw SQL since
	// squirrel has no DDL support.
	query := fmt.Sprintf(`
		CREATE VIEW option_chain AS
		SELECT CAST(date AS DATE) AS date, option_type, strike, price, delta
		FROM read_csv_auto('%s');
	`, path)

	if _, err := t.db.Exec(query); err != nil {
		return errors.Wrap(errors.ErrCodeChainUnavailable, "failed to load option chain", err)
	}

	return nil
}

// Count returns the number of chain rows loaded.
func (t *Table) Count() (int, error) {
	var count int
	if err := t.db.QueryRow(`SELECT COUNT(*) FROM option_chain`).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count chain rows", err)
	}

	return count, nil
}

// NearestStrike implements pricing.ChainLookup. Returns None when the date
// has no records for the option type or the closest strike is farther than
// 5% from the target.
func (t *Table) NearestStrike(date time.Time, strike float64, optType types.OptionType) (optional.Option[pricing.ChainQuote], error) {
	// Ordering by an expression, so this stays raw SQL instead of squirrel.
	query := `
		SELECT strike, price, delta
		FROM option_chain
		WHERE date = ? AND option_type = ?
		ORDER BY abs(strike - ?) ASC
		LIMIT 1
	`

	var q pricing.ChainQuote

	err := t.db.QueryRow(query, date, string(optType), strike).Scan(&q.Strike, &q.Price, &q.Delta)
	if err == sql.ErrNoRows {
		return optional.None[pricing.ChainQuote](), nil
	}

	if err != nil {
		return optional.None[pricing.ChainQuote](), errors.Wrap(errors.ErrCodeChainLookupFail, "nearest strike query failed", err)
	}

	if strike <= 0 || math.Abs(q.Strike-strike)/strike > strikeTolerance {
		return optional.None[pricing.ChainQuote](), nil
	}

	return optional.Some(q), nil
}

// NearestDelta implements pricing.ChainLookup. When the target delta is
// negative but the chain stores magnitude-only deltas (no negative values
// for that date/type), matching falls back to absolute values.
func (t *Table) NearestDelta(date time.Time, targetDelta float64, optType types.OptionType) (optional.Option[pricing.ChainQuote], error) {
	rows, err := t.sq.
		Select("strike", "price", "delta").
		From("option_chain").
		Where(squirrel.Eq{"date": date, "option_type": string(optType)}).
		RunWith(t.db).
		Query()
	if err != nil {
		return optional.None[pricing.ChainQuote](), errors.Wrap(errors.ErrCodeChainLookupFail, "delta query failed", err)
	}
	defer rows.Close()

	var quotes []pricing.ChainQuote

	hasNegative := false

	for rows.Next() {
		var q pricing.ChainQuote
		if err := rows.Scan(&q.Strike, &q.Price, &q.Delta); err != nil {
			return optional.None[pricing.ChainQuote](), errors.Wrap(errors.ErrCodeChainLookupFail, "delta row scan failed", err)
		}

		if q.Delta < 0 {
			hasNegative = true
		}

		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return optional.None[pricing.ChainQuote](), errors.Wrap(errors.ErrCodeChainLookupFail, "delta row iteration failed", err)
	}

	if len(quotes) == 0 {
		return optional.None[pricing.ChainQuote](), nil
	}

	target := targetDelta
	if target < 0 && !hasNegative {
		target = math.Abs(target)
	}

	best := quotes[0]
	bestDist := math.Abs(quotes[0].Delta - target)

	for _, q := range quotes[1:] {
		if dist := math.Abs(q.Delta - target); dist < bestDist {
			best = q
			bestDist = dist
		}
	}

	return optional.Some(best), nil
}

// Close releases the underlying database.
func (t *Table) Close() error {
	return t.db.Close()
}
