package backtest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/skewlab/overlay-backtest/internal/logger"
	"github.com/skewlab/overlay-backtest/internal/types"
	"github.com/skewlab/overlay-backtest/pkg/errors"
	"go.uber.org/zap"
)

// BacktestState records every option trade and daily equity mark of a batch
// run in an in-memory DuckDB database, and exports them as CSV tables.
type BacktestState struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

func NewBacktestState(log *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to open state database", err)
	}

	return &BacktestState{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the trade and equity tables.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS option_trades (
			trade_id TEXT PRIMARY KEY,
			strategy_name TEXT,
			trade_date TIMESTAMP,
			option_type TEXT,
			side TEXT,
			strike DOUBLE,
			tenor_days INTEGER,
			size DOUBLE,
			entry_premium DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create option_trades table", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity_marks (
			strategy_name TEXT,
			mark_date TIMESTAMP,
			equity DOUBLE,
			spot DOUBLE,
			vol_gap DOUBLE,
			regime TEXT,
			cash DOUBLE,
			holdings DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create equity_marks table", err)
	}

	return nil
}

// RecordTrade logs one opened option position.
func (b *BacktestState) RecordTrade(strategyName string, row types.MarketData, pos types.Position) error {
	query := b.sq.
		Insert("option_trades").
		Columns("trade_id", "strategy_name", "trade_date", "option_type", "side",
			"strike", "tenor_days", "size", "entry_premium").
		Values(uuid.New().String(), strategyName, row.Date, string(pos.OptionType), string(pos.Side),
			pos.Strike, pos.DaysRemaining, pos.Size, pos.EntryPremium)

	if _, err := query.RunWith(b.db).Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to record trade", err)
	}

	return nil
}

// RecordEquityHistory bulk-inserts a strategy's full equity history after its
// run completes.
func (b *BacktestState) RecordEquityHistory(strategyName string, history []types.EquityPoint) error {
	tx, err := b.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	for _, point := range history {
		query := b.sq.
			Insert("equity_marks").
			Columns("strategy_name", "mark_date", "equity", "spot", "vol_gap", "regime", "cash", "holdings").
			Values(strategyName, point.Date, point.Equity, point.Spot, point.VolGap,
				string(point.Regime), point.Cash, point.Holdings)

		if _, err := query.RunWith(tx).Exec(); err != nil {
			_ = tx.Rollback()

			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert equity mark", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit equity history", err)
	}

	return nil
}

// TradeCount returns the number of recorded trades for one strategy.
func (b *BacktestState) TradeCount(strategyName string) (int, error) {
	var count int

	err := b.sq.
		Select("COUNT(*)").
		From("option_trades").
		Where(squirrel.Eq{"strategy_name": strategyName}).
		RunWith(b.db).
		QueryRow().
		Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count trades", err)
	}

	return count, nil
}

// Write exports both tables as CSV into the results folder.
func (b *BacktestState) Write(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestNoResultsDir, "failed to create results folder", err)
	}

	tradesPath := filepath.Join(path, "option_trades.csv")

	// Squirrel doesn't support COPY, use raw SQL.
	if _, err := b.db.Exec(fmt.Sprintf(`COPY option_trades TO '%s' (FORMAT CSV, HEADER)`, tradesPath)); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to export trades", err)
	}

	equityPath := filepath.Join(path, "equity_marks.csv")
	if _, err := b.db.Exec(fmt.Sprintf(`COPY equity_marks TO '%s' (FORMAT CSV, HEADER)`, equityPath)); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to export equity marks", err)
	}

	b.log.Info("backtest state exported",
		zap.String("trades", tradesPath),
		zap.String("equity", equityPath),
	)

	return nil
}

// Close releases the database.
func (b *BacktestState) Close() error {
	return b.db.Close()
}
