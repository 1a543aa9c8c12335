package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/skewlab/overlay-backtest/internal/logger"
	"github.com/skewlab/overlay-backtest/internal/strategy"
	"github.com/skewlab/overlay-backtest/internal/types"
	"github.com/skewlab/overlay-backtest/pkg/errors"
	"go.uber.org/zap"
)

// RunResult is the outcome of one strategy's simulation. Failed strategies
// carry their error and are excluded from consolidation.
type RunResult struct {
	StrategyName string
	History      []types.EquityPoint
	Err          error
}

// Runner drives a batch of strategies over one shared market series. Each
// strategy gets an isolated account; a failure in one never aborts the rest.
type Runner struct {
	log          *logger.Logger
	state        *BacktestState
	capital      float64
	showProgress bool
}

func NewRunner(log *logger.Logger, state *BacktestState, initialCapital float64) *Runner {
	return &Runner{
		log:     log,
		state:   state,
		capital: initialCapital,
	}
}

// WithProgress enables a terminal progress bar per strategy run.
func (r *Runner) WithProgress(show bool) *Runner {
	r.showProgress = show

	return r
}

// Run simulates every strategy over the series and returns one result per
// strategy, in input order.
func (r *Runner) Run(rows []types.MarketData, strategies []strategy.Strategy) ([]RunResult, error) {
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeBacktestNoData, "market series is empty")
	}

	if len(strategies) == 0 {
		return nil, errors.New(errors.ErrCodeBacktestNoStrategies, "no strategies to run")
	}

	results := make([]RunResult, 0, len(strategies))

	for _, strat := range strategies {
		result := r.runOne(rows, strat)
		if result.Err != nil {
			r.log.Error("strategy run failed, excluding from results",
				zap.String("strategy", result.StrategyName),
				zap.Error(result.Err),
			)
		} else if r.state != nil {
			if err := r.state.RecordEquityHistory(result.StrategyName, result.History); err != nil {
				return nil, err
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// runOne simulates a single strategy. Panics are recovered and reported as
// the strategy's error so one bad run cannot abort the batch.
func (r *Runner) runOne(rows []types.MarketData, strat strategy.Strategy) (result RunResult) {
	result.StrategyName = strat.Name()

	defer func() {
		if rec := recover(); rec != nil {
			result.Err = errors.Newf(errors.ErrCodeStrategyRuntimeError,
				"strategy %s panicked: %v", strat.Name(), rec)
			result.History = nil
		}
	}()

	if err := strat.Prepare(rows); err != nil {
		result.Err = err

		return result
	}

	acct := strategy.NewAccount(r.capital)

	var bar *progressbar.ProgressBar
	if r.showProgress {
		bar = progressbar.Default(int64(len(rows)), fmt.Sprintf("running %s", strat.Name()))
	}

	for _, row := range rows {
		for _, pos := range acct.DecrementAndExpire() {
			strat.Settle(pos, row.Spot, acct)
		}

		openBefore := len(acct.Positions)

		if err := strat.Decide(row, acct); err != nil {
			result.Err = err

			return result
		}

		if r.state != nil {
			for _, pos := range acct.Positions[openBefore:] {
				if err := r.state.RecordTrade(strat.Name(), row, pos); err != nil {
					result.Err = err

					return result
				}
			}
		}

		acct.Mark(row)

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	result.History = acct.History

	return result
}

// ConsolidatedEquity is the date-aligned equity table across all successful
// strategies, ready for analytics and export.
type ConsolidatedEquity struct {
	Dates      []time.Time
	Strategies []string
	// Equity holds one column per strategy, aligned with Dates. Gaps are
	// forward-filled; leading gaps carry the initial capital.
	Equity map[string][]float64
}

// Consolidate outer-joins the successful strategies' equity histories on
// date and forward-fills missing values.
func Consolidate(results []RunResult, initialCapital float64) ConsolidatedEquity {
	dateSet := make(map[time.Time]struct{})
	curves := make(map[string]map[time.Time]float64)

	var names []string

	for _, result := range results {
		if result.Err != nil {
			continue
		}

		curve := make(map[time.Time]float64, len(result.History))
		for _, point := range result.History {
			curve[point.Date] = point.Equity
			dateSet[point.Date] = struct{}{}
		}

		curves[result.StrategyName] = curve
		names = append(names, result.StrategyName)
	}

	dates := make([]time.Time, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	equity := make(map[string][]float64, len(names))

	for _, name := range names {
		column := make([]float64, len(dates))
		last := initialCapital

		for i, date := range dates {
			if value, ok := curves[name][date]; ok {
				last = value
			}

			column[i] = last
		}

		equity[name] = column
	}

	return ConsolidatedEquity{
		Dates:      dates,
		Strategies: names,
		Equity:     equity,
	}
}
