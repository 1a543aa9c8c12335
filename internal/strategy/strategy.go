// Package strategy implements the options-overlay strategy state machines.
// Each strategy owns one Account and consumes one market row per step under
// the engine's fixed protocol: positions are aged and settled first, then
// the strategy decides, then the account is marked to market.
package strategy

import (
	"github.com/skewlab/overlay-backtest/internal/pricing"
	"github.com/skewlab/overlay-backtest/internal/types"
)

// Strategy is the closed capability interface the backtest engine drives.
// Implementations are single-run state machines: construct a fresh instance
// per backtest.
type Strategy interface {
	// Name identifies the strategy in logs and result tables.
	Name() string
	// Prepare receives the full series before the run. Strategies that
	// compute per-instance signals (e.g. a private regime window) do it
	// here; the series itself must be treated as read-only.
	Prepare(rows []types.MarketData) error
	// Settle handles one expired position. Most strategies cash-settle;
	// the wheel variants take physical assignment and may switch stage.
	Settle(pos types.Position, spot float64, acct *Account)
	// Decide runs the daily decision step and may open new positions.
	Decide(row types.MarketData, acct *Account) error
}

// cashSettled provides the default cash settlement behavior.
type cashSettled struct{}

func (cashSettled) Settle(pos types.Position, spot float64, acct *Account) {
	acct.CashSettle(pos, spot)
}

// noPrepare is for strategies with no pre-run computation.
type noPrepare struct{}

func (noPrepare) Prepare([]types.MarketData) error { return nil }

// sellOption quotes and opens a short option sized at size units. Returns
// false when the size is dust or the quote is worthless.
func sellOption(pricer *pricing.HybridEngine, row types.MarketData, strike float64,
	days int, size float64, optType types.OptionType, acct *Account,
) (bool, error) {
	if size <= dustThreshold {
		return false, nil
	}

	quote := pricer.Quote(row.Date, row.Spot, strike, days, row.Rate, row.Sigma, optType, types.TradeActionSell)

	pos, err := types.NewPosition(optType, types.PositionSideShort, strike, days, size, quote.ExecutionPrice)
	if err != nil {
		return false, err
	}

	acct.OpenShort(pos)

	return true, nil
}

// buyOption quotes and opens a long option sized at size units.
func buyOption(pricer *pricing.HybridEngine, row types.MarketData, strike float64,
	days int, size float64, optType types.OptionType, acct *Account,
) (bool, error) {
	if size <= dustThreshold {
		return false, nil
	}

	quote := pricer.Quote(row.Date, row.Spot, strike, days, row.Rate, row.Sigma, optType, types.TradeActionBuy)

	pos, err := types.NewPosition(optType, types.PositionSideLong, strike, days, size, quote.ExecutionPrice)
	if err != nil {
		return false, err
	}

	acct.OpenLong(pos)

	return true, nil
}
