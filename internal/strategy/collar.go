package strategy

import (
	"fmt"

	"github.com/skewlab/overlay-backtest/internal/pricing"
	"github.com/skewlab/overlay-backtest/internal/types"
)

// cashBufferTarget is the cash fraction of equity the collar-style
// strategies maintain before trading.
const cashBufferTarget = 0.05

// Collar holds the underlying behind a cash buffer and, whenever flat on
// options, simultaneously buys a protective OTM put and sells a capped OTM
// call, proceeding only when the net premium cost is affordable.
type Collar struct {
	cashSettled
	noPrepare

	pricer  *pricing.HybridEngine
	days    int
	protect float64
	cap     float64
}

// NewCollar creates a collar strategy. protect is the put strike and cap the
// call strike, both as fractions of spot (e.g. 0.90 and 1.10).
func NewCollar(pricer *pricing.HybridEngine, days int, protect, cap float64) *Collar {
	return &Collar{pricer: pricer, days: days, protect: protect, cap: cap}
}

func (s *Collar) Name() string {
	return fmt.Sprintf("Collar (%.0f/%.0f)", s.protect*100, s.cap*100)
}

func (s *Collar) Decide(row types.MarketData, acct *Account) error {
	acct.RebalanceCashBuffer(row.Spot, cashBufferTarget)

	if acct.Holdings == 0 && acct.Cash > 0 {
		acct.BuySpot(row.Spot, 1-cashBufferTarget)
	}

	if acct.Holdings == 0 || acct.HasOpenPosition() {
		return nil
	}

	return collarLegs(s.pricer, row, s.days, s.protect, s.cap, acct)
}

// collarLegs opens the put/call pair against the full holding when the net
// premium is affordable. Shared with the Chameleon's defensive branch.
func collarLegs(pricer *pricing.HybridEngine, row types.MarketData, days int,
	protect, cap float64, acct *Account,
) error {
	size := acct.Holdings

	putQuote := pricer.Quote(row.Date, row.Spot, row.Spot*protect, days,
		row.Rate, row.Sigma, types.OptionTypePut, types.TradeActionBuy)
	callQuote := pricer.Quote(row.Date, row.Spot, row.Spot*cap, days,
		row.Rate, row.Sigma, types.OptionTypeCall, types.TradeActionSell)

	netCost := (putQuote.ExecutionPrice - callQuote.ExecutionPrice) * size
	if acct.Cash <= netCost {
		return nil
	}

	if _, err := buyOption(pricer, row, row.Spot*protect, days, size, types.OptionTypePut, acct); err != nil {
		return err
	}

	_, err := sellOption(pricer, row, row.Spot*cap, days, size, types.OptionTypeCall, acct)

	return err
}
