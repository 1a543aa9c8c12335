package strategy

import (
	"fmt"

	"github.com/skewlab/overlay-backtest/internal/pricing"
	"github.com/skewlab/overlay-backtest/internal/types"
)

// CashSecuredPut holds cash and, whenever flat on options, sells a
// fixed-percentage OTM put sized so that full exercise is collateralized:
// size = cash / strike.
type CashSecuredPut struct {
	cashSettled
	noPrepare

	pricer *pricing.HybridEngine
	days   int
	otm    float64
}

// NewCashSecuredPut creates a CSP strategy. otm is the put strike as a
// fraction of spot (e.g. 0.90 for 10% OTM).
func NewCashSecuredPut(pricer *pricing.HybridEngine, days int, otm float64) *CashSecuredPut {
	return &CashSecuredPut{pricer: pricer, days: days, otm: otm}
}

func (s *CashSecuredPut) Name() string {
	return fmt.Sprintf("CSP (%d%% OTM)", int((1-s.otm)*100))
}

func (s *CashSecuredPut) Decide(row types.MarketData, acct *Account) error {
	if acct.HasOpenPosition() || acct.Cash <= 0 {
		return nil
	}

	strike := row.Spot * s.otm
	size := acct.Cash / strike

	_, err := sellOption(s.pricer, row, strike, s.days, size, types.OptionTypePut, acct)

	return err
}
