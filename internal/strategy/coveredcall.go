package strategy

import (
	"fmt"

	"github.com/skewlab/overlay-backtest/internal/pricing"
	"github.com/skewlab/overlay-backtest/internal/types"
)

// CoveredCall holds the underlying and, whenever flat on options, sells a
// fixed-percentage OTM call against the full holding for a fixed tenor.
type CoveredCall struct {
	cashSettled
	noPrepare

	pricer *pricing.HybridEngine
	days   int
	otm    float64
}

// NewCoveredCall creates a covered-call strategy. otm is the call strike as
// a fraction of spot (e.g. 1.10 for 10% OTM).
func NewCoveredCall(pricer *pricing.HybridEngine, days int, otm float64) *CoveredCall {
	return &CoveredCall{pricer: pricer, days: days, otm: otm}
}

func (s *CoveredCall) Name() string {
	return fmt.Sprintf("Covered Call (%d%% OTM)", int((s.otm-1)*100))
}

func (s *CoveredCall) Decide(row types.MarketData, acct *Account) error {
	if acct.Holdings == 0 {
		acct.BuySpot(row.Spot, 1.0)
	}

	if acct.Holdings > 0 && !acct.HasOpenPosition() {
		strike := row.Spot * s.otm
		if _, err := sellOption(s.pricer, row, strike, s.days, acct.Holdings, types.OptionTypeCall, acct); err != nil {
			return err
		}
	}

	return nil
}
