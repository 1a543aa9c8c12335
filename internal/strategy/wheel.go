package strategy

import (
	"fmt"

	"github.com/skewlab/overlay-backtest/internal/pricing"
	"github.com/skewlab/overlay-backtest/internal/types"
)

// WheelStage is the two-phase wheel state: selling puts on cash or selling
// calls on assigned stock.
type WheelStage string

const (
	WheelStageCSP WheelStage = "CSP"
	WheelStageCC  WheelStage = "CC"
)

// Wheel cycles between cash-secured puts and covered calls through physical
// assignment: an ITM put at expiry takes delivery of the underlying at the
// strike and flips to the CC stage; an ITM call delivers the underlying away
// and flips back to CSP.
type Wheel struct {
	noPrepare

	pricer  *pricing.HybridEngine
	days    int
	putOTM  float64
	callOTM float64
	stage   WheelStage
}

// NewWheel creates a fixed-moneyness wheel. putOTM and callOTM are strike
// fractions of spot (e.g. 0.90 and 1.10).
func NewWheel(pricer *pricing.HybridEngine, days int, putOTM, callOTM float64) *Wheel {
	return &Wheel{
		pricer:  pricer,
		days:    days,
		putOTM:  putOTM,
		callOTM: callOTM,
		stage:   WheelStageCSP,
	}
}

func (s *Wheel) Name() string {
	return fmt.Sprintf("Wheel (%.0f/%.0f)", s.putOTM*100, s.callOTM*100)
}

// Stage exposes the current wheel phase for diagnostics.
func (s *Wheel) Stage() WheelStage { return s.stage }

func (s *Wheel) Settle(pos types.Position, spot float64, acct *Account) {
	s.stage = settlePhysical(pos, spot, acct, s.stage)
}

// settlePhysical applies physical assignment to an expired short option and
// returns the next wheel stage. When collateral is insufficient for delivery
// the position degrades to a cash-settled loss and the stage is unchanged.
func settlePhysical(pos types.Position, spot float64, acct *Account, stage WheelStage) WheelStage {
	switch {
	case pos.OptionType == types.OptionTypePut && spot < pos.Strike:
		cost := pos.Strike * pos.Size
		if acct.Cash >= cost {
			acct.Cash -= cost
			acct.Holdings += pos.Size

			return WheelStageCC
		}

		acct.Cash -= (pos.Strike - spot) * pos.Size

	case pos.OptionType == types.OptionTypeCall && spot > pos.Strike:
		if acct.Holdings >= pos.Size {
			acct.Holdings -= pos.Size
			acct.Cash += pos.Strike * pos.Size

			return WheelStageCSP
		}

		acct.Cash -= (spot - pos.Strike) * pos.Size
	}

	return stage
}

func (s *Wheel) Decide(row types.MarketData, acct *Account) error {
	if acct.HasOpenPosition() {
		return nil
	}

	switch s.stage {
	case WheelStageCSP:
		// Any residual holding is converted so the full balance
		// collateralizes the put.
		if acct.Holdings > dustThreshold {
			acct.SellAllSpot(row.Spot)
		}

		if acct.Cash <= 0 {
			return nil
		}

		strike := row.Spot * s.putOTM
		size := acct.Cash / strike

		_, err := sellOption(s.pricer, row, strike, s.days, size, types.OptionTypePut, acct)

		return err

	case WheelStageCC:
		if acct.Holdings < dustThreshold {
			s.stage = WheelStageCSP

			return nil
		}

		strike := row.Spot * s.callOTM

		_, err := sellOption(s.pricer, row, strike, s.days, acct.Holdings, types.OptionTypeCall, acct)

		return err
	}

	return nil
}
