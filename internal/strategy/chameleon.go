package strategy

import (
	"github.com/skewlab/overlay-backtest/internal/pricing"
	"github.com/skewlab/overlay-backtest/internal/types"
)

// panicGapThreshold is the vol gap above which the Chameleon abandons the
// underlying for aggressive put selling.
const panicGapThreshold = 0.15

// Chameleon branches each day on the implied-minus-realized vol gap after a
// collar-style cash buffer rebalance:
//
//	gap > 0.15  premium is rich: convert everything to cash and sell puts
//	gap < 0     insurance is cheap: run a protective collar
//	otherwise   plain covered call
type Chameleon struct {
	cashSettled
	noPrepare

	pricer *pricing.HybridEngine
	days   int
}

func NewChameleon(pricer *pricing.HybridEngine, days int) *Chameleon {
	return &Chameleon{pricer: pricer, days: days}
}

func (s *Chameleon) Name() string { return "Chameleon" }

func (s *Chameleon) Decide(row types.MarketData, acct *Account) error {
	if acct.HasOpenPosition() {
		return nil
	}

	acct.RebalanceCashBuffer(row.Spot, cashBufferTarget)

	switch {
	case row.VolGap > panicGapThreshold:
		return s.panicPuts(row, acct)
	case row.VolGap < 0:
		return s.protectiveCollar(row, acct)
	default:
		return s.coveredCall(row, acct)
	}
}

// panicPuts liquidates the underlying and sells a 10% OTM put against the
// full cash balance.
func (s *Chameleon) panicPuts(row types.MarketData, acct *Account) error {
	acct.SellAllSpot(row.Spot)

	if acct.Cash <= 0 {
		return nil
	}

	strike := row.Spot * 0.90
	size := acct.Cash / strike

	_, err := sellOption(s.pricer, row, strike, s.days, size, types.OptionTypePut, acct)

	return err
}

// protectiveCollar buys a 5% OTM put financed by a 10% OTM call.
func (s *Chameleon) protectiveCollar(row types.MarketData, acct *Account) error {
	if acct.Holdings == 0 && acct.Cash > 0 {
		acct.BuySpot(row.Spot, 1-cashBufferTarget)
	}

	if acct.Holdings == 0 {
		return nil
	}

	return collarLegs(s.pricer, row, s.days, 0.95, 1.10, acct)
}

func (s *Chameleon) coveredCall(row types.MarketData, acct *Account) error {
	if acct.Holdings == 0 && acct.Cash > 0 {
		acct.BuySpot(row.Spot, 1-cashBufferTarget)
	}

	if acct.Holdings == 0 {
		return nil
	}

	_, err := sellOption(s.pricer, row, row.Spot*1.10, s.days, acct.Holdings, types.OptionTypeCall, acct)

	return err
}
