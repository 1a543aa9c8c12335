package strategy

import "github.com/skewlab/overlay-backtest/internal/types"

// BuyAndHold is the benchmark: converts all cash to underlying on the first
// step and never touches options.
type BuyAndHold struct {
	cashSettled
	noPrepare
}

func NewBuyAndHold() *BuyAndHold {
	return &BuyAndHold{}
}

func (s *BuyAndHold) Name() string { return "Buy & Hold" }

func (s *BuyAndHold) Decide(row types.MarketData, acct *Account) error {
	if acct.Holdings == 0 && acct.Cash > 0 {
		acct.BuySpot(row.Spot, 1.0)
	}

	return nil
}
