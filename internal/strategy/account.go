package strategy

import (
	"github.com/shopspring/decimal"
	"github.com/skewlab/overlay-backtest/internal/pricing"
	"github.com/skewlab/overlay-backtest/internal/types"
)

// minSpotCash is the smallest cash balance worth converting to spot.
const minSpotCash = 10.0

// dustThreshold is the smallest position size a strategy will open or
// treat as a real holding.
const dustThreshold = 0.001

// Account is the isolated portfolio state owned by exactly one strategy
// instance: cash, underlying holdings, open option positions and the
// recorded equity history. No sharing across strategies.
type Account struct {
	Cash      float64
	Holdings  float64
	Positions []types.Position
	History   []types.EquityPoint
}

// NewAccount creates an account holding only cash.
func NewAccount(initialCapital float64) *Account {
	return &Account{
		Cash:      initialCapital,
		Holdings:  0,
		Positions: nil,
		History:   nil,
	}
}

// HasOpenPosition reports whether any option position is open.
func (a *Account) HasOpenPosition() bool {
	return len(a.Positions) > 0
}

// DecrementAndExpire ages every open position by one day and removes and
// returns those that reached expiry. The engine calls this before the
// strategy's decision step so settlement always precedes new signals.
func (a *Account) DecrementAndExpire() []types.Position {
	var expired []types.Position

	remaining := a.Positions[:0]

	for i := range a.Positions {
		a.Positions[i].DaysRemaining--
		if a.Positions[i].DaysRemaining <= 0 {
			expired = append(expired, a.Positions[i])
		} else {
			remaining = append(remaining, a.Positions[i])
		}
	}

	a.Positions = remaining

	return expired
}

// BuySpot converts pct of cash into underlying at the given price. Balances
// below the minimum are left alone.
func (a *Account) BuySpot(price, pct float64) {
	if a.Cash <= minSpotCash || price <= 0 {
		return
	}

	amount := a.Cash * pct
	a.Holdings += amount / price
	a.Cash -= amount
}

// SellAllSpot converts the full underlying holding back to cash.
func (a *Account) SellAllSpot(price float64) {
	if a.Holdings <= 0 {
		return
	}

	a.Cash += a.Holdings * price
	a.Holdings = 0
}

// OpenShort records a short option position and credits the premium
// proceeds (execution price already includes the spread).
func (a *Account) OpenShort(pos types.Position) {
	proceeds := decimal.NewFromFloat(pos.EntryPremium).Mul(decimal.NewFromFloat(pos.Size))
	a.Cash, _ = decimal.NewFromFloat(a.Cash).Add(proceeds).Float64()
	a.Positions = append(a.Positions, pos)
}

// OpenLong records a long option position and debits the premium cost.
func (a *Account) OpenLong(pos types.Position) {
	cost := decimal.NewFromFloat(pos.EntryPremium).Mul(decimal.NewFromFloat(pos.Size))
	a.Cash, _ = decimal.NewFromFloat(a.Cash).Sub(cost).Float64()
	a.Positions = append(a.Positions, pos)
}

// CashSettle applies the intrinsic payoff of an expired position to cash:
// short positions pay out, long positions collect.
func (a *Account) CashSettle(pos types.Position, spot float64) {
	payoff := pos.IntrinsicValue(spot)
	if payoff <= 0 {
		return
	}

	amount := decimal.NewFromFloat(payoff).Mul(decimal.NewFromFloat(pos.Size))

	cash := decimal.NewFromFloat(a.Cash)
	if pos.Side == types.PositionSideShort {
		cash = cash.Sub(amount)
	} else {
		cash = cash.Add(amount)
	}

	a.Cash, _ = cash.Float64()
}

// OptionValue returns the signed mark-to-market value of all open positions
// at the given market row: short positions are liabilities.
func (a *Account) OptionValue(row types.MarketData) float64 {
	value := 0.0

	for i := range a.Positions {
		pos := &a.Positions[i]
		price := pricing.BSMPriceDays(row.Spot, pos.Strike, pos.DaysRemaining, row.Rate, row.Sigma, pos.OptionType)

		if pos.Side == types.PositionSideShort {
			value -= price * pos.Size
		} else {
			value += price * pos.Size
		}
	}

	return value
}

// Equity is the accounting identity: cash + holdings at spot + signed
// option mark-to-market.
func (a *Account) Equity(row types.MarketData) float64 {
	return a.Cash + a.Holdings*row.Spot + a.OptionValue(row)
}

// Mark records the end-of-day equity point.
func (a *Account) Mark(row types.MarketData) {
	a.History = append(a.History, types.EquityPoint{
		Date:     row.Date,
		Equity:   a.Equity(row),
		Spot:     row.Spot,
		VolGap:   row.VolGap,
		Regime:   row.Regime,
		Cash:     a.Cash,
		Holdings: a.Holdings,
	})
}

// RebalanceCashBuffer trims underlying into cash until cash reaches the
// target fraction of total equity (options excluded from the base, matching
// the collar-style rebalance). No-op when underlying can't cover the gap.
func (a *Account) RebalanceCashBuffer(price, targetFraction float64) {
	totalEquity := a.Cash + a.Holdings*price
	targetCash := totalEquity * targetFraction

	if a.Cash >= targetCash {
		return
	}

	shortfall := targetCash - a.Cash
	if a.Holdings*price > shortfall {
		a.Holdings -= shortfall / price
		a.Cash += shortfall
	}
}
