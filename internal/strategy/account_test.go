package strategy

import (
	"testing"
	"time"

	"github.com/skewlab/overlay-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type AccountTestSuite struct {
	suite.Suite
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountTestSuite))
}

func marketRow(spot, sigma float64) types.MarketData {
	return types.MarketData{
		Date:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Spot:  spot,
		Rate:  0.03,
		Sigma: sigma,
	}
}

func shortPut(strike float64, days int, size, premium float64) types.Position {
	pos, err := types.NewPosition(types.OptionTypePut, types.PositionSideShort, strike, days, size, premium)
	if err != nil {
		panic(err)
	}

	return pos
}

func (suite *AccountTestSuite) TestBuySpotConvertsCash() {
	acct := NewAccount(100_000)
	acct.BuySpot(100, 1.0)

	suite.InDelta(0, acct.Cash, 1e-9)
	suite.InDelta(1000, acct.Holdings, 1e-9)
}

func (suite *AccountTestSuite) TestBuySpotSkipsTinyBalance() {
	acct := NewAccount(5)
	acct.BuySpot(100, 1.0)

	suite.Equal(5.0, acct.Cash)
	suite.Equal(0.0, acct.Holdings)
}

func (suite *AccountTestSuite) TestDecrementAndExpire() {
	acct := NewAccount(1000)
	acct.Positions = append(acct.Positions,
		shortPut(90, 1, 1, 2),
		shortPut(90, 5, 1, 2),
	)

	expired := acct.DecrementAndExpire()

	suite.Len(expired, 1)
	suite.Len(acct.Positions, 1)
	suite.Equal(4, acct.Positions[0].DaysRemaining)
}

func (suite *AccountTestSuite) TestCashSettleShortPut() {
	acct := NewAccount(1000)
	pos := shortPut(90, 0, 2, 3)

	acct.CashSettle(pos, 80)

	// Short pays intrinsic (90-80) x 2.
	suite.InDelta(980, acct.Cash, 1e-9)
}

func (suite *AccountTestSuite) TestCashSettleExpiredWorthless() {
	acct := NewAccount(1000)
	pos := shortPut(90, 0, 2, 3)

	acct.CashSettle(pos, 100)

	suite.InDelta(1000, acct.Cash, 1e-9)
}

func (suite *AccountTestSuite) TestOpenShortCreditsPremium() {
	acct := NewAccount(1000)
	acct.OpenShort(shortPut(90, 30, 2, 3.5))

	suite.InDelta(1007, acct.Cash, 1e-9)
	suite.True(acct.HasOpenPosition())
}

func (suite *AccountTestSuite) TestEquityIdentity() {
	acct := NewAccount(50_000)
	row := marketRow(100, 0.6)

	acct.BuySpot(row.Spot, 0.5)
	acct.OpenShort(shortPut(90, 30, 10, 2.0))

	// equity == cash + holdings*spot + signed option value, always.
	expected := acct.Cash + acct.Holdings*row.Spot + acct.OptionValue(row)
	suite.InDelta(expected, acct.Equity(row), 1e-9)

	// The short mark is a liability: equity is below the option-free value.
	suite.Less(acct.Equity(row), acct.Cash+acct.Holdings*row.Spot)
}

func (suite *AccountTestSuite) TestOptionValueSigns() {
	row := marketRow(100, 0.6)

	short := NewAccount(0)
	short.Positions = append(short.Positions, shortPut(95, 30, 1, 2))
	suite.Negative(short.OptionValue(row))

	long := NewAccount(0)
	pos, err := types.NewPosition(types.OptionTypePut, types.PositionSideLong, 95, 30, 1, 2)
	suite.Require().NoError(err)
	long.Positions = append(long.Positions, pos)
	suite.Positive(long.OptionValue(row))

	// The marks mirror each other.
	suite.InDelta(-short.OptionValue(row), long.OptionValue(row), 1e-12)
}

func (suite *AccountTestSuite) TestMarkRecordsHistory() {
	acct := NewAccount(1000)
	row := marketRow(100, 0.6)

	acct.Mark(row)

	suite.Require().Len(acct.History, 1)
	suite.Equal(row.Date, acct.History[0].Date)
	suite.InDelta(1000, acct.History[0].Equity, 1e-9)
}

func (suite *AccountTestSuite) TestRebalanceCashBuffer() {
	acct := NewAccount(0)
	acct.Holdings = 10

	acct.RebalanceCashBuffer(100, 0.05)

	// 5% of 1000 total equity moved into cash.
	suite.InDelta(50, acct.Cash, 1e-9)
	suite.InDelta(9.5, acct.Holdings, 1e-9)
}

func (suite *AccountTestSuite) TestRebalanceNoOpWhenCashSufficient() {
	acct := NewAccount(500)
	acct.Holdings = 1

	acct.RebalanceCashBuffer(100, 0.05)

	suite.Equal(500.0, acct.Cash)
	suite.Equal(1.0, acct.Holdings)
}

func (suite *AccountTestSuite) TestMarkUsesCurrentSigmaForOpenPositions() {
	acct := NewAccount(10_000)
	acct.OpenShort(shortPut(90, 30, 5, 2))

	calm := acct.Equity(marketRow(100, 0.3))
	panicked := acct.Equity(marketRow(100, 1.2))

	// Higher vol marks the short liability richer, so equity drops.
	suite.Less(panicked, calm)
}
