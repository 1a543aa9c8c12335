package strategy

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/skewlab/overlay-backtest/internal/logger"
	"github.com/skewlab/overlay-backtest/internal/pricing"
	"github.com/skewlab/overlay-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type WheelTestSuite struct {
	suite.Suite

	pricer *pricing.HybridEngine
}

func TestWheelSuite(t *testing.T) {
	suite.Run(t, new(WheelTestSuite))
}

func (suite *WheelTestSuite) SetupTest() {
	suite.pricer = pricing.NewHybridEngine(optional.None[pricing.ChainLookup](), logger.NewNopLogger())
}

func (suite *WheelTestSuite) TestPutAssignmentTakesDelivery() {
	wheel := NewWheel(suite.pricer, 30, 0.90, 1.10)
	acct := NewAccount(1000)

	pos := shortPut(90, 0, 10, 2)
	wheel.Settle(pos, 85, acct)

	// Delivery at the strike, not the market: cash down by 90 x 10.
	suite.InDelta(100, acct.Cash, 1e-9)
	suite.InDelta(10, acct.Holdings, 1e-9)
	suite.Equal(WheelStageCC, wheel.Stage())
}

func (suite *WheelTestSuite) TestPutExpiresWorthlessKeepsStage() {
	wheel := NewWheel(suite.pricer, 30, 0.90, 1.10)
	acct := NewAccount(1000)

	pos := shortPut(90, 0, 10, 2)
	wheel.Settle(pos, 95, acct)

	suite.InDelta(1000, acct.Cash, 1e-9)
	suite.Equal(0.0, acct.Holdings)
	suite.Equal(WheelStageCSP, wheel.Stage())
}

func (suite *WheelTestSuite) TestCallAssignmentDeliversAway() {
	wheel := NewWheel(suite.pricer, 30, 0.90, 1.10)
	wheel.stage = WheelStageCC

	acct := NewAccount(0)
	acct.Holdings = 10

	pos, err := types.NewPosition(types.OptionTypeCall, types.PositionSideShort, 110, 0, 10, 3)
	suite.Require().NoError(err)

	wheel.Settle(pos, 120, acct)

	suite.InDelta(1100, acct.Cash, 1e-9)
	suite.InDelta(0, acct.Holdings, 1e-9)
	suite.Equal(WheelStageCSP, wheel.Stage())
}

func (suite *WheelTestSuite) TestInsufficientCollateralFallsBackToCashLoss() {
	wheel := NewWheel(suite.pricer, 30, 0.90, 1.10)
	acct := NewAccount(100)

	// Full delivery would cost 900, far beyond the balance: degrade to a
	// cash-settled loss of (90-85) x 10 and hold the stage.
	pos := shortPut(90, 0, 10, 2)
	wheel.Settle(pos, 85, acct)

	suite.InDelta(50, acct.Cash, 1e-9)
	suite.Equal(0.0, acct.Holdings)
	suite.Equal(WheelStageCSP, wheel.Stage())
}

func (suite *WheelTestSuite) TestFullCycle() {
	wheel := NewWheel(suite.pricer, 30, 0.90, 1.10)
	acct := NewAccount(100_000)
	row := marketRow(100, 0.6)

	// CSP stage opens a put sized cash/strike.
	suite.Require().NoError(wheel.Decide(row, acct))
	suite.Require().Len(acct.Positions, 1)

	put := acct.Positions[0]
	suite.Equal(types.OptionTypePut, put.OptionType)
	suite.InDelta(90, put.Strike, 1e-9)
	suite.Greater(acct.Cash, 100_000.0) // premium collected

	// No second position while one is open.
	suite.Require().NoError(wheel.Decide(row, acct))
	suite.Len(acct.Positions, 1)

	// Assignment flips to CC and the next decision sells a call.
	acct.Positions = nil
	wheel.Settle(put, 85, acct)
	suite.Equal(WheelStageCC, wheel.Stage())

	suite.Require().NoError(wheel.Decide(row, acct))
	suite.Require().Len(acct.Positions, 1)
	suite.Equal(types.OptionTypeCall, acct.Positions[0].OptionType)
	suite.InDelta(110, acct.Positions[0].Strike, 1e-9)
	suite.InDelta(acct.Holdings, acct.Positions[0].Size, 1e-9)
}

func (suite *WheelTestSuite) TestCSPStageLiquidatesResidualHoldings() {
	wheel := NewWheel(suite.pricer, 30, 0.90, 1.10)
	acct := NewAccount(1000)
	acct.Holdings = 5

	suite.Require().NoError(wheel.Decide(marketRow(100, 0.6), acct))

	suite.Equal(0.0, acct.Holdings)
	suite.Require().Len(acct.Positions, 1)
	suite.Equal(types.OptionTypePut, acct.Positions[0].OptionType)
}

type DeltaWheelTestSuite struct {
	suite.Suite

	pricer *pricing.HybridEngine
}

func TestDeltaWheelSuite(t *testing.T) {
	suite.Run(t, new(DeltaWheelTestSuite))
}

func (suite *DeltaWheelTestSuite) SetupTest() {
	suite.pricer = pricing.NewHybridEngine(optional.None[pricing.ChainLookup](), logger.NewNopLogger())
}

func constantSeries(n int, sigma float64) []types.MarketData {
	rows := make([]types.MarketData, n)
	for i := range rows {
		rows[i] = marketRow(100, sigma)
	}

	return rows
}

func (suite *DeltaWheelTestSuite) TestNameCarriesWindow() {
	wheel := NewDeltaWheel(suite.pricer, 30, 180)
	suite.Equal("SmartWheel(W180)", wheel.Name())
}

func (suite *DeltaWheelTestSuite) TestColdStartSellsNormalDeltaPut() {
	wheel := NewDeltaWheel(suite.pricer, 30, 90)
	rows := constantSeries(100, 0.6)

	suite.Require().NoError(wheel.Prepare(rows))

	acct := NewAccount(100_000)
	suite.Require().NoError(wheel.Decide(rows[0], acct))

	// Forced-Normal cold start sells the -0.30 put.
	suite.Require().Len(acct.Positions, 1)
	pos := acct.Positions[0]
	suite.Equal(types.OptionTypePut, pos.OptionType)

	delta := pricing.Delta(100, pos.Strike, 30.0/365, rows[0].Rate, 0.6, types.OptionTypePut)
	suite.InDelta(-0.30, delta, 1e-6)
}

func (suite *DeltaWheelTestSuite) TestLowRegimeGoesPureSpot() {
	wheel := NewDeltaWheel(suite.pricer, 30, 90)

	// Warm series descending into a clear low-vol regime.
	rows := make([]types.MarketData, 120)
	for i := range rows {
		sigma := 0.9 - 0.006*float64(i)
		rows[i] = marketRow(100, sigma)
	}

	suite.Require().NoError(wheel.Prepare(rows))

	acct := NewAccount(100_000)

	// Walk to the last row; when Low is active the account must end up
	// fully in spot with no options.
	sawLow := false

	for _, row := range rows {
		for _, pos := range acct.DecrementAndExpire() {
			wheel.Settle(pos, row.Spot, acct)
		}

		suite.Require().NoError(wheel.Decide(row, acct))

		if len(acct.Positions) == 0 && acct.Holdings > 0 && acct.Cash < 1 {
			sawLow = true
		}

		// Single position discipline holds throughout.
		suite.LessOrEqual(len(acct.Positions), 1)
	}

	suite.True(sawLow, "expected the descending vol series to trigger the pure-spot branch")
}

func (suite *DeltaWheelTestSuite) TestHighRegimeSellsTighterPut() {
	wheelNormal := NewDeltaWheel(suite.pricer, 30, 90)
	rows := constantSeries(61, 0.6)
	suite.Require().NoError(wheelNormal.Prepare(rows))

	normalAcct := NewAccount(100_000)
	suite.Require().NoError(wheelNormal.Decide(rows[0], normalAcct))
	suite.Require().Len(normalAcct.Positions, 1)

	// The -0.15 High-regime put sits further OTM than the -0.30 put.
	strikeHigh := suite.pricer.StrikeForDelta(rows[0].Date, 100, 30.0/365, rows[0].Rate, 0.6, -0.15, types.OptionTypePut)
	suite.Less(strikeHigh, normalAcct.Positions[0].Strike)
}
