package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/skewlab/overlay-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func dailyDates(n int) []time.Time {
	dates := make([]time.Time, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}

	return dates
}

func (suite *MetricsTestSuite) TestTotalReturn() {
	suite.InDelta(0.5, TotalReturn([]float64{100, 120, 150}).Unwrap(), 1e-12)
	suite.InDelta(-0.5, TotalReturn([]float64{100, 50}).Unwrap(), 1e-12)

	suite.True(TotalReturn([]float64{100}).IsNone())
	suite.True(TotalReturn(nil).IsNone())
	suite.True(TotalReturn([]float64{0, 100}).IsNone())
}

func (suite *MetricsTestSuite) TestCAGROneYearDouble() {
	// Doubling over exactly 365 days is a 100% CAGR.
	values := []float64{100, 200}
	dates := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 365),
	}

	suite.InDelta(1.0, CAGR(dates, values).Unwrap(), 1e-9)
}

func (suite *MetricsTestSuite) TestCAGRWipedOutAccount() {
	values := []float64{100, -5}
	dates := dailyDates(2)

	suite.InDelta(-1.0, CAGR(dates, values).Unwrap(), 1e-12)
}

func (suite *MetricsTestSuite) TestMaxDrawdown() {
	// Peak 120, trough 60: 50% drawdown.
	values := []float64{100, 120, 90, 60, 110}
	suite.InDelta(0.5, MaxDrawdown(values).Unwrap(), 1e-12)

	// Monotone series never draws down.
	suite.InDelta(0, MaxDrawdown([]float64{100, 110, 120}).Unwrap(), 1e-12)
}

func (suite *MetricsTestSuite) TestSharpeUndefinedForFlatSeries() {
	flat := []float64{100, 100, 100, 100}

	suite.True(Sharpe(flat).IsNone())
	suite.True(Sortino(flat).IsNone())
}

func (suite *MetricsTestSuite) TestSharpePositiveForRisingSeries() {
	values := []float64{100, 101, 101.5, 103, 103.2, 105}

	sharpe := Sharpe(values)
	suite.Require().True(sharpe.IsSome())
	suite.Positive(sharpe.Unwrap())
}

func (suite *MetricsTestSuite) TestSortinoUndefinedWithoutDownside() {
	// Fewer than two losing days leaves downside deviation undefined.
	values := []float64{100, 101, 102, 103}
	suite.True(Sortino(values).IsNone())
}

func (suite *MetricsTestSuite) TestWinRate() {
	values := []float64{100, 110, 105, 120, 115}
	suite.InDelta(0.5, WinRate(values).Unwrap(), 1e-12)
}

func (suite *MetricsTestSuite) TestCalmar() {
	values := []float64{100, 120, 90, 130}
	dates := dailyDates(4)

	calmar := Calmar(dates, values)
	suite.Require().True(calmar.IsSome())

	cagr := CAGR(dates, values).Unwrap()
	drawdown := MaxDrawdown(values).Unwrap()
	suite.InDelta(cagr/drawdown, calmar.Unwrap(), 1e-12)
}

func (suite *MetricsTestSuite) TestRollingSharpeAlignment() {
	values := []float64{100, 101, 102, 103, 104, 105, 106}

	rolling := RollingSharpe(values, 3)
	suite.Len(rolling, 6)

	// Entries before the window fills stay zero.
	suite.Equal(0.0, rolling[0])
	suite.Equal(0.0, rolling[1])
	suite.NotEqual(0.0, rolling[5])
}

func (suite *MetricsTestSuite) TestComputeHistorySummary() {
	history := []types.EquityPoint{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Equity: 100, Regime: types.RegimeNormal},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Equity: 102, Regime: types.RegimeNormal},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Equity: 101, Regime: types.RegimeHigh},
		{Date: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), Equity: 103, Regime: types.RegimeHigh},
	}

	summary := ComputeHistorySummary("test", history)

	suite.Equal("test", summary.Strategy)
	suite.Require().NotNil(summary.TotalReturn)
	suite.InDelta(0.03, *summary.TotalReturn, 1e-12)

	suite.Require().Contains(summary.Regimes, "Normal")
	suite.Require().Contains(summary.Regimes, "High")
	suite.Equal(1, summary.Regimes["Normal"].Days)
	suite.Equal(2, summary.Regimes["High"].Days)
}

func (suite *MetricsTestSuite) TestDailyReturnsLength() {
	suite.Len(DailyReturns([]float64{1, 2, 3}), 2)
	suite.Nil(DailyReturns([]float64{1}))
}

func (suite *MetricsTestSuite) TestAnnualizedVolScaling() {
	values := []float64{100, 102, 100, 102, 100, 102}

	vol := AnnualizedVol(values)
	suite.Require().True(vol.IsSome())

	returns := DailyReturns(values)
	suite.InDelta(sampleStd(returns)*math.Sqrt(365), vol.Unwrap(), 1e-12)
}
