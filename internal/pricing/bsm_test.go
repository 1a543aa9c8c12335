package pricing

import (
	"math"
	"math/rand"
	"testing"

	"github.com/skewlab/overlay-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type BSMTestSuite struct {
	suite.Suite
}

func TestBSMSuite(t *testing.T) {
	suite.Run(t, new(BSMTestSuite))
}

func (suite *BSMTestSuite) TestExpiredOptionIsIntrinsic() {
	tests := []struct {
		name     string
		spot     float64
		strike   float64
		optType  types.OptionType
		expected float64
	}{
		{"ITM call", 110, 100, types.OptionTypeCall, 10},
		{"OTM call", 90, 100, types.OptionTypeCall, 0},
		{"ITM put", 90, 100, types.OptionTypePut, 10},
		{"OTM put", 110, 100, types.OptionTypePut, 0},
		{"ATM call", 100, 100, types.OptionTypeCall, 0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			price := BSMPrice(tc.spot, tc.strike, 0, 0.03, 0.6, tc.optType)
			suite.InDelta(tc.expected, price, 1e-12)
		})
	}
}

func (suite *BSMTestSuite) TestZeroVolMatchesZeroTime() {
	spots := []float64{50, 90, 100, 110, 200}

	for _, spot := range spots {
		zeroVol := BSMPrice(spot, 100, 30.0/365, 0.03, 0, types.OptionTypeCall)
		zeroTime := BSMPrice(spot, 100, 0, 0.03, 0.6, types.OptionTypeCall)
		suite.InDelta(zeroTime, zeroVol, 1e-12)

		zeroVol = BSMPrice(spot, 100, 30.0/365, 0.03, -0.1, types.OptionTypePut)
		zeroTime = BSMPrice(spot, 100, 0, 0.03, 0.6, types.OptionTypePut)
		suite.InDelta(zeroTime, zeroVol, 1e-12)
	}
}

func (suite *BSMTestSuite) TestPriceAboveIntrinsic() {
	// With positive time value an American-style lower bound holds: the
	// BSM call price never drops below intrinsic.
	price := BSMPrice(120, 100, 60.0/365, 0.03, 0.5, types.OptionTypeCall)
	suite.Greater(price, Intrinsic(120, 100, types.OptionTypeCall))
}

func (suite *BSMTestSuite) TestPutCallParity() {
	spot, strike, T, rate, sigma := 105.0, 100.0, 45.0/365, 0.04, 0.55

	call := BSMPrice(spot, strike, T, rate, sigma, types.OptionTypeCall)
	put := BSMPrice(spot, strike, T, rate, sigma, types.OptionTypePut)

	parity := spot - strike*math.Exp(-rate*T)
	suite.InDelta(parity, call-put, 1e-9)
}

func (suite *BSMTestSuite) TestNormPPFInvertsNormCDF() {
	for _, p := range []float64{0.001, 0.05, 0.3, 0.5, 0.7, 0.95, 0.999} {
		suite.InDelta(p, NormCDF(NormPPF(p)), 1e-9)
	}
}

func (suite *BSMTestSuite) TestDeltaInversionRoundTrip() {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		spot := 20 + rng.Float64()*180
		T := 0.01 + rng.Float64()*2
		rate := rng.Float64() * 0.10
		sigma := 0.05 + rng.Float64()*1.5

		targetCall := 0.05 + rng.Float64()*0.90
		strike := StrikeForDelta(spot, T, rate, sigma, targetCall, types.OptionTypeCall)
		suite.InDelta(targetCall, Delta(spot, strike, T, rate, sigma, types.OptionTypeCall), 1e-6)

		targetPut := -(0.05 + rng.Float64()*0.90)
		strike = StrikeForDelta(spot, T, rate, sigma, targetPut, types.OptionTypePut)
		suite.InDelta(targetPut, Delta(spot, strike, T, rate, sigma, types.OptionTypePut), 1e-6)
	}
}

func (suite *BSMTestSuite) TestDeltaBounds() {
	// Deep ITM call delta approaches 1, deep OTM approaches 0.
	suite.InDelta(1, Delta(300, 100, 30.0/365, 0.03, 0.4, types.OptionTypeCall), 1e-6)
	suite.InDelta(0, Delta(30, 100, 30.0/365, 0.03, 0.4, types.OptionTypeCall), 1e-6)

	// Put deltas are negative.
	suite.Negative(Delta(100, 100, 30.0/365, 0.03, 0.4, types.OptionTypePut))
}
