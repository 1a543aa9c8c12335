package pricing

import "github.com/skewlab/overlay-backtest/internal/types"

// MicrostructureParams holds the empirically calibrated skew and spread
// figures for one volatility bucket. Calibrated against 2024 IBIT option
// prints for LOW/MID; HIGH and EXTREME are stress extrapolations.
type MicrostructureParams struct {
	// SkewPut90 is the volatility premium OTM puts carry over ATM.
	SkewPut90 float64
	// SpreadATM is the bid/ask spread fraction (spread / mid) for ATM contracts.
	SpreadATM float64
	// SpreadOTM is the spread fraction for everything outside the ATM band.
	SpreadOTM float64
}

var microstructureTable = map[types.VolBucket]MicrostructureParams{
	types.VolBucketLow:     {SkewPut90: 0.0359, SpreadATM: 0.0244, SpreadOTM: 0.0455},
	types.VolBucketMid:     {SkewPut90: 0.0101, SpreadATM: 0.0396, SpreadOTM: 0.0635},
	types.VolBucketHigh:    {SkewPut90: 0.0450, SpreadATM: 0.0600, SpreadOTM: 0.1000},
	types.VolBucketExtreme: {SkewPut90: 0.0800, SpreadATM: 0.1000, SpreadOTM: 0.2000},
}

// normalizeVol tolerates percent-form inputs (55 meaning 55%) by scaling
// anything above 2.0 down by 100.
func normalizeVol(vol float64) float64 {
	if vol > 2.0 {
		return vol / 100.0
	}

	return vol
}

// BucketForVol maps a volatility index level to its microstructure bucket.
func BucketForVol(vol float64) types.VolBucket {
	v := normalizeVol(vol)

	switch {
	case v < 0.50:
		return types.VolBucketLow
	case v < 0.70:
		return types.VolBucketMid
	case v < 0.90:
		return types.VolBucketHigh
	default:
		return types.VolBucketExtreme
	}
}

// ParamsForVol returns the microstructure parameters for the bucket the
// given volatility level falls into.
func ParamsForVol(vol float64) MicrostructureParams {
	return microstructureTable[BucketForVol(vol)]
}

// DynamicSkew maps the current implied-vol level to an additive volatility
// premium for OTM puts. The premium grows once the market is past the panic
// threshold: the more fear, the steeper the put wing.
func DynamicSkew(vol float64) float64 {
	const (
		baseSkew       = 0.02
		panicThreshold = 0.60
		panicFactor    = 0.20
	)

	v := normalizeVol(vol)
	panicPremium := max(0.0, (v-panicThreshold)*panicFactor)

	return baseSkew + panicPremium
}
