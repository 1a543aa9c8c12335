// Package pricing implements closed-form option valuation and the hybrid
// market pricing engine that layers empirical microstructure (put skew,
// bid/ask spread, option-chain lookup) on top of it.
package pricing

import (
	"math"

	"github.com/skewlab/overlay-backtest/internal/types"
)

const daysPerYear = 365.0

// NormCDF is the standard normal cumulative distribution function.
func NormCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// NormPPF is the standard normal quantile function (inverse CDF),
// computed with the Acklam rational approximation. Accurate to ~1e-9,
// which is far below the tolerances the strike inversion needs.
func NormPPF(p float64) float64 {
	if p <= 0 || p >= 1 {
		return math.NaN()
	}

	a := []float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := []float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	c := []float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := []float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}

	const pLow = 0.02425

	var q, r, x float64

	switch {
	case p < pLow:
		q = math.Sqrt(-2 * math.Log(p))
		x = (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p <= 1-pLow:
		q = p - 0.5
		r = q * q
		x = (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	default:
		q = math.Sqrt(-2 * math.Log(1-p))
		x = -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	}

	// One Halley refinement step tightens the approximation.
	e := NormCDF(x) - p
	u := e * math.Sqrt(2*math.Pi) * math.Exp(x*x/2)
	x = x - u/(1+x*u/2)

	return x
}

// Intrinsic returns the exercise payoff of an option at the given spot.
func Intrinsic(spot, strike float64, optType types.OptionType) float64 {
	if optType == types.OptionTypeCall {
		return math.Max(0, spot-strike)
	}

	return math.Max(0, strike-spot)
}

// BSMPrice returns the Black-Scholes-Merton fair value of a European option
// with continuous compounding and no dividends. T is time to expiry in years.
// Degenerate inputs (T <= 0 or sigma <= 0) return intrinsic value instead of
// evaluating the formula.
func BSMPrice(spot, strike, T, rate, sigma float64, optType types.OptionType) float64 {
	if T <= 0 || sigma <= 0 {
		return Intrinsic(spot, strike, optType)
	}

	sqrtT := math.Sqrt(T)
	d1 := (math.Log(spot/strike) + (rate+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	if optType == types.OptionTypeCall {
		return spot*NormCDF(d1) - strike*math.Exp(-rate*T)*NormCDF(d2)
	}

	return strike*math.Exp(-rate*T)*NormCDF(-d2) - spot*NormCDF(-d1)
}

// BSMPriceDays is BSMPrice with time to expiry in calendar days.
func BSMPriceDays(spot, strike float64, days int, rate, sigma float64, optType types.OptionType) float64 {
	return BSMPrice(spot, strike, float64(days)/daysPerYear, rate, sigma, optType)
}

// Delta returns the BSM delta of an option. Calls are in (0, 1), puts in (-1, 0).
func Delta(spot, strike, T, rate, sigma float64, optType types.OptionType) float64 {
	if T <= 0 || sigma <= 0 {
		// Degenerate case: delta collapses to the exercise indicator.
		if optType == types.OptionTypeCall {
			if spot > strike {
				return 1
			}

			return 0
		}

		if spot < strike {
			return -1
		}

		return 0
	}

	d1 := (math.Log(spot/strike) + (rate+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))

	if optType == types.OptionTypeCall {
		return NormCDF(d1)
	}

	return NormCDF(d1) - 1
}

// StrikeForDelta solves for the strike whose BSM delta equals targetDelta,
// by inverting the cumulative-normal relationship in closed form:
//
//	K = S * exp((r + sigma^2/2)*T - sigma*sqrt(T)*ppf(p))
//
// where p is the exercise probability implied by the target delta. The
// probability is clipped to (0.001, 0.999) to avoid infinite strikes at the
// distribution tails. Puts carry negative target deltas.
func StrikeForDelta(spot, T, rate, sigma, targetDelta float64, optType types.OptionType) float64 {
	var p float64
	if optType == types.OptionTypeCall {
		p = targetDelta
	} else {
		// Put delta = N(d1) - 1, so N(d1) = 1 + delta.
		p = 1 + targetDelta
	}

	p = math.Min(0.999, math.Max(0.001, p))

	d1 := NormPPF(p)

	return spot * math.Exp((rate+0.5*sigma*sigma)*T-sigma*math.Sqrt(T)*d1)
}
