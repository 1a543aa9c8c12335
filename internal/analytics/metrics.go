// Package analytics computes performance statistics over equity curves
// produced by the backtest runner. Metrics that are undefined for a given
// series (too short, zero variance, non-positive equity) return None rather
// than a sentinel value.
package analytics

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
)

const tradingDaysPerYear = 365.0

// DailyReturns computes simple percentage returns between consecutive
// equity values. The result is one element shorter than the input.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(values)-1)

	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns = append(returns, 0)

			continue
		}

		returns = append(returns, values[i]/values[i-1]-1)
	}

	return returns
}

// TotalReturn is final equity over initial equity, minus one.
func TotalReturn(values []float64) optional.Option[float64] {
	if len(values) < 2 || values[0] <= 0 {
		return optional.None[float64]()
	}

	return optional.Some(values[len(values)-1]/values[0] - 1)
}

// CAGR is the compound annual growth rate over the date span of the series.
// A wiped-out account (final equity <= 0) reports -100%.
func CAGR(dates []time.Time, values []float64) optional.Option[float64] {
	if len(values) < 2 || len(dates) != len(values) || values[0] <= 0 {
		return optional.None[float64]()
	}

	days := dates[len(dates)-1].Sub(dates[0]).Hours() / 24
	if days <= 0 {
		return optional.None[float64]()
	}

	final := values[len(values)-1]
	if final <= 0 {
		return optional.Some(-1.0)
	}

	return optional.Some(math.Pow(final/values[0], tradingDaysPerYear/days) - 1)
}

// AnnualizedVol is the sample standard deviation of daily returns scaled to
// one year.
func AnnualizedVol(values []float64) optional.Option[float64] {
	returns := DailyReturns(values)
	if len(returns) < 2 {
		return optional.None[float64]()
	}

	return optional.Some(sampleStd(returns) * math.Sqrt(tradingDaysPerYear))
}

// Sharpe is the annualized mean daily return over annualized volatility.
func Sharpe(values []float64) optional.Option[float64] {
	returns := DailyReturns(values)
	if len(returns) < 2 {
		return optional.None[float64]()
	}

	vol := sampleStd(returns) * math.Sqrt(tradingDaysPerYear)
	if vol == 0 {
		return optional.None[float64]()
	}

	return optional.Some(mean(returns) * tradingDaysPerYear / vol)
}

// Sortino is Sharpe with only downside deviations in the denominator.
func Sortino(values []float64) optional.Option[float64] {
	returns := DailyReturns(values)
	if len(returns) < 2 {
		return optional.None[float64]()
	}

	var downside []float64

	for _, ret := range returns {
		if ret < 0 {
			downside = append(downside, ret)
		}
	}

	if len(downside) < 2 {
		return optional.None[float64]()
	}

	downsideVol := sampleStd(downside) * math.Sqrt(tradingDaysPerYear)
	if downsideVol == 0 {
		return optional.None[float64]()
	}

	return optional.Some(mean(returns) * tradingDaysPerYear / downsideVol)
}

// MaxDrawdown is the largest peak-to-trough equity loss, as a positive
// fraction.
func MaxDrawdown(values []float64) optional.Option[float64] {
	if len(values) < 2 {
		return optional.None[float64]()
	}

	peak := values[0]
	worst := 0.0

	for _, value := range values {
		if value > peak {
			peak = value
		}

		if peak > 0 {
			drawdown := (peak - value) / peak
			if drawdown > worst {
				worst = drawdown
			}
		}
	}

	return optional.Some(worst)
}

// Calmar is CAGR over maximum drawdown.
func Calmar(dates []time.Time, values []float64) optional.Option[float64] {
	cagr := CAGR(dates, values)
	drawdown := MaxDrawdown(values)

	if cagr.IsNone() || drawdown.IsNone() || drawdown.Unwrap() == 0 {
		return optional.None[float64]()
	}

	return optional.Some(cagr.Unwrap() / drawdown.Unwrap())
}

// WinRate is the fraction of days with a positive return.
func WinRate(values []float64) optional.Option[float64] {
	returns := DailyReturns(values)
	if len(returns) == 0 {
		return optional.None[float64]()
	}

	wins := 0

	for _, ret := range returns {
		if ret > 0 {
			wins++
		}
	}

	return optional.Some(float64(wins) / float64(len(returns)))
}

// RollingSharpe computes the annualized Sharpe over a trailing window of
// daily returns. Entries before the window fills are zero, so the series
// aligns with the return series for plotting.
func RollingSharpe(values []float64, window int) []float64 {
	returns := DailyReturns(values)
	result := make([]float64, len(returns))

	if window <= 1 {
		return result
	}

	for i := window - 1; i < len(returns); i++ {
		slice := returns[i-window+1 : i+1]

		std := sampleStd(slice)
		if std == 0 {
			continue
		}

		result[i] = mean(slice) / std * math.Sqrt(tradingDaysPerYear)
	}

	return result
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// sampleStd is the ddof=1 standard deviation.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)

	sum := 0.0
	for _, v := range values {
		diff := v - m
		sum += diff * diff
	}

	return math.Sqrt(sum / float64(len(values)-1))
}
