// Package regime classifies market volatility state from a daily vol series
// using adaptive rolling-percentile thresholds with hysteresis.
package regime

import (
	"math"
	"sort"

	"github.com/skewlab/overlay-backtest/internal/types"
	"github.com/skewlab/overlay-backtest/pkg/errors"
)

// Thresholds are the four rolling quantile levels computed for one row.
// NaN values mean the trailing window had fewer than MinPeriods samples.
type Thresholds struct {
	LowEnter  float64
	LowExit   float64
	HighEnter float64
	HighExit  float64
}

// Detector assigns Low/Normal/High labels with hysteresis: the percentile
// needed to enter a state differs from the one needed to leave it, which
// damps the flickering a single-threshold classifier shows on noisy vol data.
//
// The quantile window is strictly trailing (ends at the current row), so the
// label sequence is deterministic and replayable with no look-ahead.
type Detector struct {
	// Window is the trailing quantile window length in observations.
	Window int
	// MinPeriods is the minimum sample count before quantiles are valid;
	// labels are forced to Normal until it is reached.
	MinPeriods int
	// Percentile levels. Enter thresholds must be strictly beyond their
	// exit counterparts for the hysteresis band to exist.
	HighEnter float64
	HighExit  float64
	LowEnter  float64
	LowExit   float64
}

// NewDetector returns a detector with the production defaults: a one-year
// window, 90-observation cold start, and a 33/40 - 67/60 hysteresis band.
func NewDetector() *Detector {
	return &Detector{
		Window:     365,
		MinPeriods: 90,
		HighEnter:  0.67,
		HighExit:   0.60,
		LowEnter:   0.33,
		LowExit:    0.40,
	}
}

// Validate checks the hysteresis band ordering.
func (d *Detector) Validate() error {
	if d.Window <= 0 || d.MinPeriods <= 0 || d.MinPeriods > d.Window {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"invalid window configuration: window=%d min_periods=%d", d.Window, d.MinPeriods)
	}

	if d.HighExit >= d.HighEnter {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"high_exit (%.2f) must be below high_enter (%.2f)", d.HighExit, d.HighEnter)
	}

	if d.LowExit <= d.LowEnter {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"low_exit (%.2f) must be above low_enter (%.2f)", d.LowExit, d.LowEnter)
	}

	return nil
}

// Annotate runs the hysteresis state machine over the vol series and returns
// one label per input value.
func (d *Detector) Annotate(values []float64) ([]types.RegimeLabel, error) {
	labels, _, err := d.AnnotateWithThresholds(values)

	return labels, err
}

// AnnotateWithThresholds is Annotate plus the per-row quantile thresholds,
// for diagnostics and plotting.
func (d *Detector) AnnotateWithThresholds(values []float64) ([]types.RegimeLabel, []Thresholds, error) {
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}

	labels := make([]types.RegimeLabel, len(values))
	thresholds := make([]Thresholds, len(values))
	state := types.RegimeNormal

	window := make([]float64, 0, d.Window)

	for i, val := range values {
		// Trailing window ending at the current row.
		start := 0
		if i+1 > d.Window {
			start = i + 1 - d.Window
		}

		window = append(window[:0], values[start:i+1]...)

		if i < d.MinPeriods {
			// Cold start: force Normal regardless of value.
			thresholds[i] = Thresholds{
				LowEnter: math.NaN(), LowExit: math.NaN(),
				HighEnter: math.NaN(), HighExit: math.NaN(),
			}
			labels[i] = types.RegimeNormal
			state = types.RegimeNormal

			continue
		}

		sort.Float64s(window)

		th := Thresholds{
			LowEnter:  quantileSorted(window, d.LowEnter),
			LowExit:   quantileSorted(window, d.LowExit),
			HighEnter: quantileSorted(window, d.HighEnter),
			HighExit:  quantileSorted(window, d.HighExit),
		}
		thresholds[i] = th

		switch state {
		case types.RegimeNormal:
			if val > th.HighEnter {
				state = types.RegimeHigh
			} else if val < th.LowEnter {
				state = types.RegimeLow
			}
		case types.RegimeHigh:
			// Leave High only below the lower exit threshold.
			if val < th.HighExit {
				state = types.RegimeNormal
			}
		case types.RegimeLow:
			// Leave Low only above the higher exit threshold.
			if val > th.LowExit {
				state = types.RegimeNormal
			}
		}

		labels[i] = state
	}

	return labels, thresholds, nil
}

// AnnotateSeries labels a market data slice in place from its Sigma column.
func (d *Detector) AnnotateSeries(rows []types.MarketData) error {
	values := make([]float64, len(rows))
	for i, row := range rows {
		values[i] = row.Sigma
	}

	labels, err := d.Annotate(values)
	if err != nil {
		return err
	}

	for i := range rows {
		rows[i].Regime = labels[i]
	}

	return nil
}

// quantileSorted computes the linearly interpolated q-quantile of an
// ascending-sorted slice.
func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}

	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))

	if lo == hi {
		return sorted[lo]
	}

	frac := pos - float64(lo)

	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
