package types

import (
	"time"

	"github.com/skewlab/overlay-backtest/pkg/errors"
)

// RegimeLabel is the discrete market volatility state assigned to a trading day.
type RegimeLabel string

const (
	RegimeLow    RegimeLabel = "Low"
	RegimeNormal RegimeLabel = "Normal"
	RegimeHigh   RegimeLabel = "High"
	// RegimeExtreme is reserved for the microstructure vol bucketing; the
	// hysteresis detector only emits Low/Normal/High.
	RegimeExtreme RegimeLabel = "Extreme"
)

// MarketData is one daily row of the backtest input series.
type MarketData struct {
	// Date is the calendar day. Rows are strictly ascending, one per day.
	Date time.Time `yaml:"date" csv:"date"`
	// Spot is the underlying close price.
	Spot float64 `yaml:"spot" csv:"spot" validate:"gt=0"`
	// Rate is the annualized risk-free rate as a decimal (0.03 = 3%).
	Rate float64 `yaml:"rate" csv:"rate"`
	// Sigma is the implied volatility index as a decimal (0.55 = 55%).
	Sigma float64 `yaml:"sigma" csv:"sigma"`
	// RealizedVol is the trailing 30-day realized volatility estimate.
	RealizedVol float64 `yaml:"realized_vol" csv:"realized_vol"`
	// VolGap is Sigma minus RealizedVol. Positive means implied vol is rich.
	VolGap float64 `yaml:"vol_gap" csv:"vol_gap"`
	// Regime is the detector-assigned volatility state for this day.
	Regime RegimeLabel `yaml:"regime" csv:"regime"`
}

// ValidateSeries checks the invariants the backtest depends on: non-empty,
// strictly increasing dates, and strictly positive spot prices. Violations are
// fatal data errors per the run that detects them.
func ValidateSeries(rows []MarketData) error {
	if len(rows) == 0 {
		return errors.New(errors.ErrCodeEmptySeries, "market data series is empty")
	}

	for i, row := range rows {
		if row.Spot <= 0 {
			return errors.Newf(errors.ErrCodeNonPositivePrice,
				"non-positive spot price %.4f at %s", row.Spot, row.Date.Format("2006-01-02"))
		}

		if i > 0 && !rows[i-1].Date.Before(row.Date) {
			return errors.Newf(errors.ErrCodeNonMonotonicDates,
				"dates not strictly increasing at %s", row.Date.Format("2006-01-02"))
		}
	}

	return nil
}
