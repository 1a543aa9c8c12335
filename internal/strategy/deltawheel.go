package strategy

import (
	"fmt"

	"github.com/skewlab/overlay-backtest/internal/pricing"
	"github.com/skewlab/overlay-backtest/internal/regime"
	"github.com/skewlab/overlay-backtest/internal/types"
)

// deltaTargets are the per-regime delta parameters of the adaptive wheel.
type deltaTargets struct {
	put  float64
	call float64
}

// DeltaWheel is the regime-adaptive wheel. Strikes are delta-targeted
// instead of fixed-moneyness, and the regime signal is computed privately
// over a per-instance window in Prepare, so several instances with different
// windows can run side by side for sensitivity analysis.
//
// Per-regime behavior:
//
//	Low    buy and hold the underlying, sell nothing
//	Normal sell -0.30 puts / +0.30 calls
//	High   sell -0.15 puts / +0.30 calls
type DeltaWheel struct {
	pricer       *pricing.HybridEngine
	days         int
	regimeWindow int
	targets      map[types.RegimeLabel]deltaTargets

	labels []types.RegimeLabel
	step   int
	stage  WheelStage
}

// NewDeltaWheel creates a delta-targeted wheel with its own regime window.
func NewDeltaWheel(pricer *pricing.HybridEngine, days, regimeWindow int) *DeltaWheel {
	return &DeltaWheel{
		pricer:       pricer,
		days:         days,
		regimeWindow: regimeWindow,
		targets: map[types.RegimeLabel]deltaTargets{
			types.RegimeNormal: {put: -0.30, call: 0.30},
			types.RegimeHigh:   {put: -0.15, call: 0.30},
		},
		stage: WheelStageCSP,
	}
}

func (s *DeltaWheel) Name() string {
	return fmt.Sprintf("SmartWheel(W%d)", s.regimeWindow)
}

// Prepare computes the private regime signal over the instance window. The
// cold start is shortened relative to the shared detector so narrow windows
// still produce early labels.
func (s *DeltaWheel) Prepare(rows []types.MarketData) error {
	detector := regime.NewDetector()
	detector.Window = s.regimeWindow
	detector.MinPeriods = 60

	values := make([]float64, len(rows))
	for i, row := range rows {
		values[i] = row.Sigma
	}

	labels, err := detector.Annotate(values)
	if err != nil {
		return err
	}

	s.labels = labels
	s.step = 0

	return nil
}

func (s *DeltaWheel) Settle(pos types.Position, spot float64, acct *Account) {
	s.stage = settlePhysical(pos, spot, acct, s.stage)
}

func (s *DeltaWheel) Decide(row types.MarketData, acct *Account) error {
	label := types.RegimeNormal
	if s.step < len(s.labels) {
		label = s.labels[s.step]
	}
	s.step++

	if acct.HasOpenPosition() {
		return nil
	}

	if label == types.RegimeLow {
		// Pure long exposure: convert cash to spot and sell no calls
		// against it, so an upside run is never capped.
		if s.stage == WheelStageCSP && acct.Cash > minSpotCash {
			acct.BuySpot(row.Spot, 1.0)
			s.stage = WheelStageCC
		}

		return nil
	}

	targets, ok := s.targets[label]
	if !ok {
		return nil
	}

	T := float64(s.days) / 365.0

	switch s.stage {
	case WheelStageCSP:
		if acct.Cash <= 0 {
			return nil
		}

		strike := s.pricer.StrikeForDelta(row.Date, row.Spot, T, row.Rate, row.Sigma,
			targets.put, types.OptionTypePut)
		if strike <= 0 {
			return nil
		}

		size := acct.Cash / strike

		_, err := sellOption(s.pricer, row, strike, s.days, size, types.OptionTypePut, acct)

		return err

	case WheelStageCC:
		if acct.Holdings < dustThreshold {
			s.stage = WheelStageCSP

			return nil
		}

		strike := s.pricer.StrikeForDelta(row.Date, row.Spot, T, row.Rate, row.Sigma,
			targets.call, types.OptionTypeCall)
		if strike <= 0 {
			return nil
		}

		_, err := sellOption(s.pricer, row, strike, s.days, acct.Holdings, types.OptionTypeCall, acct)

		return err
	}

	return nil
}
