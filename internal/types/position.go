package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/skewlab/overlay-backtest/pkg/errors"
)

type OptionType string

type PositionSide string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// Position is an open option position held by a strategy account.
// It is created by a strategy's open action, mutated only by the engine's
// daily DaysRemaining decrement, and removed at settlement.
type Position struct {
	OptionType OptionType   `yaml:"option_type" csv:"option_type" validate:"required,oneof=call put"`
	Side       PositionSide `yaml:"side" csv:"side" validate:"required,oneof=long short"`
	Strike     float64      `yaml:"strike" csv:"strike" validate:"required,gt=0"`
	// DaysRemaining is decremented once per trading day by the engine.
	DaysRemaining int `yaml:"days_remaining" csv:"days_remaining" validate:"gte=0"`
	// Size is the number of underlying-equivalent units.
	Size float64 `yaml:"size" csv:"size" validate:"required,gt=0"`
	// EntryPremium is the per-unit premium at which the position was opened.
	EntryPremium float64 `yaml:"entry_premium" csv:"entry_premium" validate:"gte=0"`
}

// NewPosition constructs a validated Position. A position that fails
// validation is a programming error in the calling strategy.
func NewPosition(optType OptionType, side PositionSide, strike float64, days int, size, entryPremium float64) (Position, error) {
	pos := Position{
		OptionType:    optType,
		Side:          side,
		Strike:        strike,
		DaysRemaining: days,
		Size:          size,
		EntryPremium:  entryPremium,
	}

	validate := validator.New()
	if err := validate.Struct(pos); err != nil {
		return Position{}, errors.Wrap(errors.ErrCodeInvalidPosition, "invalid position", err)
	}

	return pos, nil
}

// IntrinsicValue returns the per-unit exercise payoff at the given spot.
func (p *Position) IntrinsicValue(spot float64) float64 {
	if p.OptionType == OptionTypeCall {
		return max(0, spot-p.Strike)
	}

	return max(0, p.Strike-spot)
}
