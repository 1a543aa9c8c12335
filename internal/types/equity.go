package types

import "time"

// EquityPoint is one daily record of a strategy account's marked value.
type EquityPoint struct {
	Date   time.Time `yaml:"date" csv:"date"`
	Equity float64   `yaml:"equity" csv:"equity"`
	Spot   float64   `yaml:"spot" csv:"spot"`
	// VolGap is carried for regime-conditioned diagnostics.
	VolGap float64 `yaml:"vol_gap" csv:"vol_gap"`
	// Regime is the volatility state the account saw on this day.
	Regime RegimeLabel `yaml:"regime" csv:"regime"`
	// Cash and Holdings break the equity down for debugging.
	Cash     float64 `yaml:"cash" csv:"cash"`
	Holdings float64 `yaml:"holdings" csv:"holdings"`
}
