package analytics

import (
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/moznion/go-optional"
	"github.com/skewlab/overlay-backtest/internal/types"
	"gopkg.in/yaml.v3"
)

// Summary is the per-strategy performance report serialized into the
// results folder.
type Summary struct {
	Strategy      string   `yaml:"strategy"`
	TotalReturn   *float64 `yaml:"total_return,omitempty"`
	CAGR          *float64 `yaml:"cagr,omitempty"`
	AnnualizedVol *float64 `yaml:"annualized_vol,omitempty"`
	Sharpe        *float64 `yaml:"sharpe,omitempty"`
	Sortino       *float64 `yaml:"sortino,omitempty"`
	MaxDrawdown   *float64 `yaml:"max_drawdown,omitempty"`
	Calmar        *float64 `yaml:"calmar,omitempty"`
	WinRate       *float64 `yaml:"win_rate,omitempty"`

	Regimes map[string]RegimeStats `yaml:"regimes,omitempty"`
}

// RegimeStats is performance conditioned on the regime label active on each
// day of the run.
type RegimeStats struct {
	Days             int     `yaml:"days"`
	AnnualizedReturn float64 `yaml:"annualized_return"`
	AnnualizedVol    float64 `yaml:"annualized_vol"`
}

// ComputeSummary builds the full report for one equity curve.
func ComputeSummary(name string, dates []time.Time, values []float64) Summary {
	return Summary{
		Strategy:      name,
		TotalReturn:   toPtr(TotalReturn(values)),
		CAGR:          toPtr(CAGR(dates, values)),
		AnnualizedVol: toPtr(AnnualizedVol(values)),
		Sharpe:        toPtr(Sharpe(values)),
		Sortino:       toPtr(Sortino(values)),
		MaxDrawdown:   toPtr(MaxDrawdown(values)),
		Calmar:        toPtr(Calmar(dates, values)),
		WinRate:       toPtr(WinRate(values)),
	}
}

// ComputeHistorySummary is ComputeSummary over a recorded equity history,
// plus regime-conditioned stats from the per-day labels.
func ComputeHistorySummary(name string, history []types.EquityPoint) Summary {
	dates := make([]time.Time, len(history))
	values := make([]float64, len(history))

	for i, point := range history {
		dates[i] = point.Date
		values[i] = point.Equity
	}

	summary := ComputeSummary(name, dates, values)
	summary.Regimes = regimeStats(history)

	return summary
}

// regimeStats groups daily returns by the regime label of the day they were
// realized on.
func regimeStats(history []types.EquityPoint) map[string]RegimeStats {
	if len(history) < 2 {
		return nil
	}

	grouped := make(map[types.RegimeLabel][]float64)

	for i := 1; i < len(history); i++ {
		if history[i-1].Equity == 0 {
			continue
		}

		ret := history[i].Equity/history[i-1].Equity - 1
		grouped[history[i].Regime] = append(grouped[history[i].Regime], ret)
	}

	stats := make(map[string]RegimeStats, len(grouped))

	for label, returns := range grouped {
		stats[string(label)] = RegimeStats{
			Days:             len(returns),
			AnnualizedReturn: mean(returns) * tradingDaysPerYear,
			AnnualizedVol:    sampleStd(returns) * math.Sqrt(tradingDaysPerYear),
		}
	}

	return stats
}

// WriteSummaries serializes all strategy reports into one YAML file.
func WriteSummaries(summaries []Summary, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(summaries)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func toPtr(opt optional.Option[float64]) *float64 {
	if opt.IsNone() {
		return nil
	}

	value := opt.Unwrap()

	return &value
}
