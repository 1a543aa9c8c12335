package pricing

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/skewlab/overlay-backtest/internal/logger"
	"github.com/skewlab/overlay-backtest/internal/types"
	"go.uber.org/zap"
)

const (
	// atmBandLow/High bound the moneyness range treated as at-the-money.
	atmBandLow  = 0.98
	atmBandHigh = 1.02

	// Circuit breaker: an empirical price is rejected only when it deviates
	// from theoretical by more than 50% relative AND more than $0.50
	// absolute. The dual condition keeps cheap deep-OTM contracts (where a
	// few cents is a large percentage) from tripping the breaker.
	breakerRelTolerance = 0.50
	breakerAbsTolerance = 0.50
)

// ChainQuote is one empirical option record matched from the chain table.
type ChainQuote struct {
	Strike float64
	Price  float64
	Delta  float64
}

// ChainLookup resolves empirical option quotes by date. Implementations are
// read-only and safe for concurrent use. A None result is a miss, never an
// error condition.
type ChainLookup interface {
	// NearestStrike returns the chain record closest to the target strike
	// for the given date and option type, or None when no record is within
	// 5% of the target.
	NearestStrike(date time.Time, strike float64, optType types.OptionType) (optional.Option[ChainQuote], error)
	// NearestDelta returns the chain record whose delta is closest to the
	// target. Chains that store magnitude-only deltas are matched by
	// absolute value when the target is negative.
	NearestDelta(date time.Time, targetDelta float64, optType types.OptionType) (optional.Option[ChainQuote], error)
}

// SkewFunc maps the current implied-vol level to an additive vol premium
// applied to OTM puts.
type SkewFunc func(vol float64) float64

// BucketSkew is a SkewFunc reading the calibrated per-bucket put skew from
// the microstructure table instead of the smooth dynamic curve.
func BucketSkew(vol float64) float64 {
	return ParamsForVol(vol).SkewPut90
}

// HybridEngine prices options from a theoretical core with empirical
// corrections: put-skew vol premium, regime-conditioned bid/ask spread, and
// an optional chain lookup guarded by a sanity-check circuit breaker.
//
// The chain table is injected at construction and treated as immutable for
// the duration of a run, so one engine can serve concurrent strategy runs.
type HybridEngine struct {
	chain optional.Option[ChainLookup]
	skew  SkewFunc
	log   *logger.Logger
}

// NewHybridEngine creates a pricing engine. Pass None for chain to price
// purely theoretically.
func NewHybridEngine(chain optional.Option[ChainLookup], log *logger.Logger) *HybridEngine {
	return &HybridEngine{
		chain: chain,
		skew:  DynamicSkew,
		log:   log,
	}
}

// WithSkewFunc replaces the default dynamic skew curve.
func (e *HybridEngine) WithSkewFunc(fn SkewFunc) *HybridEngine {
	e.skew = fn

	return e
}

// Quote prices one option for execution. daysToExpiry is in calendar days;
// volIndex is the current implied-vol index level used as the base sigma.
func (e *HybridEngine) Quote(date time.Time, spot, strike float64, daysToExpiry int,
	rate, volIndex float64, optType types.OptionType, action types.TradeAction,
) types.MarketQuote {
	moneyness := strike / spot

	// OTM puts carry the skew premium; calls and near/in-the-money puts
	// price off the raw index.
	iv := normalizeVol(volIndex)
	if optType == types.OptionTypePut && moneyness < atmBandLow {
		iv += e.skew(volIndex)
	}

	T := float64(daysToExpiry) / daysPerYear
	theoretical := BSMPrice(spot, strike, T, rate, iv, optType)

	mid := theoretical
	empirical := false

	if e.chain.IsSome() {
		if quote, err := e.chain.Unwrap().NearestStrike(date, strike, optType); err != nil {
			e.log.Warn("chain lookup failed, using theoretical price",
				zap.Time("date", date),
				zap.Float64("strike", strike),
				zap.Error(err),
			)
		} else if quote.IsSome() {
			mid, empirical = e.sanityCheck(theoretical, quote.Unwrap().Price, strike)
		}
	}

	params := ParamsForVol(volIndex)

	spread := params.SpreadOTM
	if moneyness >= atmBandLow && moneyness <= atmBandHigh {
		spread = params.SpreadATM
	}

	halfSpread := spread / 2

	var exec float64
	if action == types.TradeActionBuy {
		exec = mid * (1 + halfSpread)
	} else {
		exec = mid * (1 - halfSpread)
	}

	return types.MarketQuote{
		ExecutionPrice: math.Max(0, exec),
		MidPrice:       mid,
		IVUsed:         iv,
		SpreadUsed:     spread,
		Bucket:         BucketForVol(volIndex),
		Empirical:      empirical,
	}
}

// sanityCheck decides between an empirical price and the theoretical one.
// Returns the accepted mid and whether the empirical value survived.
func (e *HybridEngine) sanityCheck(theoretical, empirical, strike float64) (float64, bool) {
	absDev := math.Abs(empirical - theoretical)

	relDev := math.Inf(1)
	if theoretical > 0 {
		relDev = absDev / theoretical
	}

	if relDev > breakerRelTolerance && absDev > breakerAbsTolerance {
		e.log.Debug("empirical price rejected by circuit breaker",
			zap.Float64("strike", strike),
			zap.Float64("theoretical", theoretical),
			zap.Float64("empirical", empirical),
			zap.Float64("rel_deviation", relDev),
		)

		return theoretical, false
	}

	return empirical, true
}

// StrikeForDelta resolves a strike for a delta target, preferring the
// empirical chain for the given date and falling back to the closed-form
// inversion when no chain is loaded or no record matches.
func (e *HybridEngine) StrikeForDelta(date time.Time, spot, T, rate, vol, targetDelta float64,
	optType types.OptionType,
) float64 {
	if e.chain.IsSome() {
		quote, err := e.chain.Unwrap().NearestDelta(date, targetDelta, optType)
		if err != nil {
			e.log.Warn("chain delta lookup failed, using analytic inversion",
				zap.Time("date", date),
				zap.Float64("target_delta", targetDelta),
				zap.Error(err),
			)
		} else if quote.IsSome() {
			return quote.Unwrap().Strike
		}
	}

	return StrikeForDelta(spot, T, rate, normalizeVol(vol), targetDelta, optType)
}
