package types

// TradeAction is the direction of a requested quote.
type TradeAction string

const (
	TradeActionBuy  TradeAction = "buy"
	TradeActionSell TradeAction = "sell"
)

// VolBucket is the coarse volatility bucket used by the microstructure
// parameter table. It is distinct from RegimeLabel: buckets are fixed
// absolute thresholds on the vol index, not adaptive percentiles.
type VolBucket string

const (
	VolBucketLow     VolBucket = "LOW"
	VolBucketMid     VolBucket = "MID"
	VolBucketHigh    VolBucket = "HIGH"
	VolBucketExtreme VolBucket = "EXTREME"
)

// MarketQuote is the result of a single pricing call. Produced fresh per
// call, never persisted.
type MarketQuote struct {
	// ExecutionPrice is the spread-adjusted fill price, the number that hits cash.
	ExecutionPrice float64
	// MidPrice is the theoretical (or accepted empirical) mid, used for mark-to-market.
	MidPrice float64
	// IVUsed is the volatility actually priced with, including any put skew premium.
	IVUsed float64
	// SpreadUsed is the full bid/ask spread fraction applied.
	SpreadUsed float64
	// Bucket is the microstructure vol bucket the spread came from.
	Bucket VolBucket
	// Empirical is true when the mid came from the option-chain table rather
	// than the theoretical model.
	Empirical bool
}
