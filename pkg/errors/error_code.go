package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPosition      ErrorCode = 102
	ErrCodeInvalidQuote         ErrorCode = 103
	ErrCodeInvalidDelta         ErrorCode = 104
	ErrCodeInsufficientData     ErrorCode = 105
	ErrCodeInvalidVersion       ErrorCode = 106

	// Data errors (200-299)
	ErrCodeDataNotFound      ErrorCode = 200
	ErrCodeQueryFailed       ErrorCode = 201
	ErrCodeMissingColumn     ErrorCode = 202
	ErrCodeNonMonotonicDates ErrorCode = 203
	ErrCodeNonPositivePrice  ErrorCode = 204
	ErrCodeEmptySeries       ErrorCode = 205

	// Pricing errors (300-399)
	ErrCodeChainUnavailable ErrorCode = 300
	ErrCodeChainLookupFail  ErrorCode = 301
	ErrCodePricingFailed    ErrorCode = 302

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound     ErrorCode = 400
	ErrCodeStrategyConfigError  ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402

	// Backtest errors (500-599)
	ErrCodeBacktestStateNil     ErrorCode = 500
	ErrCodeBacktestInitFailed   ErrorCode = 501
	ErrCodeBacktestNoStrategies ErrorCode = 502
	ErrCodeBacktestNoData       ErrorCode = 503
	ErrCodeBacktestNoResultsDir ErrorCode = 504
)
