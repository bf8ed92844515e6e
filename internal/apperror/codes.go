package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeConfigUnknownKey   Code = "CONFIG_UNKNOWN_KEY"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
	CodeFatalInvariant Code = "FATAL_INVARIANT_VIOLATION"
)

// Transport and exchange gateway errors
const (
	CodeTransportTimeout      Code = "TRANSPORT_TIMEOUT"
	CodeTransportDisconnected Code = "TRANSPORT_DISCONNECTED"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketReconnecting    Code = "WEBSOCKET_RECONNECTING"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Exchange REST errors
	CodeExchangeConnectionFailed Code = "EXCHANGE_CONNECTION_FAILED"
	CodeExchangeAPIError         Code = "EXCHANGE_API_ERROR"
	CodeExchangeRateLimited      Code = "EXCHANGE_RATE_LIMITED"
	CodeOrderbookFetchFailed     Code = "ORDERBOOK_FETCH_FAILED"
)

// Order-book data errors
const (
	CodeInvalidOrderbook     Code = "INVALID_ORDERBOOK"
	CodeDataCrossedBook      Code = "DATA_CROSSED_BOOK"
	CodeDataChecksumMismatch Code = "DATA_CHECKSUM_MISMATCH"
	CodeDataMalformed        Code = "DATA_MALFORMED"
	CodeDataStale            Code = "DATA_STALE"
	CodeDataMissing          Code = "DATA_MISSING"
)

// Arbitrage evaluation errors
const (
	CodePriceCalculationFailed Code = "PRICE_CALCULATION_FAILED"
	CodeInsufficientLiquidity  Code = "INSUFFICIENT_LIQUIDITY"
	CodeInvalidTradeSize       Code = "INVALID_TRADE_SIZE"
	CodeInvalidPath            Code = "INVALID_PATH"
)

// Risk gate errors
const (
	CodeRiskRejected        Code = "RISK_REJECTED"
	CodePortfolioUnavailable Code = "PORTFOLIO_UNAVAILABLE"
	CodeKillSwitchActive    Code = "KILL_SWITCH_ACTIVE"
)

// Executor / order lifecycle errors
const (
	CodeOrderRejected   Code = "ORDER_REJECTED"
	CodeOrderTimeout    Code = "ORDER_TIMEOUT"
	CodePartialFill     Code = "PARTIAL_FILL"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
)

// Cache errors
const (
	CodeCacheMiss    Code = "CACHE_MISS"
	CodeCacheExpired Code = "CACHE_EXPIRED"
)

// Circuit breaker errors
const (
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
