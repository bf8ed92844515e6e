package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",
	CodeConfigUnknownKey:   "Unknown configuration key",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError:  "Internal server error",
	CodeUnknownError:   "An unknown error occurred",
	CodeFatalInvariant: "Internal invariant violated",

	// Transport
	CodeTransportTimeout:      "Network operation timed out",
	CodeTransportDisconnected: "Connection lost",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Exchange REST errors
	CodeExchangeConnectionFailed: "Failed to connect to exchange API",
	CodeExchangeAPIError:         "Exchange API error",
	CodeExchangeRateLimited:      "Exchange rate limit exceeded",
	CodeOrderbookFetchFailed:     "Failed to fetch orderbook",

	// Order-book data errors
	CodeInvalidOrderbook:     "Invalid orderbook data",
	CodeDataCrossedBook:      "Order book is crossed",
	CodeDataChecksumMismatch: "Order book checksum mismatch",
	CodeDataMalformed:        "Malformed market data message",
	CodeDataStale:            "Order book data is stale",
	CodeDataMissing:          "No cached data for pair",

	// Arbitrage evaluation errors
	CodePriceCalculationFailed: "Price calculation failed",
	CodeInsufficientLiquidity:  "Insufficient liquidity for trade size",
	CodeInvalidTradeSize:       "Invalid trade size",
	CodeInvalidPath:            "Path does not form a closed cycle",

	// Risk gate errors
	CodeRiskRejected:         "Opportunity rejected by risk gate",
	CodePortfolioUnavailable: "Portfolio unavailable (public-only mode)",
	CodeKillSwitchActive:     "Trading disabled by kill-switch",

	// Executor / order lifecycle errors
	CodeOrderRejected:       "Exchange rejected order placement",
	CodeOrderTimeout:        "Order did not reach terminal state before timeout",
	CodePartialFill:         "Leg filled below dust threshold at timeout",
	CodeInsufficientBalance: "Insufficient free balance for requested stake",

	// Cache errors
	CodeCacheMiss:    "Cache miss",
	CodeCacheExpired: "Cache entry expired",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
