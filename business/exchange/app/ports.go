// Package app declares the Exchange Gateway contract: the abstracted
// REST+WebSocket surface every other bounded context programs against, so a
// simulated gateway can stand in during tests.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
)

// OrderSide is the side of an order being placed.
type OrderSide int

const (
	Buy OrderSide = iota
	Sell
)

func (s OrderSide) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// OrderType is always a marketable limit order in this engine, but the
// field exists so the gateway contract mirrors a real REST API's shape.
type OrderType int

const (
	LimitOrder OrderType = iota
)

// OrderStatus is the terminal-or-not state of a placed order.
type OrderStatus int

const (
	OrderOpen OrderStatus = iota
	OrderPartiallyFilled
	OrderFilled
	OrderCancelled
	OrderRejected
)

func (s OrderStatus) Terminal() bool {
	return s == OrderFilled || s == OrderCancelled || s == OrderRejected
}

// Ticker is a best bid/ask snapshot, used by the executor's pre-placement
// price read.
type Ticker struct {
	Pair      marketdomain.Pair
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Timestamp time.Time
}

// OrderReport is the gateway's view of an order's current state.
type OrderReport struct {
	OrderID     string
	Pair        marketdomain.Pair
	Side        OrderSide
	Status      OrderStatus
	FilledSize  decimal.Decimal
	AvgPrice    decimal.Decimal
	RequestedAt time.Time
	UpdatedAt   time.Time
}

// Gateway is the exchange-agnostic surface the rest of the engine depends
// on. A concrete adapter (infra.RESTGateway + infra.StreamClient) implements
// it against a real venue; infra.Simulated implements it in memory, but the
// exchange module always wires the REST+WS adapter.
type Gateway interface {
	// PublicOnly reports whether this gateway was constructed without
	// trading credentials; Portfolio Cache and Risk Gate both hard-reject
	// trading in that mode.
	PublicOnly() bool

	// Market data, shared by REST snapshot fallback and the feed fusion
	// layer's resubscribe path.
	GetOrderBook(ctx context.Context, pair marketdomain.Pair, depth int) (marketdomain.OrderBook, error)
	GetTicker(ctx context.Context, pair marketdomain.Pair) (Ticker, error)

	// Account state.
	GetBalance(ctx context.Context) (map[money.Asset]decimal.Decimal, error)

	// Order lifecycle.
	PlaceOrder(ctx context.Context, pair marketdomain.Pair, side OrderSide, orderType OrderType, size, price decimal.Decimal) (string, error)
	CancelOrder(ctx context.Context, pair marketdomain.Pair, orderID string) error
	GetOrderStatus(ctx context.Context, pair marketdomain.Pair, orderID string) (OrderReport, error)

	// Streaming order-book subscription; handler is invoked for every
	// snapshot/update message. Subscribe blocks until ctx is cancelled or
	// an unrecoverable error occurs, reconnecting internally.
	Subscribe(ctx context.Context, pairs []marketdomain.Pair, handler FeedHandler) error
}

// FeedEventKind distinguishes a snapshot from an incremental delta.
type FeedEventKind int

const (
	FeedSnapshot FeedEventKind = iota
	FeedDelta
	FeedDisconnected
	FeedReconnected
)

// FeedEvent is one message from the streaming order-book subscription.
type FeedEvent struct {
	Kind      FeedEventKind
	Pair      marketdomain.Pair
	Bids      []marketdomain.Level
	Asks      []marketdomain.Level
	Side      marketdomain.Side // meaningful only for FeedDelta
	Timestamp time.Time
	Checksum  *uint32 // nil if the venue did not supply one
}

// FeedHandler processes one FeedEvent. Implementations must not block for
// long; the feed client delivers events from its single reader goroutine.
type FeedHandler func(FeedEvent)
