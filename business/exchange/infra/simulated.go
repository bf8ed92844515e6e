package infra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/app"
	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/apperror"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
)

// Simulated is an in-memory app.Gateway: fixed books and balances seeded by
// the caller, orders filled immediately at the requested price. The
// exchange module does not construct it; it always wires the REST+WS
// Gateway.
type Simulated struct {
	mu       sync.Mutex
	books    map[string]marketdomain.OrderBook
	balances map[money.Asset]decimal.Decimal
	orders   map[string]app.OrderReport
	nextID   int
	public   bool
}

// NewSimulated returns an empty Simulated gateway. Call SeedBook/SeedBalance
// before use.
func NewSimulated(public bool) *Simulated {
	return &Simulated{
		books:    make(map[string]marketdomain.OrderBook),
		balances: make(map[money.Asset]decimal.Decimal),
		orders:   make(map[string]app.OrderReport),
		public:   public,
	}
}

// SeedBook installs a fixed order book for pair.
func (s *Simulated) SeedBook(book marketdomain.OrderBook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[book.Pair.ID()] = book
}

// SeedBalance sets the available balance for an asset.
func (s *Simulated) SeedBalance(asset money.Asset, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[asset] = amount
}

func (s *Simulated) PublicOnly() bool { return s.public }

func (s *Simulated) GetOrderBook(ctx context.Context, pair marketdomain.Pair, depth int) (marketdomain.OrderBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.books[pair.ID()]
	if !ok {
		return marketdomain.OrderBook{}, apperror.New(apperror.CodeDataMissing)
	}
	return book, nil
}

func (s *Simulated) GetTicker(ctx context.Context, pair marketdomain.Pair) (app.Ticker, error) {
	book, err := s.GetOrderBook(ctx, pair, 1)
	if err != nil {
		return app.Ticker{}, err
	}
	bid, _ := book.BestBid()
	ask, _ := book.BestAsk()
	return app.Ticker{Pair: pair, Bid: bid.Price, Ask: ask.Price, Timestamp: time.Now()}, nil
}

func (s *Simulated) GetBalance(ctx context.Context) (map[money.Asset]decimal.Decimal, error) {
	if s.public {
		return nil, apperror.New(apperror.CodeConfigUnknownKey, apperror.WithMessage("simulated gateway has no trading credentials"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[money.Asset]decimal.Decimal, len(s.balances))
	for k, v := range s.balances {
		out[k] = v
	}
	return out, nil
}

func (s *Simulated) PlaceOrder(ctx context.Context, pair marketdomain.Pair, side app.OrderSide, orderType app.OrderType, size, price decimal.Decimal) (string, error) {
	if s.public {
		return "", apperror.New(apperror.CodeConfigUnknownKey, apperror.WithMessage("simulated gateway has no trading credentials"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("sim-%d", s.nextID)
	s.orders[id] = app.OrderReport{
		OrderID:     id,
		Pair:        pair,
		Side:        side,
		Status:      app.OrderFilled,
		FilledSize:  size,
		AvgPrice:    price,
		RequestedAt: time.Now(),
		UpdatedAt:   time.Now(),
	}
	return id, nil
}

func (s *Simulated) CancelOrder(ctx context.Context, pair marketdomain.Pair, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.orders[orderID]
	if !ok {
		return apperror.New(apperror.CodeNotFound)
	}
	report.Status = app.OrderCancelled
	s.orders[orderID] = report
	return nil
}

func (s *Simulated) GetOrderStatus(ctx context.Context, pair marketdomain.Pair, orderID string) (app.OrderReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.orders[orderID]
	if !ok {
		return app.OrderReport{}, apperror.New(apperror.CodeNotFound)
	}
	return report, nil
}

// Subscribe replays the seeded books once as a snapshot, then blocks until
// ctx is cancelled; there is no live delta stream in a fixed test harness.
func (s *Simulated) Subscribe(ctx context.Context, pairs []marketdomain.Pair, handler app.FeedHandler) error {
	s.mu.Lock()
	for _, p := range pairs {
		book, ok := s.books[p.ID()]
		if !ok {
			continue
		}
		handler(app.FeedEvent{Kind: app.FeedSnapshot, Pair: p, Bids: book.Bids, Asks: book.Asks, Timestamp: time.Now()})
	}
	s.mu.Unlock()

	<-ctx.Done()
	return ctx.Err()
}
