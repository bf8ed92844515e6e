package infra

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/app"
	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/apperror"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/circuitbreaker"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/httpclient"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/ratelimit"
)

const tracerName = "github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/infra"

// RESTConfig configures a RESTGateway.
type RESTConfig struct {
	BaseURL           string
	APIKey            string
	APISecret         string
	RequestsPerMinute int
}

// RESTGateway is the REST half of the Exchange Gateway adapter: balances,
// order placement/cancellation/status, and depth snapshot fallback. It
// wraps every outbound call in a circuit breaker and a rate limiter, the
// same resilience stack the teacher repo applies around its own exchange
// client and on-chain subscriber calls.
type RESTGateway struct {
	http       httpclient.Client
	limiter    *ratelimit.Limiter
	cb         *circuitbreaker.CircuitBreaker[*httpclient.Response]
	tracer     trace.Tracer
	apiKey     string
	apiSecret  string
	publicOnly bool
}

// NewRESTGateway builds a RESTGateway. An empty APIKey/APISecret puts the
// gateway in public-only mode: market-data calls work, trading calls fail
// fast with apperror.CodeConfigUnknownKey-adjacent guard rather than ever
// reaching the wire.
func NewRESTGateway(cfg RESTConfig) (*RESTGateway, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithProviderName("exchange-rest"),
		httpclient.WithRequestTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("build exchange http client: %w", err)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 1200
	}

	return &RESTGateway{
		http:       client,
		limiter:    ratelimit.New(rpm),
		cb:         circuitbreaker.New[*httpclient.Response](circuitbreaker.DefaultConfig("exchange-rest")),
		tracer:     otel.Tracer(tracerName),
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		publicOnly: cfg.APIKey == "" || cfg.APISecret == "",
	}, nil
}

// PublicOnly implements app.Gateway.
func (g *RESTGateway) PublicOnly() bool { return g.publicOnly }

func (g *RESTGateway) requireTrading() error {
	if g.publicOnly {
		return apperror.New(apperror.CodeConfigUnknownKey,
			apperror.WithMessage("trading call attempted on a public-only gateway (no API credentials configured)"))
	}
	return nil
}

func (g *RESTGateway) do(ctx context.Context, name string, fn func(ctx context.Context) (*httpclient.Response, error)) (*httpclient.Response, error) {
	ctx, span := g.tracer.Start(ctx, "exchange.rest."+name, trace.WithAttributes(attribute.String("exchange.op", name)))
	defer span.End()

	if err := g.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeTransportTimeout, apperror.WithCause(err))
	}

	resp, err := g.cb.Execute(func() (*httpclient.Response, error) { return fn(ctx) })
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if resp.IsError() {
		span.RecordError(fmt.Errorf("status %d", resp.StatusCode))
		return resp, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithMessage(fmt.Sprintf("exchange returned status %d: %s", resp.StatusCode, resp.String())))
	}
	return resp, nil
}

func (g *RESTGateway) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(g.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// GetOrderBook implements app.Gateway.
func (g *RESTGateway) GetOrderBook(ctx context.Context, pair marketdomain.Pair, depth int) (marketdomain.OrderBook, error) {
	var out depthSnapshotResponse
	resp, err := g.do(ctx, "get_orderbook", func(ctx context.Context) (*httpclient.Response, error) {
		return g.http.NewRequest().
			SetQueryParam("symbol", pair.ID()).
			SetQueryParam("limit", strconv.Itoa(depth)).
			SetResult(&out).
			Get(ctx, "/api/v3/depth")
	})
	if err != nil {
		return marketdomain.OrderBook{}, err
	}
	if err := decodeResult(resp, &out); err != nil {
		return marketdomain.OrderBook{}, apperror.New(apperror.CodeDataMalformed, apperror.WithCause(err))
	}

	bids, err := levelsFromWire(out.Bids)
	if err != nil {
		return marketdomain.OrderBook{}, apperror.New(apperror.CodeDataMalformed, apperror.WithCause(err))
	}
	asks, err := levelsFromWire(out.Asks)
	if err != nil {
		return marketdomain.OrderBook{}, apperror.New(apperror.CodeDataMalformed, apperror.WithCause(err))
	}
	return marketdomain.ApplySnapshot(pair, bids, asks, time.Now()), nil
}

// GetTicker implements app.Gateway.
func (g *RESTGateway) GetTicker(ctx context.Context, pair marketdomain.Pair) (app.Ticker, error) {
	var out tickerResponse
	resp, err := g.do(ctx, "get_ticker", func(ctx context.Context) (*httpclient.Response, error) {
		return g.http.NewRequest().
			SetQueryParam("symbol", pair.ID()).
			SetResult(&out).
			Get(ctx, "/api/v3/ticker/bookTicker")
	})
	if err != nil {
		return app.Ticker{}, err
	}
	if err := decodeResult(resp, &out); err != nil {
		return app.Ticker{}, apperror.New(apperror.CodeDataMalformed, apperror.WithCause(err))
	}

	bid, err := decimal.NewFromString(out.BidPrice)
	if err != nil {
		return app.Ticker{}, apperror.New(apperror.CodeDataMalformed, apperror.WithCause(err))
	}
	ask, err := decimal.NewFromString(out.AskPrice)
	if err != nil {
		return app.Ticker{}, apperror.New(apperror.CodeDataMalformed, apperror.WithCause(err))
	}
	return app.Ticker{Pair: pair, Bid: bid, Ask: ask, Timestamp: time.Now()}, nil
}

// GetBalance implements app.Gateway.
func (g *RESTGateway) GetBalance(ctx context.Context) (map[money.Asset]decimal.Decimal, error) {
	if err := g.requireTrading(); err != nil {
		return nil, err
	}

	var out accountResponse
	resp, err := g.do(ctx, "get_balance", func(ctx context.Context) (*httpclient.Response, error) {
		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
		query := "timestamp=" + ts
		return g.http.NewRequest().
			SetQueryParam("timestamp", ts).
			SetQueryParam("signature", g.sign(query)).
			SetHeader("X-API-KEY", g.apiKey).
			SetResult(&out).
			Get(ctx, "/api/v3/account")
	})
	if err != nil {
		return nil, err
	}
	if err := decodeResult(resp, &out); err != nil {
		return nil, apperror.New(apperror.CodeDataMalformed, apperror.WithCause(err))
	}

	balances := make(map[money.Asset]decimal.Decimal, len(out.Balances))
	for _, b := range out.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			continue
		}
		balances[money.NormalizeAsset(b.Asset)] = free
	}
	return balances, nil
}

// PlaceOrder implements app.Gateway.
func (g *RESTGateway) PlaceOrder(ctx context.Context, pair marketdomain.Pair, side app.OrderSide, orderType app.OrderType, size, price decimal.Decimal) (string, error) {
	if err := g.requireTrading(); err != nil {
		return "", err
	}

	var out orderResponse
	resp, err := g.do(ctx, "place_order", func(ctx context.Context) (*httpclient.Response, error) {
		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
		params := map[string]string{
			"symbol":      pair.ID(),
			"side":        sideToWire(side),
			"type":        "LIMIT",
			"timeInForce": "IOC",
			"quantity":    size.String(),
			"price":       price.String(),
			"timestamp":   ts,
		}
		req := g.http.NewRequest().SetQueryParams(params).SetHeader("X-API-KEY", g.apiKey).SetResult(&out)
		return req.Post(ctx, "/api/v3/order")
	})
	if err != nil {
		return "", err
	}
	if err := decodeResult(resp, &out); err != nil {
		return "", apperror.New(apperror.CodeOrderRejected, apperror.WithCause(err))
	}
	return strconv.FormatInt(out.OrderID, 10), nil
}

// CancelOrder implements app.Gateway.
func (g *RESTGateway) CancelOrder(ctx context.Context, pair marketdomain.Pair, orderID string) error {
	if err := g.requireTrading(); err != nil {
		return err
	}
	_, err := g.do(ctx, "cancel_order", func(ctx context.Context) (*httpclient.Response, error) {
		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
		return g.http.NewRequest().
			SetQueryParam("symbol", pair.ID()).
			SetQueryParam("orderId", orderID).
			SetQueryParam("timestamp", ts).
			SetHeader("X-API-KEY", g.apiKey).
			Delete(ctx, "/api/v3/order")
	})
	return err
}

// GetOrderStatus implements app.Gateway.
func (g *RESTGateway) GetOrderStatus(ctx context.Context, pair marketdomain.Pair, orderID string) (app.OrderReport, error) {
	if err := g.requireTrading(); err != nil {
		return app.OrderReport{}, err
	}

	var out orderResponse
	resp, err := g.do(ctx, "get_order_status", func(ctx context.Context) (*httpclient.Response, error) {
		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
		return g.http.NewRequest().
			SetQueryParam("symbol", pair.ID()).
			SetQueryParam("orderId", orderID).
			SetQueryParam("timestamp", ts).
			SetHeader("X-API-KEY", g.apiKey).
			SetResult(&out).
			Get(ctx, "/api/v3/order")
	})
	if err != nil {
		return app.OrderReport{}, err
	}
	if err := decodeResult(resp, &out); err != nil {
		return app.OrderReport{}, apperror.New(apperror.CodeDataMalformed, apperror.WithCause(err))
	}

	filled, _ := decimal.NewFromString(out.ExecutedQty)
	avg, _ := decimal.NewFromString(out.AvgPrice)
	return app.OrderReport{
		OrderID:    orderID,
		Pair:       pair,
		Status:     orderStatusFromWire(out.Status),
		FilledSize: filled,
		AvgPrice:   avg,
		UpdatedAt:  time.UnixMilli(out.TransactTime),
	}, nil
}

func sideToWire(side app.OrderSide) string {
	if side == app.Buy {
		return "BUY"
	}
	return "SELL"
}

func levelsFromWire(rows [][]string) ([]marketdomain.Level, error) {
	out := make([]marketdomain.Level, 0, len(rows))
	for _, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("malformed depth row: %v", row)
		}
		price, err := decimal.NewFromString(row[0])
		if err != nil {
			return nil, err
		}
		size, err := decimal.NewFromString(row[1])
		if err != nil {
			return nil, err
		}
		out = append(out, marketdomain.Level{Price: price, Size: size})
	}
	return out, nil
}

// decodeResult only checks that a response came back: SetResult already
// unmarshals into out on success. A body that parses as valid JSON into the
// wrong shape (e.g. an error envelope on a 200) leaves out's fields zeroed
// and is not detected here.
func decodeResult(resp *httpclient.Response, out interface{}) error {
	if resp == nil {
		return fmt.Errorf("nil response")
	}
	return nil
}
