package infra

import (
	"context"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/app"
	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
)

// Gateway composes RESTGateway (orders, balances, REST depth fallback) with
// the WebSocket depth stream behind a single app.Gateway implementation, so
// the rest of the engine depends on one interface regardless of transport.
type Gateway struct {
	*RESTGateway
	streamCfg StreamConfig
	log       logger.LoggerInterface
}

// NewGateway builds the combined REST+WS exchange adapter.
func NewGateway(rest RESTConfig, stream StreamConfig, log logger.LoggerInterface) (*Gateway, error) {
	r, err := NewRESTGateway(rest)
	if err != nil {
		return nil, err
	}
	return &Gateway{RESTGateway: r, streamCfg: stream, log: log}, nil
}

// Subscribe implements app.Gateway.
func (g *Gateway) Subscribe(ctx context.Context, pairs []marketdomain.Pair, handler app.FeedHandler) error {
	return subscribe(ctx, g.streamCfg, pairs, g.log, handler)
}
