package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/app"
	marketdomain "github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/wsconn"
)

// StreamConfig configures the combined-stream WebSocket subscription.
type StreamConfig struct {
	BaseWSURL string // e.g. "wss://stream.exchange.example/stream"
}

// subscribe implements app.Gateway.Subscribe using internal/wsconn's
// reconnecting client: one socket, one combined stream per call, restored
// automatically by wsconn.ConnectWithRetry on disconnect. The handler
// receives a FeedDisconnected/FeedReconnected pair around every drop so the
// caller (business/market/infra.Feed) can mark its cache stale and await a
// fresh REST snapshot per pair, per the reconnection contract.
func subscribe(ctx context.Context, cfg StreamConfig, pairs []marketdomain.Pair, log logger.LoggerInterface, handler app.FeedHandler) error {
	streams := make([]string, 0, len(pairs))
	for _, p := range pairs {
		streams = append(streams, strings.ToLower(p.ID())+"@depth20@100ms")
	}
	url := fmt.Sprintf("%s?streams=%s", cfg.BaseWSURL, strings.Join(streams, "/"))

	wsCfg := wsconn.DefaultConfig(url, "exchange-depth-feed")
	client, err := wsconn.New(wsCfg)
	if err != nil {
		return fmt.Errorf("build depth feed client: %w", err)
	}

	client.OnStateChange(func(state wsconn.State, err error) {
		switch state {
		case wsconn.StateReconnecting:
			handler(app.FeedEvent{Kind: app.FeedDisconnected, Timestamp: time.Now()})
		case wsconn.StateConnected:
			handler(app.FeedEvent{Kind: app.FeedReconnected, Timestamp: time.Now()})
		}
		if err != nil {
			log.Warn(ctx, "depth feed state change", "state", string(state), "error", err.Error())
		}
	})

	client.OnMessage(func(ctx context.Context, raw []byte) {
		evt, ok, err := parseDepthStreamEvent(raw)
		if err != nil {
			log.Warn(ctx, "depth feed decode error", "error", err.Error())
			return
		}
		if !ok {
			return
		}
		pair, known := matchPair(evt.Symbol, pairs)
		if !known {
			return
		}

		bids, errB := levelsFromWire(evt.Bids)
		asks, errA := levelsFromWire(evt.Asks)
		if errB != nil || errA != nil {
			log.Warn(ctx, "depth feed malformed levels", "pair", pair.ID())
			return
		}

		var checksum *uint32
		if evt.Checksum != nil {
			c := uint32(*evt.Checksum)
			checksum = &c
		}

		if len(bids) > 0 {
			handler(app.FeedEvent{Kind: app.FeedDelta, Pair: pair, Bids: bids, Side: marketdomain.SideBid, Timestamp: time.Now(), Checksum: checksum})
		}
		if len(asks) > 0 {
			handler(app.FeedEvent{Kind: app.FeedDelta, Pair: pair, Asks: asks, Side: marketdomain.SideAsk, Timestamp: time.Now(), Checksum: checksum})
		}
	})

	if err := client.ConnectWithRetry(ctx); err != nil {
		return err
	}
	defer client.Close()

	<-ctx.Done()
	return ctx.Err()
}

func matchPair(symbol string, pairs []marketdomain.Pair) (marketdomain.Pair, bool) {
	upper := strings.ToUpper(symbol)
	for _, p := range pairs {
		if p.ID() == upper {
			return p, true
		}
	}
	return marketdomain.Pair{}, false
}
