package infra

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	exchangeapp "github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/app"
	marketapp "github.com/ZefanHu/triangular-arbitrage-bot/business/market/app"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
)

const feedMeterName = "github.com/ZefanHu/triangular-arbitrage-bot/business/market/infra"

// RESTSnapshotDepth is the depth requested from the REST fallback snapshot.
const RESTSnapshotDepth = 50

// Feed is the WebSocket+REST fusion orchestrator: it subscribes to
// the exchange's incremental book stream, applies snapshot/delta events to
// the Order-Book Cache, verifies the feed's checksum against the merged
// book, and falls back to a REST snapshot whenever a pair's view goes out
// of sync (checksum mismatch, crossed book, or stream disconnect), grounded
// on the teacher's staleness-triggers-HTTP-fallback pattern in its CEX
// provider.
type Feed struct {
	gateway exchangeapp.Gateway
	cache   *marketapp.Cache
	log     logger.LoggerInterface

	resyncMu sync.Mutex
	checksumMismatches metric.Int64Counter
	resyncs            metric.Int64Counter
}

// NewFeed builds a Feed over the given gateway and cache.
func NewFeed(gateway exchangeapp.Gateway, cache *marketapp.Cache, log logger.LoggerInterface) *Feed {
	meter := otel.Meter(feedMeterName)
	mismatches, _ := meter.Int64Counter("feed_checksum_mismatches_total",
		metric.WithDescription("Times a pair's recomputed checksum disagreed with the feed's"))
	resyncs, _ := meter.Int64Counter("feed_resyncs_total",
		metric.WithDescription("REST snapshot resyncs triggered by disconnect, crossed book or checksum mismatch"))

	return &Feed{
		gateway:            gateway,
		cache:              cache,
		log:                log,
		checksumMismatches: mismatches,
		resyncs:            resyncs,
	}
}

// Run subscribes to pairs and blocks until ctx is cancelled or the
// subscription fails unrecoverably. Callers typically run it in its own
// goroutine.
func (f *Feed) Run(ctx context.Context, pairs []domain.Pair) error {
	if err := f.primeSnapshots(ctx, pairs); err != nil {
		return err
	}
	return f.gateway.Subscribe(ctx, pairs, func(evt exchangeapp.FeedEvent) {
		f.handle(ctx, pairs, evt)
	})
}

func (f *Feed) primeSnapshots(ctx context.Context, pairs []domain.Pair) error {
	for _, p := range pairs {
		if err := f.resyncPair(ctx, p); err != nil {
			f.log.Warn(ctx, "initial snapshot failed", "pair", p.ID(), "error", err.Error())
		}
	}
	return nil
}

func (f *Feed) handle(ctx context.Context, pairs []domain.Pair, evt exchangeapp.FeedEvent) {
	switch evt.Kind {
	case exchangeapp.FeedSnapshot:
		f.cache.ApplySnapshot(evt.Pair, evt.Bids, evt.Asks, evt.Timestamp)

	case exchangeapp.FeedDelta:
		f.applyDelta(ctx, evt)

	case exchangeapp.FeedDisconnected:
		f.log.Warn(ctx, "exchange feed disconnected, marking all books stale")
		f.cache.MarkAllStale()

	case exchangeapp.FeedReconnected:
		f.log.Info(ctx, "exchange feed reconnected, resyncing all pairs")
		go f.primeSnapshots(ctx, pairs)
	}
}

func (f *Feed) applyDelta(ctx context.Context, evt exchangeapp.FeedEvent) {
	var updates []domain.Level
	if evt.Side == domain.SideBid {
		updates = evt.Bids
	} else {
		updates = evt.Asks
	}
	prev, _ := f.cache.FetchOrStaleFallback(evt.Pair)
	f.cache.ApplyDelta(evt.Pair, evt.Side, updates, evt.Timestamp)

	book, ok := f.cache.FetchOrStaleFallback(evt.Pair)
	if !ok {
		return
	}
	if book.Crossed && !prev.Crossed {
		f.log.Warn(ctx, "crossed book, resyncing pair", "pair", evt.Pair.ID())
		go func() {
			if err := f.resyncPair(ctx, evt.Pair); err != nil {
				f.log.Warn(ctx, "resync after crossed book failed", "pair", evt.Pair.ID(), "error", err.Error())
			}
		}()
		return
	}
	if evt.Checksum == nil || VerifyChecksum(book, *evt.Checksum) {
		return
	}

	f.checksumMismatches.Add(ctx, 1)
	f.log.Warn(ctx, "checksum mismatch, resyncing pair", "pair", evt.Pair.ID())
	go func() {
		if err := f.resyncPair(ctx, evt.Pair); err != nil {
			f.log.Warn(ctx, "resync after checksum mismatch failed", "pair", evt.Pair.ID(), "error", err.Error())
		}
	}()
}

// resyncPair fetches a fresh REST snapshot and replaces the pair's cached
// book wholesale, the recovery path for a checksum mismatch, a crossed book
// and a post-reconnect resubscribe.
func (f *Feed) resyncPair(ctx context.Context, pair domain.Pair) error {
	f.resyncMu.Lock()
	defer f.resyncMu.Unlock()

	restCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	book, err := f.gateway.GetOrderBook(restCtx, pair, RESTSnapshotDepth)
	if err != nil {
		return err
	}
	f.resyncs.Add(ctx, 1)
	f.cache.ApplySnapshot(pair, book.Bids, book.Asks, time.Now())
	return nil
}
