package infra

import (
	"context"
	"time"

	exchangeapp "github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/app"
	portfolioapp "github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/app"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio/domain"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
)

// SyncInterval is the periodic balance refresh cadence.
const SyncInterval = 60 * time.Second

// Syncer is the single writer task for the Portfolio Cache: it polls the
// Exchange Gateway's balance endpoint on a fixed interval and after every
// order fill.
type Syncer struct {
	gateway exchangeapp.Gateway
	cache   *portfolioapp.SyncedCache
	log     logger.LoggerInterface
}

// NewSyncer builds a Syncer.
func NewSyncer(gateway exchangeapp.Gateway, cache *portfolioapp.SyncedCache, log logger.LoggerInterface) *Syncer {
	return &Syncer{gateway: gateway, cache: cache, log: log}
}

// Run polls on SyncInterval until ctx is cancelled. A no-op if the gateway
// is public-only.
func (s *Syncer) Run(ctx context.Context) {
	if s.gateway.PublicOnly() {
		return
	}

	s.syncOnce(ctx)
	ticker := time.NewTicker(SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncOnce(ctx)
		}
	}
}

// SyncNow forces an immediate refresh, called after an order fill so the
// Risk Gate's next check sees the updated balance rather than waiting out
// the poll interval.
func (s *Syncer) SyncNow(ctx context.Context) {
	s.syncOnce(ctx)
}

func (s *Syncer) syncOnce(ctx context.Context) {
	syncCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	balances, err := s.gateway.GetBalance(syncCtx)
	if err != nil {
		s.log.Warn(ctx, "balance sync failed", "error", err.Error())
		return
	}
	s.cache.Update(domain.Portfolio{Balances: balances, Timestamp: time.Now()})
}
