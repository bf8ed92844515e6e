// Package domain holds the Portfolio Cache's value objects: the balance
// snapshot the Risk Gate and Executor size trades against.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
)

// Portfolio is an immutable snapshot of available balances at a point in
// time. "Available" means free (unlocked) balance, matching the exchange's
// own free/locked split; callers sizing a trade must never spend beyond it.
type Portfolio struct {
	Balances  map[money.Asset]decimal.Decimal
	Timestamp time.Time
}

// Empty returns a zero-balance Portfolio, the state before the first sync
// in public-only/monitor mode.
func Empty(at time.Time) Portfolio {
	return Portfolio{Balances: map[money.Asset]decimal.Decimal{}, Timestamp: at}
}

// Available returns the free balance for asset, or zero if unseen.
func (p Portfolio) Available(asset money.Asset) decimal.Decimal {
	if v, ok := p.Balances[asset]; ok {
		return v
	}
	return decimal.Zero
}

// TotalValueUSDT converts every balance into USDT using the supplied price
// table (USDT per unit of asset; USDT itself prices at 1) and sums the
// result. The cache holds only balances — pricing is the caller's
// responsibility, since it already has the freshest mid-prices from the
// Order-Book Cache.
func (p Portfolio) TotalValueUSDT(prices map[money.Asset]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for asset, bal := range p.Balances {
		if asset == "USDT" {
			total = total.Add(bal)
			continue
		}
		price, ok := prices[asset]
		if !ok {
			continue
		}
		total = total.Add(bal.Mul(price))
	}
	return total
}

// Age reports how long ago this snapshot was captured.
func (p Portfolio) Age(now time.Time) time.Duration {
	return now.Sub(p.Timestamp)
}
