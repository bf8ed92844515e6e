// Package domain holds the market-data value objects: trading pairs and
// order books. These are read by every other bounded context but mutated
// only by the feed fusion layer in business/market/infra.
package domain

import (
	"fmt"
	"strings"

	"github.com/ZefanHu/triangular-arbitrage-bot/internal/money"
)

// majorAssets get priority as the base of a pair's canonical form; stables
// come next; anything else falls back to lexical order. This mirrors how
// real venues name pairs (BTC-USDT, not USDT-BTC) and gives Pair a
// deterministic canonical id regardless of the order callers supply assets.
var majorAssets = map[money.Asset]int{
	"BTC": 0,
	"ETH": 1,
	"BNB": 2,
}

var stableAssets = map[money.Asset]bool{
	"USDT": true,
	"USDC": true,
	"BUSD": true,
	"DAI":  true,
}

func assetRank(a money.Asset) int {
	if r, ok := majorAssets[a]; ok {
		return r
	}
	if stableAssets[a] {
		return 100
	}
	return 200
}

// Pair is an immutable, canonically-ordered trading pair. Base ≠ Quote is
// enforced at construction.
type Pair struct {
	base  money.Asset
	quote money.Asset
}

// NewPair orders (a, b) into (base, quote) by the major/stable/lex priority
// rule: the "more major" asset is the base. It panics if a == b, since a
// pair of an asset with itself is never a valid construction input (config
// validation is expected to catch this earlier with a friendlier error).
func NewPair(a, b money.Asset) Pair {
	if a == b {
		panic(fmt.Sprintf("market: pair base and quote must differ, got %s twice", a))
	}

	ra, rb := assetRank(a), assetRank(b)
	switch {
	case ra < rb:
		return Pair{base: a, quote: b}
	case rb < ra:
		return Pair{base: b, quote: a}
	default:
		if a < b {
			return Pair{base: a, quote: b}
		}
		return Pair{base: b, quote: a}
	}
}

// PairFromCanonical parses a "BASE-QUOTE" string without re-deriving the
// canonical order; the caller is asserting the string is already canonical
// (as config-loaded path definitions are).
func PairFromCanonical(s string) (Pair, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("market: invalid pair %q, want BASE-QUOTE", s)
	}
	base, quote := money.NormalizeAsset(parts[0]), money.NormalizeAsset(parts[1])
	if base == quote {
		return Pair{}, fmt.Errorf("market: pair %q has identical base and quote", s)
	}
	return Pair{base: base, quote: quote}, nil
}

func (p Pair) Base() money.Asset  { return p.base }
func (p Pair) Quote() money.Asset { return p.quote }

// ID returns the canonical "BASE-QUOTE" identifier.
func (p Pair) ID() string { return string(p.base) + "-" + string(p.quote) }

func (p Pair) String() string { return p.ID() }

// Invert returns the pair with base and quote swapped, for looking up a
// reversed quote (e.g. when a path needs QUOTE-BASE but the venue only
// lists BASE-QUOTE).
func (p Pair) Invert() Pair { return Pair{base: p.quote, quote: p.base} }
