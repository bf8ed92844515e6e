package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Level is a single price/size point in an order book side.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook is the cached depth view for one pair. Bids are stored
// descending by price, asks ascending; both invariants are maintained by
// every mutator in this package, never re-sorted lazily by a reader.
type OrderBook struct {
	Pair      Pair
	Bids      []Level
	Asks      []Level
	Timestamp time.Time
	Crossed   bool
}

// Empty returns a zero-value order book for pair, timestamped now.
func Empty(pair Pair, at time.Time) OrderBook {
	return OrderBook{Pair: pair, Timestamp: at}
}

// BestBid returns the highest bid, or a zero Level and false if there are
// no bids.
func (b OrderBook) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, or a zero Level and false if there are no
// asks.
func (b OrderBook) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// Age reports how long ago this snapshot was captured, relative to now.
func (b OrderBook) Age(now time.Time) time.Duration {
	return now.Sub(b.Timestamp)
}

// ApplySnapshot replaces the book wholesale from a fresh snapshot, sorts
// both sides, and recomputes the crossed flag from the snapshot's own
// levels alone (a snapshot is, by definition, the authoritative current
// state).
func ApplySnapshot(pair Pair, bids, asks []Level, at time.Time) OrderBook {
	b := OrderBook{
		Pair:      pair,
		Bids:      sortedBids(bids),
		Asks:      sortedAsks(asks),
		Timestamp: at,
	}
	b.Crossed = isCrossed(b.Bids, b.Asks)
	return b
}

// ApplyDelta merges incremental (price, size) updates onto the existing
// book: size == 0 deletes the level, otherwise the level is inserted or its
// size replaced. Returns the updated book; the receiver is left untouched
// so callers can atomically swap the cached pointer (single-writer
// discipline, see business/market/app). Once crossed, the book stays
// crossed until the next snapshot.
func (b OrderBook) ApplyDelta(updates []Level, side Side, at time.Time) OrderBook {
	var merged []Level
	if side == SideBid {
		merged = mergeLevels(b.Bids, updates, true)
	} else {
		merged = mergeLevels(b.Asks, updates, false)
	}

	next := b
	next.Timestamp = at
	if side == SideBid {
		next.Bids = merged
	} else {
		next.Asks = merged
	}
	next.Crossed = b.Crossed || isCrossed(next.Bids, next.Asks)
	return next
}

// Side identifies which side of the book a delta applies to.
type Side int

const (
	SideBid Side = iota
	SideAsk
)

func mergeLevels(existing, updates []Level, descending bool) []Level {
	byPrice := make(map[string]decimal.Decimal, len(existing)+len(updates))
	order := make([]decimal.Decimal, 0, len(existing)+len(updates))
	for _, l := range existing {
		key := l.Price.String()
		if _, seen := byPrice[key]; !seen {
			order = append(order, l.Price)
		}
		byPrice[key] = l.Size
	}
	for _, u := range updates {
		key := u.Price.String()
		if u.Size.IsZero() {
			delete(byPrice, key)
			continue
		}
		if _, seen := byPrice[key]; !seen {
			order = append(order, u.Price)
		}
		byPrice[key] = u.Size
	}

	out := make([]Level, 0, len(order))
	for _, price := range order {
		size, ok := byPrice[price.String()]
		if !ok {
			continue
		}
		out = append(out, Level{Price: price, Size: size})
	}
	if descending {
		return sortedBids(out)
	}
	return sortedAsks(out)
}

func sortedBids(levels []Level) []Level {
	out := append([]Level(nil), levels...)
	sort.Slice(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	return out
}

func sortedAsks(levels []Level) []Level {
	out := append([]Level(nil), levels...)
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out
}

func isCrossed(bids, asks []Level) bool {
	if len(bids) == 0 || len(asks) == 0 {
		return false
	}
	return bids[0].Price.GreaterThanOrEqual(asks[0].Price)
}
