// Package infra fuses the exchange gateway's WebSocket feed with REST
// snapshots into the Order-Book Cache, following a snapshot-then-delta
// reconciliation and freshness contract.
package infra

import (
	"fmt"
	"hash/crc32"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/market/domain"
)

// ChecksumTopN is the number of top levels per side folded into the
// checksum: the top-25 "price:size" strings, alternating bid/ask, hashed
// with CRC32.
const ChecksumTopN = 25

// Checksum recomputes the book's checksum the way the exchange is assumed to:
// alternate bid/ask strings "price:size" for the top ChecksumTopN levels of
// each side (shorter side simply contributes fewer entries), CRC32 the
// joined string. A mismatch against a checksum value supplied by the feed
// means the cache is out of sync and must drop the pair pending
// resubscribe.
func Checksum(book domain.OrderBook) uint32 {
	var buf []byte
	n := ChecksumTopN
	bids, asks := book.Bids, book.Asks
	for i := 0; i < n; i++ {
		if i < len(bids) {
			buf = append(buf, []byte(fmt.Sprintf("%s:%s", bids[i].Price.String(), bids[i].Size.String()))...)
		}
		if i < len(asks) {
			buf = append(buf, []byte(fmt.Sprintf("%s:%s", asks[i].Price.String(), asks[i].Size.String()))...)
		}
	}
	return crc32.ChecksumIEEE(buf)
}

// VerifyChecksum reports whether book's recomputed checksum matches want.
func VerifyChecksum(book domain.OrderBook, want uint32) bool {
	return Checksum(book) == want
}
