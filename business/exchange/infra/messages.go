package infra

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/app"
)

// The wire shapes below mirror a generic REST/WS spot-exchange API: a
// depth snapshot endpoint returning [price, size] string pairs, and a
// diff-depth stream pushing incremental updates tagged with a checksum.
// Field names are deliberately exchange-neutral: this engine targets a
// single centralized exchange, not a named venue.

// depthSnapshotResponse is the REST GET /depth response shape.
type depthSnapshotResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// tickerResponse is the REST GET /ticker/bookTicker response shape.
type tickerResponse struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

// balanceEntry is one row of the REST GET /account balances array.
type balanceEntry struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

type accountResponse struct {
	Balances []balanceEntry `json:"balances"`
}

// orderResponse is the REST POST /order and GET /order response shape.
type orderResponse struct {
	OrderID       int64  `json:"orderId"`
	Status        string `json:"status"`
	ExecutedQty   string `json:"executedQty"`
	AvgPrice      string `json:"avgPrice"`
	TransactTime  int64  `json:"transactTime"`
}

// depthStreamEvent is a single diff-depth WebSocket push.
type depthStreamEvent struct {
	EventType string     `json:"e"`
	EventTime int64      `json:"E"`
	Symbol    string     `json:"s"`
	FirstID   int64      `json:"U"`
	FinalID   int64      `json:"u"`
	Bids      [][]string `json:"b"`
	Asks      [][]string `json:"a"`
	Checksum  *int64     `json:"checksum,omitempty"`
}

// streamEnvelope unwraps a combined-stream push ("stream"/"data" wrapper),
// used by venues that multiplex several symbols onto one socket.
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

func parseDepthStreamEvent(raw []byte) (depthStreamEvent, bool, error) {
	var env streamEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		raw = env.Data
	}

	var evt depthStreamEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return depthStreamEvent{}, false, fmt.Errorf("decode depth stream event: %w", err)
	}
	if evt.EventType != "" && evt.EventType != "depthUpdate" {
		return depthStreamEvent{}, false, nil
	}
	return evt, true, nil
}

func orderStatusFromWire(s string) app.OrderStatus {
	switch s {
	case "NEW":
		return app.OrderOpen
	case "PARTIALLY_FILLED":
		return app.OrderPartiallyFilled
	case "FILLED":
		return app.OrderFilled
	case "CANCELED", "EXPIRED":
		return app.OrderCancelled
	case "REJECTED":
		return app.OrderRejected
	default:
		return app.OrderOpen
	}
}

func mustParseDecimalString(s string) (string, error) {
	if s == "" {
		return "0", nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return "", fmt.Errorf("malformed decimal string %q: %w", s, err)
	}
	return s, nil
}
