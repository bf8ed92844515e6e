// Package di contains dependency injection tokens for the exchange context.
package di

import (
	"github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/app"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
)

// Token names for services this module registers.
const (
	GatewayToken = "exchange.Gateway"
)

// GetGateway resolves the registered app.Gateway.
func GetGateway(sr di.ServiceRegistry) app.Gateway {
	return di.Get[app.Gateway](sr, GatewayToken)
}
