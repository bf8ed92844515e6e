// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	arbitrageapp "github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage/app"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
)

// ParamsToken names the registered evaluator Params.
const ParamsToken = "arbitrage.Params"

// GetParams resolves the configured evaluator parameters.
func GetParams(sr di.ServiceRegistry) arbitrageapp.Params {
	return di.Get[arbitrageapp.Params](sr, ParamsToken)
}
