// Package di contains dependency injection tokens for the risk context.
package di

import (
	riskapp "github.com/ZefanHu/triangular-arbitrage-bot/business/risk/app"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
)

// GateToken names the registered Risk Gate.
const GateToken = "risk.Gate"

// GetGate resolves the registered Risk Gate.
func GetGate(sr di.ServiceRegistry) *riskapp.Gate {
	return di.Get[*riskapp.Gate](sr, GateToken)
}
