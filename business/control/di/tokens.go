// Package di contains dependency injection tokens for the control context.
package di

import (
	controllerapp "github.com/ZefanHu/triangular-arbitrage-bot/business/control/app"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
)

// Token names for services this module registers.
const (
	ControllerToken = "control.Controller"
)

// GetController resolves the registered Controller.
func GetController(sr di.ServiceRegistry) *controllerapp.Controller {
	return di.Get[*controllerapp.Controller](sr, ControllerToken)
}
