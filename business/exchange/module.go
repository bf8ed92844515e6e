// Package exchange implements the Exchange Gateway bounded context: the
// single adapter translating the engine's domain calls into the venue's
// REST/WebSocket protocol.
package exchange

import (
	"context"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/app"
	exchangeDI "github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/exchange/infra"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/config"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/monolith"
)

// Module implements the exchange bounded context.
type Module struct{}

// RegisterServices registers the Gateway with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, exchangeDI.GatewayToken, func(sr di.ServiceRegistry) app.Gateway {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		gw, err := infra.NewGateway(
			infra.RESTConfig{
				BaseURL:           cfg.Exchange.RESTBaseURL,
				APIKey:            cfg.Exchange.APIKey,
				APISecret:         cfg.Exchange.SecretKey,
				RequestsPerMinute: 1200,
			},
			infra.StreamConfig{BaseWSURL: cfg.Exchange.WSBaseURL},
			log,
		)
		if err != nil {
			panic("failed to create exchange gateway: " + err.Error())
		}
		return gw
	})
	return nil
}

// Startup logs the gateway's trading mode; the gateway itself connects
// lazily on first Subscribe/REST call.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	gw := exchangeDI.GetGateway(mono.Services())
	if gw.PublicOnly() {
		log.Warn(ctx, "exchange gateway running public-only: no trading credentials configured")
	} else {
		log.Info(ctx, "exchange gateway started")
	}
	return nil
}
