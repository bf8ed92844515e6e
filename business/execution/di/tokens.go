// Package di contains dependency injection tokens for the execution context.
package di

import (
	executionapp "github.com/ZefanHu/triangular-arbitrage-bot/business/execution/app"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/di"
)

// ExecutorToken names the registered Executor.
const ExecutorToken = "execution.Executor"

// GetExecutor resolves the registered Executor.
func GetExecutor(sr di.ServiceRegistry) *executionapp.Executor {
	return di.Get[*executionapp.Executor](sr, ExecutorToken)
}
