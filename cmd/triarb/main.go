// Command triarb runs the triangular arbitrage engine against a single
// centralized exchange.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/ZefanHu/triangular-arbitrage-bot/business/arbitrage"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/control"
	controlDI "github.com/ZefanHu/triangular-arbitrage-bot/business/control/di"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/exchange"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/execution"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/market"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/portfolio"
	"github.com/ZefanHu/triangular-arbitrage-bot/business/risk"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/apm"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/config"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/health"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/logger"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/metrics"
	"github.com/ZefanHu/triangular-arbitrage-bot/internal/monolith"
	"github.com/ZefanHu/triangular-arbitrage-bot/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	mode := flag.String("mode", "auto", "Run mode: auto (TUI dashboard) or monitor (console logs, no trading)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("triarb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if *mode != "auto" && *mode != "monitor" {
		fmt.Fprintf(os.Stderr, "error: -mode must be \"auto\" or \"monitor\", got %q\n", *mode)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx, *configPath, *mode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, mode string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.Mode = mode

	tuiMode := mode == "auto"

	logLevel := logger.ParseLevel(cfg.App.LogLevel)
	logOut := io.Writer(os.Stderr)
	if tuiMode {
		logOut = io.Discard // the dashboard owns the terminal
	}
	log := logger.New(logOut, logLevel, cfg.App.Name, nil)
	if !tuiMode {
		log.Info(ctx, "starting triangular arbitrage engine",
			"version", version, "environment", cfg.App.Environment, "mode", mode)
	}

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}
		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
		)
		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err.Error())
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Dependency order: Exchange first (everyone depends on the Gateway),
	// then Market and Portfolio (both depend only on Exchange), then
	// Arbitrage (reads configured paths), then Risk and Execution (pure
	// policy/mechanism, no inter-dependency), and Control last since it
	// pulls every other context's registered services.
	modules := []monolith.Module{
		&exchange.Module{},
		&market.Module{},
		&portfolio.Module{},
		&arbitrage.Module{},
		&risk.Module{},
		&execution.Module{},
		&control.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if tuiMode {
		return runTUI(ctx, mono, modules)
	}
	return runMonitor(ctx, mono, modules)
}

// runMonitor starts every module synchronously and blocks until ctx is
// cancelled, then stops the controller and prints its console summary.
func runMonitor(ctx context.Context, mono monolith.Monolith, modules []monolith.Module) error {
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	<-ctx.Done()
	mono.Logger().Info(ctx, "shutting down")

	controller := controlDI.GetController(mono.Services())
	return controller.Stop()
}

// runTUI starts the Bubble Tea dashboard immediately, then brings up every
// module in the background so the welcome screen shows without delay.
func runTUI(ctx context.Context, mono monolith.Monolith, modules []monolith.Module) error {
	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		if err := mono.StartModules(ctx, modules...); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()

		controller := controlDI.GetController(mono.Services())
		if err := controller.Stop(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
		}
		p.Quit()
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
