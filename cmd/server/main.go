// Command server runs the realtime signal engine: it loads config, opens
// the store, wires the event bus, metrics, market-data feed and per-symbol
// workers, and serves the REST + WebSocket API until interrupted.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"vn-signal-engine/config"
	"vn-signal-engine/internal/api"
	"vn-signal-engine/internal/events"
	"vn-signal-engine/internal/feed"
	"vn-signal-engine/internal/logging"
	"vn-signal-engine/internal/metrics"
	"vn-signal-engine/internal/notify"
	"vn-signal-engine/internal/signalengine"
	"vn-signal-engine/internal/store"
	"vn-signal-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("failed to load configuration", "error", err)
	}

	logging.SetDefault(logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		Output:     "stdout",
		JSONFormat: true,
		Component:  "main",
	}))
	log := logging.WithComponent("main")
	log.Info("starting vn-signal-engine")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(ctx, store.Config{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		// The only fatal condition the core tolerates no workaround for.
		log.WithError(err).Fatal("failed to open store")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	repo := store.NewRepository(db)

	bus := events.NewBus()
	registry := metrics.NewRegistry(prometheus.DefaultRegisterer)
	notifier := notify.NewGatedNotifier(notify.NewLogNotifier(), cfg.Engine.AutoTradeEnabled)
	sink := metrics.NewInstrumentedSink(bus, registry, notifier)

	engineCfg := signalengine.Config{
		ZoneWidthATRMultiplier: cfg.Engine.ZoneWidthATRMultiplier,
		SLBufferATRMultiplier:  cfg.Engine.SLBufferATRMultiplier,
		RiskRewardRatio:        cfg.Engine.RiskRewardRatio,
		DefaultQuantity:        cfg.Engine.DefaultQuantity,
		RSIPeriod:              cfg.Engine.RSIPeriod,
		MACDFast:               cfg.Engine.MACDFast,
		MACDSlow:               cfg.Engine.MACDSlow,
		MACDSignal:             cfg.Engine.MACDSignal,
		ATRPeriod:              cfg.Engine.ATRPeriod,
	}

	manager := worker.NewManager(engineCfg, cfg.Engine.Timeframe, sink, repo, repo)

	watchlist := resolveWatchlist(ctx, repo, cfg.Engine.Watchlist)
	manager.SetWatchlist(ctx, watchlist)
	log.WithField("symbols", watchlist).Info("watchlist loaded")

	mockFeed := feed.NewMockFeed(cfg.Engine.Timeframe, 5*time.Second, systemObserver{bus: bus})
	bars, err := mockFeed.Subscribe(ctx, watchlist)
	if err != nil {
		log.WithError(err).Fatal("failed to subscribe to market data feed")
	}
	go func() {
		for bar := range bars {
			manager.Enqueue(ctx, bar)
		}
	}()

	server := api.NewServer(repo, manager, bus, cfg.Engine.Timeframe, []string{"*"})
	httpServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler: server.Router(),
	}

	go func() {
		log.WithField("addr", httpServer.Addr).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	manager.StopAll()
	log.Info("shutdown complete")
}

// resolveWatchlist prefers the persisted watchlist setting over the
// configured default, mirroring the reference system's startup precedence.
func resolveWatchlist(ctx context.Context, repo *store.Repository, fallback []string) []string {
	raw, err := repo.GetSetting(ctx, "watchlist", "")
	if err != nil || raw == "" {
		return fallback
	}
	var symbols []string
	if err := json.Unmarshal([]byte(raw), &symbols); err != nil || len(symbols) == 0 {
		return fallback
	}
	return symbols
}

type systemObserver struct {
	bus *events.Bus
}

func (o systemObserver) OnConnectionChange(connected bool) {
	status := "disconnected"
	if connected {
		status = "connected"
	}
	o.bus.PublishSystem(status, connected)
}

