package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/xelth-com/pantrysync/internal/accounting"
	"github.com/xelth-com/pantrysync/internal/baseline"
	"github.com/xelth-com/pantrysync/internal/buildinfo"
	"github.com/xelth-com/pantrysync/internal/catalog"
	"github.com/xelth-com/pantrysync/internal/config"
	"github.com/xelth-com/pantrysync/internal/database"
	"github.com/xelth-com/pantrysync/internal/handlers"
	"github.com/xelth-com/pantrysync/internal/interchange"
	"github.com/xelth-com/pantrysync/internal/logging"
	"github.com/xelth-com/pantrysync/internal/remote"
	"github.com/xelth-com/pantrysync/internal/storage"
	tripsync "github.com/xelth-com/pantrysync/internal/sync"
	"github.com/xelth-com/pantrysync/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	syncCfg, err := config.LoadSyncConfig()
	if err != nil {
		log.Fatalf("Failed to load sync configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialise logging: %v", err)
	}
	defer logger.Sync()

	// 2. Local storage
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal("create data dir", zap.String("dir", cfg.DataDir), zap.Error(err))
	}
	kv, err := storage.OpenBolt(cfg.BoltPath())
	if err != nil {
		logger.Fatal("open local storage", zap.Error(err))
	}
	adapter := storage.NewAdapter(kv, logger)

	store := catalog.NewStore(logger, EventBus.New())
	if err := adapter.Attach(store); err != nil {
		logger.Fatal("attach storage", zap.Error(err))
	}
	tracker := baseline.NewTracker(adapter, logger)

	// 3. Remote document store
	var (
		backend remote.Store
		db      *database.DB
	)
	switch cfg.RemoteBackend {
	case "postgres":
		db, err = database.Connect(cfg.Database, cfg.DataDir, logger)
		if err != nil {
			logger.Fatal("connect database", zap.Error(err))
		}
		gs := remote.NewGormStore(db.DB)
		logger.Info("🚀 Synchronizing database schema...")
		if err := gs.Migrate(); err != nil {
			logger.Fatal("migrate remote documents", zap.Error(err))
		}
		backend = gs
	default:
		logger.Warn("using in-memory remote store, documents are lost on restart")
		backend = remote.NewMemoryStore()
	}

	acct := accounting.NewTracker(backend, accounting.Options{
		CacheTTL:   syncCfg.CacheTTL(),
		Simulate:   syncCfg.Simulate,
		MaxCallLog: syncCfg.MaxCallLog,
	}, logger)
	sweeper, err := accounting.StartSweeper(acct, syncCfg.SweepSchedule)
	if err != nil {
		logger.Fatal("start cache sweeper", zap.Error(err))
	}

	// 4. Trip engine
	engine, err := tripsync.NewEngine(tripsync.Deps{
		Store:    store,
		Baseline: tracker,
		Remote:   acct,
		States:   adapter,
		DeviceID: cfg.DeviceID,
		Node:     syncCfg.SnowflakeNode,
		Strategy: tripsync.ConflictResolutionStrategy(syncCfg.ConflictResolution),
	}, logger)
	if err != nil {
		logger.Fatal("create trip engine", zap.Error(err))
	}

	// 5. Push channel
	hub := websocket.NewHub(logger)
	go hub.Run()
	if err := store.Subscribe(hub.NotifyCatalogChanged); err != nil {
		logger.Warn("subscribe hub to catalog changes", zap.Error(err))
	}

	// 6. HTTP
	router := handlers.NewRouter(handlers.Deps{
		Store:       store,
		Engine:      engine,
		Interchange: interchange.NewService(store, adapter, cfg.DeviceID, "", logger),
		Accounting:  acct,
		Hub:         hub,
		JWTSecret:   cfg.JWTSecret,
		DeviceID:    cfg.DeviceID,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info(fmt.Sprintf("🚀 pantrysync (%s) starting on port %s", cfg.DeviceID, cfg.Port),
			zap.String("version", buildinfo.Version),
			zap.String("commit", buildinfo.CommitHash),
			zap.String("remote", cfg.RemoteBackend),
			zap.Int("products", store.Len()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sig := <-shutdown
	logger.Info("⚠️  shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}

	hub.Stop()
	<-sweeper.Stop().Done()
	adapter.Detach()
	if err := kv.Close(); err != nil {
		logger.Error("close local storage", zap.Error(err))
	}
	if db != nil {
		logger.Info("🛑 Closing database connection...")
		if err := db.Close(); err != nil {
			logger.Error("database close", zap.Error(err))
		}
	}
	logger.Info("✅ Shutdown complete")
}
