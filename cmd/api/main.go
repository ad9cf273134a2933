package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gorosabel/shapeline/internal/adapters/http"
	natsadapter "github.com/gorosabel/shapeline/internal/adapters/nats"
	"github.com/gorosabel/shapeline/internal/adapters/postgres"
	"github.com/gorosabel/shapeline/internal/adapters/valkey"
	"github.com/gorosabel/shapeline/internal/core/ports"
	"github.com/gorosabel/shapeline/internal/core/usecases"
	"github.com/gorosabel/shapeline/internal/pkg/config"
	"github.com/gorosabel/shapeline/internal/pkg/logging"
	"github.com/gorosabel/shapeline/internal/pkg/metrics"
	"github.com/gorosabel/shapeline/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("shapeline-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup("shapeline-api", cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
	}

	// NATS
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer publisher.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	shapeRepo := postgres.NewShapeRepo(db)
	trackRepo := postgres.NewTrackPointRepo(db)

	// A nil *valkey.Cache or *natsadapter.Publisher must not end up inside a
	// non-nil interface value; the services treat nil interfaces as "absent".
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}
	var pub ports.EventPublisher
	if publisher != nil {
		pub = publisher
	}

	// Use cases
	codecSvc := usecases.NewCodecService(cfg.Encoding.DefaultPrecision, cfg.Encoding.ValidateBounds)
	shapeSvc := usecases.NewShapeService(shapeRepo, cacheSvc, pub, codecSvc)
	trackSvc := usecases.NewTrackService(trackRepo, shapeSvc, pub)

	deps := &http.Dependencies{
		Codec:  codecSvc,
		Shapes: shapeSvc,
		Tracks: trackSvc,
		NATS:   natsConn,
		DB:     db,
		Cache:  cache,
	}

	// Periodically export DB pool stats
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    10 * 1024 * 1024, // large paths can run to megabytes of JSON
		AppName:      "Shapeline API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
