package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/gorosabel/shapeline/internal/adapters/nats"
	"github.com/gorosabel/shapeline/internal/adapters/postgres"
	"github.com/gorosabel/shapeline/internal/adapters/valkey"
	"github.com/gorosabel/shapeline/internal/core/usecases"
	"github.com/gorosabel/shapeline/internal/pkg/config"
	"github.com/gorosabel/shapeline/internal/pkg/logging"
	"github.com/gorosabel/shapeline/internal/workflows"
)

func main() {
	cfg, err := config.Load("shapeline-reencoder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup("shapeline-reencoder", cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer publisher.Close()

	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, skipping cache invalidation", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	acts := &workflows.ReencodeActivities{
		Codec:     usecases.NewCodecService(cfg.Encoding.DefaultPrecision, cfg.Encoding.ValidateBounds),
		Shapes:    postgres.NewShapeRepo(db),
		Publisher: publisher,
	}
	if cache != nil {
		acts.Cache = cache
	}
	w.RegisterWorkflow(workflows.ReencodeWorkflow)
	w.RegisterActivity(acts)

	log.Println("reencoder worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
