package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	natsadapter "github.com/gorosabel/shapeline/internal/adapters/nats"
	"github.com/gorosabel/shapeline/internal/adapters/postgres"
	"github.com/gorosabel/shapeline/internal/core/domain"
	"github.com/gorosabel/shapeline/internal/pkg/config"
	"github.com/gorosabel/shapeline/internal/pkg/logging"
	"github.com/gorosabel/shapeline/internal/pkg/metrics"
)

// The tracker worker persists track points that arrive over the broker.
// Devices and fleet gateways publish positions straight to NATS; this
// worker is their durable write path into the store.
func main() {
	cfg, err := config.Load("shapeline-tracker")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup("shapeline-tracker", cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	trackRepo := postgres.NewTrackPointRepo(db)

	err = sub.SubscribeTrackPoints(ctx, func(ctx context.Context, tp *domain.TrackPoint) error {
		if err := trackRepo.Insert(ctx, tp); err != nil {
			slog.Error("insert track point", "tracker", tp.TrackerID, "error", err)
			return err
		}
		metrics.TrackPointsIngested.WithLabelValues("nats").Inc()
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe track points: %v", err)
	}

	// Observe the shape lifecycle for fleet dashboards. When a closed track's
	// shape is deleted, its leftover raw points are cleared too.
	err = sub.SubscribeShapeEvents(ctx, func(ctx context.Context, event *domain.ShapeEvent) error {
		metrics.ShapeEventsObserved.WithLabelValues(event.Type).Inc()
		slog.Info("shape event", "type", event.Type, "shape", event.ShapeID, "key", event.ShapeKey)

		if event.Type == "deleted" {
			if trackerID, ok := strings.CutPrefix(event.ShapeKey, "track:"); ok {
				if err := trackRepo.DeleteByTracker(ctx, trackerID); err != nil {
					slog.Error("clear points for deleted shape", "tracker", trackerID, "error", err)
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe shape events: %v", err)
	}

	slog.Info("tracker worker started", "nats", cfg.NATS.URL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down tracker worker", "signal", sig.String())
	cancel()
}
