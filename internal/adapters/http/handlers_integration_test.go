//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	handler "github.com/gorosabel/shapeline/internal/adapters/http"
	"github.com/gorosabel/shapeline/internal/adapters/postgres"
	"github.com/gorosabel/shapeline/internal/core/domain"
	"github.com/gorosabel/shapeline/internal/core/usecases"
	"github.com/gorosabel/shapeline/internal/pkg/config"
)

// setupTestDB connects to the test database and returns a clean DB instance.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("shapeline-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	db := &postgres.DB{Pool: pool}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	return db
}

// setupTestDeps creates dependencies with real DB and repos, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *handler.Dependencies {
	codec := usecases.NewCodecService(5, true)
	shapes := usecases.NewShapeService(postgres.NewShapeRepo(db), nil, nil, codec)
	tracks := usecases.NewTrackService(postgres.NewTrackPointRepo(db), shapes, nil)

	return &handler.Dependencies{
		Codec:  codec,
		Shapes: shapes,
		Tracks: tracks,
		DB:     db,
	}
}

// TestShapeLifecycle_Integration exercises create, get, geometry, reencode,
// and delete against a real database.
func TestShapeLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	key := "test:" + time.Now().Format("20060102150405")

	// Create
	status, body := doJSON(t, app, "POST", "/v1/shapes", map[string]interface{}{
		"name":      "Integration shape",
		"shape_key": key,
		"source":    "integration",
		"points":    googlePath,
	})
	if status != 201 {
		t.Fatalf("create: expected 201, got %d: %s", status, body)
	}
	var shape domain.Shape
	if err := json.Unmarshal(body, &shape); err != nil {
		t.Fatalf("decode shape: %v", err)
	}
	if shape.Encoded != googleEncoded {
		t.Errorf("expected %q, got %q", googleEncoded, shape.Encoded)
	}

	// Get
	status, body = doJSON(t, app, "GET", "/v1/shapes/"+shape.ID, nil)
	if status != 200 {
		t.Fatalf("get: expected 200, got %d: %s", status, body)
	}

	// Geometry
	status, body = doJSON(t, app, "GET", "/v1/shapes/"+shape.ID+"/geometry", nil)
	if status != 200 {
		t.Fatalf("geometry: expected 200, got %d: %s", status, body)
	}
	var line domain.GeoLineString
	if err := json.Unmarshal(body, &line); err != nil {
		t.Fatalf("decode geometry: %v", err)
	}
	if len(line.Coordinates) != len(googlePath) {
		t.Errorf("expected %d coordinates, got %d", len(googlePath), len(line.Coordinates))
	}

	// Reencode
	status, body = doJSON(t, app, "POST", "/v1/shapes/"+shape.ID+"/reencode", map[string]interface{}{
		"precision": 6,
	})
	if status != 200 {
		t.Fatalf("reencode: expected 200, got %d: %s", status, body)
	}

	// Delete
	status, _ = doJSON(t, app, "DELETE", "/v1/shapes/"+shape.ID, nil)
	if status != 204 {
		t.Fatalf("delete: expected 204, got %d", status)
	}

	status, _ = doJSON(t, app, "GET", "/v1/shapes/"+shape.ID, nil)
	if status != 404 {
		t.Fatalf("get after delete: expected 404, got %d", status)
	}
}

// TestTrackIngestAndClose_Integration exercises track ingestion and closing
// against a real database.
func TestTrackIngestAndClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	trackerID := "itest-" + time.Now().Format("150405")

	for _, p := range googlePath {
		status, body := doJSON(t, app, "POST", "/v1/trackers/"+trackerID+"/points", map[string]interface{}{
			"location": p,
		})
		if status != 202 {
			t.Fatalf("ingest: expected 202, got %d: %s", status, body)
		}
	}

	status, body := doJSON(t, app, "POST", "/v1/trackers/"+trackerID+"/close", map[string]interface{}{})
	if status != 201 {
		t.Fatalf("close: expected 201, got %d: %s", status, body)
	}
	var shape domain.Shape
	if err := json.Unmarshal(body, &shape); err != nil {
		t.Fatalf("decode shape: %v", err)
	}
	if shape.PointCount != len(googlePath) {
		t.Errorf("expected %d points, got %d", len(googlePath), shape.PointCount)
	}

	// Raw points are cleared after closing
	status, body = doJSON(t, app, "GET", "/v1/trackers/"+trackerID+"/points", nil)
	if status != 200 {
		t.Fatalf("points: expected 200, got %d", status)
	}
	var points []domain.TrackPoint
	if err := json.Unmarshal(body, &points); err != nil {
		t.Fatalf("decode points: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("expected 0 points after close, got %d", len(points))
	}

	// Cleanup
	_, _ = doJSON(t, app, "DELETE", "/v1/shapes/"+shape.ID, nil)
}
