package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorosabel/shapeline/internal/core/domain"
	"github.com/gorosabel/shapeline/internal/core/usecases"
)

// --- Mock TrackPointRepository ---

type mockTrackPointRepo struct {
	insertFn          func(ctx context.Context, tp *domain.TrackPoint) error
	listByTrackerFn   func(ctx context.Context, trackerID string, since time.Time, limit int) ([]domain.TrackPoint, error)
	deleteByTrackerFn func(ctx context.Context, trackerID string) error
}

func (m *mockTrackPointRepo) Insert(ctx context.Context, tp *domain.TrackPoint) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tp)
	}
	return nil
}

func (m *mockTrackPointRepo) InsertBatch(ctx context.Context, tps []domain.TrackPoint) error {
	return nil
}

func (m *mockTrackPointRepo) ListByTracker(ctx context.Context, trackerID string, since time.Time, limit int) ([]domain.TrackPoint, error) {
	if m.listByTrackerFn != nil {
		return m.listByTrackerFn(ctx, trackerID, since, limit)
	}
	return nil, nil
}

func (m *mockTrackPointRepo) DeleteByTracker(ctx context.Context, trackerID string) error {
	if m.deleteByTrackerFn != nil {
		return m.deleteByTrackerFn(ctx, trackerID)
	}
	return nil
}

func TestTrackService_Ingest(t *testing.T) {
	var stored *domain.TrackPoint
	repo := &mockTrackPointRepo{
		insertFn: func(ctx context.Context, tp *domain.TrackPoint) error {
			stored = tp
			return nil
		},
	}
	pub := &mockPublisher{}

	svc := usecases.NewTrackService(repo, nil, pub)
	err := svc.Ingest(context.Background(), &domain.TrackPoint{
		TrackerID: "bus-42",
		Location:  domain.GeoPoint{Lat: 43.26, Lon: -2.93},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil {
		t.Fatal("point was not persisted")
	}
	if stored.Time.IsZero() {
		t.Error("expected ingest to stamp the point time")
	}
	if len(pub.trackPoints) != 1 {
		t.Errorf("expected 1 broadcast point, got %d", len(pub.trackPoints))
	}
}

func TestTrackService_Ingest_MissingTracker(t *testing.T) {
	svc := usecases.NewTrackService(&mockTrackPointRepo{}, nil, &mockPublisher{})
	if err := svc.Ingest(context.Background(), &domain.TrackPoint{}); err == nil {
		t.Fatal("expected error for missing tracker id")
	}
}

func TestTrackService_CloseTrack(t *testing.T) {
	cleared := ""
	trackRepo := &mockTrackPointRepo{
		listByTrackerFn: func(ctx context.Context, trackerID string, since time.Time, limit int) ([]domain.TrackPoint, error) {
			return []domain.TrackPoint{
				{TrackerID: trackerID, Location: testPath[0]},
				{TrackerID: trackerID, Location: testPath[1]},
				{TrackerID: trackerID, Location: testPath[2]},
			}, nil
		},
		deleteByTrackerFn: func(ctx context.Context, trackerID string) error {
			cleared = trackerID
			return nil
		},
	}
	shapeRepo := &mockShapeRepo{}
	pub := &mockPublisher{}
	shapes := newShapeService(shapeRepo, pub)

	svc := usecases.NewTrackService(trackRepo, shapes, pub)
	shape, err := svc.CloseTrack(context.Background(), "bus-42", "", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shape.Encoded != testEncoded {
		t.Errorf("expected %q, got %q", testEncoded, shape.Encoded)
	}
	if shape.ShapeKey != "track:bus-42" {
		t.Errorf("expected key track:bus-42, got %q", shape.ShapeKey)
	}
	if cleared != "bus-42" {
		t.Errorf("expected raw points cleared for bus-42, got %q", cleared)
	}
}

func TestTrackService_CloseTrack_CleanupFailure(t *testing.T) {
	trackRepo := &mockTrackPointRepo{
		listByTrackerFn: func(ctx context.Context, trackerID string, since time.Time, limit int) ([]domain.TrackPoint, error) {
			return []domain.TrackPoint{
				{TrackerID: trackerID, Location: testPath[0]},
				{TrackerID: trackerID, Location: testPath[1]},
			}, nil
		},
		deleteByTrackerFn: func(ctx context.Context, trackerID string) error {
			return errors.New("db down")
		},
	}
	shapes := newShapeService(&mockShapeRepo{}, &mockPublisher{})

	svc := usecases.NewTrackService(trackRepo, shapes, &mockPublisher{})
	shape, err := svc.CloseTrack(context.Background(), "bus-42", "", 5)
	if err != nil {
		t.Fatalf("expected close to succeed despite cleanup failure, got %v", err)
	}
	if shape == nil || shape.ShapeKey != "track:bus-42" {
		t.Fatalf("expected shape for bus-42, got %+v", shape)
	}
}

func TestTrackService_CloseTrack_Empty(t *testing.T) {
	svc := usecases.NewTrackService(&mockTrackPointRepo{}, newShapeService(&mockShapeRepo{}, &mockPublisher{}), &mockPublisher{})
	if _, err := svc.CloseTrack(context.Background(), "bus-42", "", 5); !errors.Is(err, usecases.ErrEmptyTrack) {
		t.Fatalf("expected ErrEmptyTrack, got %v", err)
	}
}
