package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorosabel/shapeline/internal/core/domain"
	"github.com/gorosabel/shapeline/internal/core/ports"
	"github.com/gorosabel/shapeline/internal/pkg/metrics"
)

// ErrEmptyTrack is returned when closing a track that has no points.
var ErrEmptyTrack = errors.New("track has no points")

// TrackService processes incoming tracker positions and closes finished
// tracks into shapes.
type TrackService struct {
	points    ports.TrackPointRepository
	shapes    *ShapeService
	publisher ports.EventPublisher
}

// NewTrackService creates a new TrackService.
func NewTrackService(
	points ports.TrackPointRepository,
	shapes *ShapeService,
	publisher ports.EventPublisher,
) *TrackService {
	return &TrackService{points: points, shapes: shapes, publisher: publisher}
}

// Ingest stores a tracker position and broadcasts it to live subscribers.
func (s *TrackService) Ingest(ctx context.Context, tp *domain.TrackPoint) error {
	if tp.TrackerID == "" {
		return fmt.Errorf("track point missing tracker id")
	}
	if tp.Time.IsZero() {
		tp.Time = time.Now().UTC()
	}

	if err := s.points.Insert(ctx, tp); err != nil {
		return fmt.Errorf("insert track point: %w", err)
	}
	metrics.TrackPointsIngested.WithLabelValues("http").Inc()

	// Broadcast to WebSocket clients; the point is already durable.
	if s.publisher != nil {
		_ = s.publisher.PublishTrackPoint(ctx, tp)
	}
	return nil
}

// IngestBatch stores a batch of tracker positions.
func (s *TrackService) IngestBatch(ctx context.Context, tps []domain.TrackPoint) error {
	if len(tps) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range tps {
		if tps[i].TrackerID == "" {
			return fmt.Errorf("track point %d missing tracker id", i)
		}
		if tps[i].Time.IsZero() {
			tps[i].Time = now
		}
	}
	if err := s.points.InsertBatch(ctx, tps); err != nil {
		return fmt.Errorf("insert track points: %w", err)
	}
	metrics.TrackPointsIngested.WithLabelValues("http").Add(float64(len(tps)))
	return nil
}

// ListPoints returns a tracker's recorded positions since the given time.
func (s *TrackService) ListPoints(ctx context.Context, trackerID string, since time.Time, limit int) ([]domain.TrackPoint, error) {
	if limit <= 0 || limit > 10000 {
		limit = 1000
	}
	return s.points.ListByTracker(ctx, trackerID, since, limit)
}

// CloseTrack compresses a tracker's accumulated points into a stored shape
// and clears the raw points. A negative precision selects the codec default.
func (s *TrackService) CloseTrack(ctx context.Context, trackerID, name string, precision int) (*domain.Shape, error) {
	tps, err := s.points.ListByTracker(ctx, trackerID, time.Time{}, 0)
	if err != nil {
		return nil, fmt.Errorf("load track points: %w", err)
	}
	if len(tps) == 0 {
		return nil, ErrEmptyTrack
	}

	geometry := make([]domain.GeoPoint, len(tps))
	for i, tp := range tps {
		geometry[i] = tp.Location
	}
	if name == "" {
		name = "track " + trackerID
	}

	shape, err := s.shapes.Create(ctx, name, "track:"+trackerID, "tracker", geometry, precision)
	if err != nil {
		return nil, err
	}
	metrics.TracksClosed.Inc()

	// Raw points are disposable once the shape exists. A failed cleanup must
	// not surface as an error: the shape is durable, and retrying the close
	// would collide on the shape key.
	if err := s.points.DeleteByTracker(ctx, trackerID); err != nil {
		slog.Warn("clear track points after close", "tracker", trackerID, "error", err)
	}
	return shape, nil
}
