package ports

import (
	"context"
	"time"

	"github.com/gorosabel/shapeline/internal/core/domain"
)

// ShapeRepository persists shapes.
type ShapeRepository interface {
	Create(ctx context.Context, shape *domain.Shape) error
	GetByID(ctx context.Context, id string) (*domain.Shape, error)
	GetByKey(ctx context.Context, key string) (*domain.Shape, error)
	List(ctx context.Context, source string, limit, offset int) ([]domain.Shape, error)
	UpdateEncoding(ctx context.Context, id string, encoded string, precision, pointCount int) error
	Delete(ctx context.Context, id string) error
}

// TrackPointRepository persists real-time tracker positions.
type TrackPointRepository interface {
	Insert(ctx context.Context, tp *domain.TrackPoint) error
	InsertBatch(ctx context.Context, tps []domain.TrackPoint) error
	// ListByTracker returns points in time order. A zero since means from the
	// beginning; a limit <= 0 means no limit.
	ListByTracker(ctx context.Context, trackerID string, since time.Time, limit int) ([]domain.TrackPoint, error)
	DeleteByTracker(ctx context.Context, trackerID string) error
}
