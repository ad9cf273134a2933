package ports

import (
	"context"

	"github.com/gorosabel/shapeline/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishTrackPoint(ctx context.Context, tp *domain.TrackPoint) error
	PublishShapeEvent(ctx context.Context, event *domain.ShapeEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeTrackPoints(ctx context.Context, handler func(ctx context.Context, tp *domain.TrackPoint) error) error
	SubscribeShapeEvents(ctx context.Context, handler func(ctx context.Context, event *domain.ShapeEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
