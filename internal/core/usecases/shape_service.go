package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gorosabel/shapeline/internal/core/domain"
	"github.com/gorosabel/shapeline/internal/core/ports"
	"github.com/gorosabel/shapeline/polyline"
)

// ErrShapeNotFound is returned when a shape does not exist.
var ErrShapeNotFound = errors.New("shape not found")

// ShapeCacheKey is the cache key for a shape by ID. Shared with the
// re-encoding workflow so both invalidate the same entry.
func ShapeCacheKey(id string) string {
	return "shapes:id:" + id
}

// ShapeService handles shape-related business logic.
type ShapeService struct {
	shapes    ports.ShapeRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	codec     *CodecService
}

// NewShapeService creates a new ShapeService.
func NewShapeService(
	shapes ports.ShapeRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	codec *CodecService,
) *ShapeService {
	return &ShapeService{shapes: shapes, cache: cache, publisher: publisher, codec: codec}
}

// Create encodes the given geometry and persists a new shape.
// A negative precision selects the codec default.
func (s *ShapeService) Create(ctx context.Context, name, key, source string, points []domain.GeoPoint, precision int) (*domain.Shape, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("shape must contain at least one point")
	}
	if precision < 0 {
		precision = s.codec.DefaultPrecision()
	}

	encoded, err := s.codec.Encode(ctx, points, precision)
	if err != nil {
		return nil, fmt.Errorf("encode shape geometry: %w", err)
	}

	now := time.Now().UTC()
	shape := &domain.Shape{
		ID:         uuid.NewString(),
		ShapeKey:   key,
		Name:       name,
		Precision:  precision,
		Encoded:    encoded,
		PointCount: len(points),
		Source:     source,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if shape.ShapeKey == "" {
		shape.ShapeKey = shape.ID
	}

	if err := s.shapes.Create(ctx, shape); err != nil {
		return nil, fmt.Errorf("create shape: %w", err)
	}

	// Best-effort event; the shape is already durable.
	if s.publisher != nil {
		_ = s.publisher.PublishShapeEvent(ctx, &domain.ShapeEvent{
			Type:      "created",
			ShapeID:   shape.ID,
			ShapeKey:  shape.ShapeKey,
			Precision: shape.Precision,
			Time:      now,
		})
	}

	return shape, nil
}

// GetByID returns a single shape, read-through cached.
func (s *ShapeService) GetByID(ctx context.Context, id string) (*domain.Shape, error) {
	cacheKey := ShapeCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var shape domain.Shape
			if err := json.Unmarshal(data, &shape); err == nil {
				return &shape, nil
			}
		}
	}

	shape, err := s.shapes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if shape == nil {
		return nil, ErrShapeNotFound
	}

	// Shapes are immutable between re-encodings, so a long TTL is fine.
	if s.cache != nil {
		if data, err := json.Marshal(shape); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return shape, nil
}

// GetByKey returns a single shape by its stable external key. Keys come from
// callers (or "track:<id>" for closed tracks), so lookups bypass the ID cache.
func (s *ShapeService) GetByKey(ctx context.Context, key string) (*domain.Shape, error) {
	shape, err := s.shapes.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if shape == nil {
		return nil, ErrShapeNotFound
	}
	return shape, nil
}

// Geometry decodes a shape's stored encoding back into coordinates.
func (s *ShapeService) Geometry(ctx context.Context, id string) (*domain.GeoLineString, error) {
	shape, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	points, err := s.codec.Decode(ctx, shape.Encoded, shape.Precision)
	if err != nil {
		return nil, fmt.Errorf("decode shape %s: %w", id, err)
	}
	return &domain.GeoLineString{Coordinates: points}, nil
}

// List returns shapes, optionally filtered by source.
func (s *ShapeService) List(ctx context.Context, source string, limit, offset int) ([]domain.Shape, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.shapes.List(ctx, source, limit, offset)
}

// Delete removes a shape and invalidates its cache entry.
func (s *ShapeService) Delete(ctx context.Context, id string) error {
	shape, err := s.shapes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if shape == nil {
		return ErrShapeNotFound
	}

	if err := s.shapes.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete shape: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, ShapeCacheKey(id))
	}
	if s.publisher != nil {
		_ = s.publisher.PublishShapeEvent(ctx, &domain.ShapeEvent{
			Type:      "deleted",
			ShapeID:   shape.ID,
			ShapeKey:  shape.ShapeKey,
			Precision: shape.Precision,
			Time:      time.Now().UTC(),
		})
	}
	return nil
}

// Reencode decodes a shape at its stored precision and re-encodes it at a new
// one, persisting the result. Returns the updated shape.
//
// Lowering precision loses detail irreversibly; the saga in
// internal/workflows snapshots the prior encoding first so it can roll back.
func (s *ShapeService) Reencode(ctx context.Context, id string, newPrecision int) (*domain.Shape, error) {
	// The stored precision must describe the stored bytes, so reject bad
	// values here instead of letting the codec substitute a default.
	if newPrecision < 0 || newPrecision > polyline.MaxPrecision {
		return nil, fmt.Errorf("%w: %d", polyline.ErrInvalidPrecision, newPrecision)
	}

	shape, err := s.shapes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if shape == nil {
		return nil, ErrShapeNotFound
	}
	if newPrecision == shape.Precision {
		return shape, nil
	}

	points, err := s.codec.Decode(ctx, shape.Encoded, shape.Precision)
	if err != nil {
		return nil, fmt.Errorf("decode shape %s: %w", id, err)
	}
	encoded, err := s.codec.Encode(ctx, points, newPrecision)
	if err != nil {
		return nil, fmt.Errorf("re-encode shape %s: %w", id, err)
	}

	if err := s.shapes.UpdateEncoding(ctx, id, encoded, newPrecision, len(points)); err != nil {
		return nil, fmt.Errorf("update shape encoding: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, ShapeCacheKey(id))
	}
	if s.publisher != nil {
		_ = s.publisher.PublishShapeEvent(ctx, &domain.ShapeEvent{
			Type:      "reencoded",
			ShapeID:   shape.ID,
			ShapeKey:  shape.ShapeKey,
			Precision: newPrecision,
			Time:      time.Now().UTC(),
		})
	}

	shape.Encoded = encoded
	shape.Precision = newPrecision
	shape.PointCount = len(points)
	return shape, nil
}
