package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/gorosabel/shapeline/internal/core/domain"
	"github.com/gorosabel/shapeline/internal/core/ports"
	"github.com/gorosabel/shapeline/internal/core/usecases"
	"github.com/gorosabel/shapeline/polyline"
)

// ReencodeActivities holds the activity implementations for the re-encoding workflow.
type ReencodeActivities struct {
	Codec     *usecases.CodecService
	Shapes    ports.ShapeRepository
	Publisher ports.EventPublisher
	Cache     ports.CacheService // optional
}

func (a *ReencodeActivities) invalidate(ctx context.Context, shapeID string) {
	if a.Cache != nil {
		_ = a.Cache.Delete(ctx, usecases.ShapeCacheKey(shapeID))
	}
}

// SnapshotEncoding captures the current encoding of a shape.
func (a *ReencodeActivities) SnapshotEncoding(ctx context.Context, shapeID string) (EncodingSnapshot, error) {
	shape, err := a.Shapes.GetByID(ctx, shapeID)
	if err != nil {
		return EncodingSnapshot{}, fmt.Errorf("get shape %s: %w", shapeID, err)
	}
	if shape == nil {
		return EncodingSnapshot{}, fmt.Errorf("shape %s not found", shapeID)
	}
	return EncodingSnapshot{
		Encoded:    shape.Encoded,
		Precision:  shape.Precision,
		PointCount: shape.PointCount,
	}, nil
}

// ReencodeShape decodes the stored polyline at its current precision,
// re-encodes it at the new precision and persists the result.
func (a *ReencodeActivities) ReencodeShape(ctx context.Context, shapeID string, precision int) error {
	if precision < 0 || precision > polyline.MaxPrecision {
		return fmt.Errorf("%w: %d", polyline.ErrInvalidPrecision, precision)
	}

	shape, err := a.Shapes.GetByID(ctx, shapeID)
	if err != nil {
		return fmt.Errorf("get shape %s: %w", shapeID, err)
	}
	if shape == nil {
		return fmt.Errorf("shape %s not found", shapeID)
	}

	points, err := a.Codec.Decode(ctx, shape.Encoded, shape.Precision)
	if err != nil {
		return fmt.Errorf("decode shape %s: %w", shapeID, err)
	}

	encoded, err := a.Codec.Encode(ctx, points, precision)
	if err != nil {
		return fmt.Errorf("encode shape %s at precision %d: %w", shapeID, precision, err)
	}

	if err := a.Shapes.UpdateEncoding(ctx, shapeID, encoded, precision, len(points)); err != nil {
		return fmt.Errorf("update shape %s: %w", shapeID, err)
	}
	a.invalidate(ctx, shapeID)
	return nil
}

// PublishReencoded emits a shape change event for downstream consumers.
func (a *ReencodeActivities) PublishReencoded(ctx context.Context, shapeID string, precision int) error {
	shape, err := a.Shapes.GetByID(ctx, shapeID)
	if err != nil {
		return fmt.Errorf("get shape %s: %w", shapeID, err)
	}
	key := shapeID
	if shape != nil {
		key = shape.ShapeKey
	}
	return a.Publisher.PublishShapeEvent(ctx, &domain.ShapeEvent{
		Type:      "reencoded",
		ShapeID:   shapeID,
		ShapeKey:  key,
		Precision: precision,
		Time:      time.Now().UTC(),
	})
}

// RestoreEncoding puts a prior encoding back (saga compensation / rollback).
func (a *ReencodeActivities) RestoreEncoding(ctx context.Context, shapeID string, snapshot EncodingSnapshot) error {
	if err := a.Shapes.UpdateEncoding(ctx, shapeID, snapshot.Encoded, snapshot.Precision, snapshot.PointCount); err != nil {
		return fmt.Errorf("restore shape %s: %w", shapeID, err)
	}
	a.invalidate(ctx, shapeID)
	return nil
}
