package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorosabel/shapeline/internal/core/domain"
	"github.com/gorosabel/shapeline/internal/core/usecases"
	"github.com/gorosabel/shapeline/polyline"
)

// --- Mock ShapeRepository ---

type mockShapeRepo struct {
	createFn         func(ctx context.Context, shape *domain.Shape) error
	getByIDFn        func(ctx context.Context, id string) (*domain.Shape, error)
	getByKeyFn       func(ctx context.Context, key string) (*domain.Shape, error)
	updateEncodingFn func(ctx context.Context, id, encoded string, precision, pointCount int) error
	deleteFn         func(ctx context.Context, id string) error
}

func (m *mockShapeRepo) Create(ctx context.Context, shape *domain.Shape) error {
	if m.createFn != nil {
		return m.createFn(ctx, shape)
	}
	return nil
}

func (m *mockShapeRepo) GetByID(ctx context.Context, id string) (*domain.Shape, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockShapeRepo) GetByKey(ctx context.Context, key string) (*domain.Shape, error) {
	if m.getByKeyFn != nil {
		return m.getByKeyFn(ctx, key)
	}
	return nil, nil
}

func (m *mockShapeRepo) List(ctx context.Context, source string, limit, offset int) ([]domain.Shape, error) {
	return nil, nil
}

func (m *mockShapeRepo) UpdateEncoding(ctx context.Context, id string, encoded string, precision, pointCount int) error {
	if m.updateEncodingFn != nil {
		return m.updateEncodingFn(ctx, id, encoded, precision, pointCount)
	}
	return nil
}

func (m *mockShapeRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	shapeEvents []domain.ShapeEvent
	trackPoints []domain.TrackPoint
}

func (m *mockPublisher) PublishTrackPoint(ctx context.Context, tp *domain.TrackPoint) error {
	m.trackPoints = append(m.trackPoints, *tp)
	return nil
}

func (m *mockPublisher) PublishShapeEvent(ctx context.Context, event *domain.ShapeEvent) error {
	m.shapeEvents = append(m.shapeEvents, *event)
	return nil
}


func newShapeService(repo *mockShapeRepo, pub *mockPublisher) *usecases.ShapeService {
	codec := usecases.NewCodecService(5, true)
	return usecases.NewShapeService(repo, nil, pub, codec)
}

func TestShapeService_Create(t *testing.T) {
	var stored *domain.Shape
	repo := &mockShapeRepo{
		createFn: func(ctx context.Context, shape *domain.Shape) error {
			stored = shape
			return nil
		},
	}
	pub := &mockPublisher{}

	svc := newShapeService(repo, pub)
	shape, err := svc.Create(context.Background(), "Line 1", "metro:l1", "import", testPath, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil {
		t.Fatal("shape was not persisted")
	}
	if shape.Encoded != testEncoded {
		t.Errorf("expected %q, got %q", testEncoded, shape.Encoded)
	}
	if shape.Precision != 5 {
		t.Errorf("expected default precision 5, got %d", shape.Precision)
	}
	if shape.PointCount != 3 {
		t.Errorf("expected 3 points, got %d", shape.PointCount)
	}
	if len(pub.shapeEvents) != 1 || pub.shapeEvents[0].Type != "created" {
		t.Errorf("expected one created event, got %+v", pub.shapeEvents)
	}
}

func TestShapeService_Create_Empty(t *testing.T) {
	svc := newShapeService(&mockShapeRepo{}, &mockPublisher{})
	if _, err := svc.Create(context.Background(), "empty", "", "", nil, 5); err == nil {
		t.Fatal("expected error for empty geometry")
	}
}

func TestShapeService_Geometry(t *testing.T) {
	repo := &mockShapeRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Shape, error) {
			return &domain.Shape{ID: id, Precision: 5, Encoded: testEncoded, PointCount: 3}, nil
		},
	}

	svc := newShapeService(repo, &mockPublisher{})
	line, err := svc.Geometry(context.Background(), "shape-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(line.Coordinates) != 3 {
		t.Fatalf("expected 3 coordinates, got %d", len(line.Coordinates))
	}
	if line.Coordinates[0] != testPath[0] {
		t.Errorf("expected %+v, got %+v", testPath[0], line.Coordinates[0])
	}
}

func TestShapeService_GetByID_NotFound(t *testing.T) {
	svc := newShapeService(&mockShapeRepo{}, &mockPublisher{})
	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, usecases.ErrShapeNotFound) {
		t.Fatalf("expected ErrShapeNotFound, got %v", err)
	}
}

func TestShapeService_Delete(t *testing.T) {
	deleted := ""
	repo := &mockShapeRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Shape, error) {
			return &domain.Shape{ID: id, ShapeKey: "metro:l1", Precision: 5}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	pub := &mockPublisher{}

	svc := newShapeService(repo, pub)
	if err := svc.Delete(context.Background(), "shape-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "shape-1" {
		t.Errorf("expected delete of shape-1, got %q", deleted)
	}
	if len(pub.shapeEvents) != 1 || pub.shapeEvents[0].Type != "deleted" {
		t.Errorf("expected one deleted event, got %+v", pub.shapeEvents)
	}
}

func TestShapeService_Reencode(t *testing.T) {
	var gotEncoded string
	var gotPrecision int
	repo := &mockShapeRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Shape, error) {
			return &domain.Shape{ID: id, Precision: 5, Encoded: testEncoded, PointCount: 3, UpdatedAt: time.Now()}, nil
		},
		updateEncodingFn: func(ctx context.Context, id, encoded string, precision, pointCount int) error {
			gotEncoded = encoded
			gotPrecision = precision
			return nil
		},
	}
	pub := &mockPublisher{}

	svc := newShapeService(repo, pub)
	shape, err := svc.Reencode(context.Background(), "shape-1", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPrecision != 6 {
		t.Errorf("expected precision 6 persisted, got %d", gotPrecision)
	}
	if shape.Encoded != gotEncoded {
		t.Errorf("returned shape not updated: %q vs %q", shape.Encoded, gotEncoded)
	}
	if shape.Precision != 6 {
		t.Errorf("expected returned precision 6, got %d", shape.Precision)
	}
	if len(pub.shapeEvents) != 1 || pub.shapeEvents[0].Type != "reencoded" {
		t.Errorf("expected one reencoded event, got %+v", pub.shapeEvents)
	}
}

func TestShapeService_Reencode_InvalidPrecision(t *testing.T) {
	updates := 0
	repo := &mockShapeRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Shape, error) {
			return &domain.Shape{ID: id, Precision: 5, Encoded: testEncoded, PointCount: 3}, nil
		},
		updateEncodingFn: func(ctx context.Context, id, encoded string, precision, pointCount int) error {
			updates++
			return nil
		},
	}

	svc := newShapeService(repo, &mockPublisher{})
	for _, precision := range []int{-3, 10} {
		if _, err := svc.Reencode(context.Background(), "shape-1", precision); !errors.Is(err, polyline.ErrInvalidPrecision) {
			t.Errorf("precision %d: expected ErrInvalidPrecision, got %v", precision, err)
		}
	}
	if updates != 0 {
		t.Errorf("expected no encoding update for invalid precision, got %d", updates)
	}
}

func TestShapeService_GetByKey(t *testing.T) {
	repo := &mockShapeRepo{
		getByKeyFn: func(ctx context.Context, key string) (*domain.Shape, error) {
			if key != "metro:l1" {
				return nil, nil
			}
			return &domain.Shape{ID: "shape-1", ShapeKey: key}, nil
		},
	}

	svc := newShapeService(repo, &mockPublisher{})
	shape, err := svc.GetByKey(context.Background(), "metro:l1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shape.ID != "shape-1" {
		t.Errorf("expected shape-1, got %q", shape.ID)
	}

	if _, err := svc.GetByKey(context.Background(), "metro:l9"); !errors.Is(err, usecases.ErrShapeNotFound) {
		t.Fatalf("expected ErrShapeNotFound, got %v", err)
	}
}

func TestShapeService_Reencode_SamePrecision(t *testing.T) {
	updates := 0
	repo := &mockShapeRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Shape, error) {
			return &domain.Shape{ID: id, Precision: 5, Encoded: testEncoded}, nil
		},
		updateEncodingFn: func(ctx context.Context, id, encoded string, precision, pointCount int) error {
			updates++
			return nil
		},
	}

	svc := newShapeService(repo, &mockPublisher{})
	if _, err := svc.Reencode(context.Background(), "shape-1", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updates != 0 {
		t.Errorf("expected no update for unchanged precision, got %d", updates)
	}
}
