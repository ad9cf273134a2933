package workflows

import (
	"context"
	"errors"
	"testing"

	"go.temporal.io/sdk/testsuite"

	"github.com/gorosabel/shapeline/internal/core/domain"
	"github.com/gorosabel/shapeline/internal/core/usecases"
	"github.com/gorosabel/shapeline/polyline"
)

func newTestCodec() *usecases.CodecService {
	return usecases.NewCodecService(5, true)
}

type mockShapeRepo struct {
	getByIDFn        func(ctx context.Context, id string) (*domain.Shape, error)
	updateEncodingFn func(ctx context.Context, id, encoded string, precision, pointCount int) error
}

func (m *mockShapeRepo) Create(ctx context.Context, s *domain.Shape) error { return nil }
func (m *mockShapeRepo) GetByID(ctx context.Context, id string) (*domain.Shape, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockShapeRepo) GetByKey(ctx context.Context, key string) (*domain.Shape, error) {
	return nil, nil
}
func (m *mockShapeRepo) List(ctx context.Context, source string, limit, offset int) ([]domain.Shape, error) {
	return nil, nil
}
func (m *mockShapeRepo) UpdateEncoding(ctx context.Context, id, encoded string, precision, pointCount int) error {
	return m.updateEncodingFn(ctx, id, encoded, precision, pointCount)
}
func (m *mockShapeRepo) Delete(ctx context.Context, id string) error { return nil }

type mockPublisher struct {
	publishFn func(ctx context.Context, e *domain.ShapeEvent) error
}

func (m *mockPublisher) PublishTrackPoint(ctx context.Context, p *domain.TrackPoint) error {
	return nil
}
func (m *mockPublisher) PublishShapeEvent(ctx context.Context, e *domain.ShapeEvent) error {
	return m.publishFn(ctx, e)
}

type encodingUpdate struct {
	encoded    string
	precision  int
	pointCount int
}

func storedShape() *domain.Shape {
	return &domain.Shape{
		ID:         "shape-1",
		ShapeKey:   "route:17",
		Precision:  5,
		Encoded:    "_p~iF~ps|U_ulLnnqC_mqNvxq`@",
		PointCount: 3,
	}
}

func TestReencodeWorkflow_Success(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	shape := storedShape()
	var updates []encodingUpdate

	repo := &mockShapeRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Shape, error) {
			return shape, nil
		},
		updateEncodingFn: func(ctx context.Context, id, encoded string, precision, pointCount int) error {
			updates = append(updates, encodingUpdate{encoded, precision, pointCount})
			shape.Encoded = encoded
			shape.Precision = precision
			return nil
		},
	}
	pub := &mockPublisher{
		publishFn: func(ctx context.Context, e *domain.ShapeEvent) error { return nil },
	}

	env.RegisterWorkflow(ReencodeWorkflow)
	env.RegisterActivity(&ReencodeActivities{
		Codec:     newTestCodec(),
		Shapes:    repo,
		Publisher: pub,
	})

	env.ExecuteWorkflow(ReencodeWorkflow, ReencodeInput{ShapeID: "shape-1", Precision: 6})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 encoding update, got %d", len(updates))
	}
	if updates[0].precision != 6 {
		t.Errorf("expected precision 6, got %d", updates[0].precision)
	}
	if updates[0].encoded == "_p~iF~ps|U_ulLnnqC_mqNvxq`@" {
		t.Error("expected a different encoding at precision 6")
	}
}

func TestReencodeShapeActivity_InvalidPrecision(t *testing.T) {
	var updated bool
	repo := &mockShapeRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Shape, error) {
			return storedShape(), nil
		},
		updateEncodingFn: func(ctx context.Context, id, encoded string, precision, pointCount int) error {
			updated = true
			return nil
		},
	}
	acts := &ReencodeActivities{Codec: newTestCodec(), Shapes: repo}

	for _, precision := range []int{-3, 10} {
		if err := acts.ReencodeShape(context.Background(), "shape-1", precision); !errors.Is(err, polyline.ErrInvalidPrecision) {
			t.Errorf("precision %d: expected ErrInvalidPrecision, got %v", precision, err)
		}
	}
	if updated {
		t.Error("expected no encoding update for invalid precision")
	}
}

func TestReencodeWorkflow_SamePrecision(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	var updated bool
	repo := &mockShapeRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Shape, error) {
			return storedShape(), nil
		},
		updateEncodingFn: func(ctx context.Context, id, encoded string, precision, pointCount int) error {
			updated = true
			return nil
		},
	}
	pub := &mockPublisher{
		publishFn: func(ctx context.Context, e *domain.ShapeEvent) error { return nil },
	}

	env.RegisterWorkflow(ReencodeWorkflow)
	env.RegisterActivity(&ReencodeActivities{Codec: newTestCodec(), Shapes: repo, Publisher: pub})

	env.ExecuteWorkflow(ReencodeWorkflow, ReencodeInput{ShapeID: "shape-1", Precision: 5})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if updated {
		t.Error("expected no encoding update at same precision")
	}
}

func TestReencodeWorkflow_PublishFailureRestores(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	shape := storedShape()
	original := shape.Encoded
	var updates []encodingUpdate

	repo := &mockShapeRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Shape, error) {
			return shape, nil
		},
		updateEncodingFn: func(ctx context.Context, id, encoded string, precision, pointCount int) error {
			updates = append(updates, encodingUpdate{encoded, precision, pointCount})
			shape.Encoded = encoded
			shape.Precision = precision
			return nil
		},
	}
	pub := &mockPublisher{
		publishFn: func(ctx context.Context, e *domain.ShapeEvent) error {
			return errors.New("broker down")
		},
	}

	env.RegisterWorkflow(ReencodeWorkflow)
	env.RegisterActivity(&ReencodeActivities{Codec: newTestCodec(), Shapes: repo, Publisher: pub})

	env.ExecuteWorkflow(ReencodeWorkflow, ReencodeInput{ShapeID: "shape-1", Precision: 6})

	if err := env.GetWorkflowError(); err == nil {
		t.Fatal("expected workflow error when publish fails")
	}
	// Reencode update plus the compensating restore
	if len(updates) != 2 {
		t.Fatalf("expected 2 encoding updates, got %d", len(updates))
	}
	last := updates[len(updates)-1]
	if last.encoded != original || last.precision != 5 {
		t.Errorf("expected restore to %q at precision 5, got %q at %d", original, last.encoded, last.precision)
	}
}
