package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gorosabel/shapeline/internal/core/domain"
	"github.com/gorosabel/shapeline/internal/pkg/metrics"
	"github.com/gorosabel/shapeline/polyline"
)

var tracer = otel.Tracer("shapeline/codec")

// ErrPointOutOfBounds is returned when bounds checking is enabled and a
// coordinate falls outside [-90, 90] latitude or [-180, 180] longitude.
var ErrPointOutOfBounds = errors.New("point out of bounds")

// CodecService wraps the polyline codec with service-level policy:
// precision defaulting, optional coordinate bounds checking, and metrics.
type CodecService struct {
	defaultPrecision int
	validateBounds   bool
}

// NewCodecService creates a new CodecService. defaultPrecision is used when a
// caller passes a negative precision; validateBounds rejects coordinates
// outside geographic range before encoding.
func NewCodecService(defaultPrecision int, validateBounds bool) *CodecService {
	if defaultPrecision < 0 || defaultPrecision > polyline.MaxPrecision {
		defaultPrecision = polyline.DefaultPrecision
	}
	return &CodecService{defaultPrecision: defaultPrecision, validateBounds: validateBounds}
}

// Encode converts a coordinate sequence into an encoded polyline string.
// A negative precision selects the service default.
func (s *CodecService) Encode(ctx context.Context, points []domain.GeoPoint, precision int) (string, error) {
	if precision < 0 {
		precision = s.defaultPrecision
	}

	_, span := tracer.Start(ctx, "codec.Encode")
	span.SetAttributes(
		attribute.Int("codec.precision", precision),
		attribute.Int("codec.points", len(points)),
	)
	defer span.End()

	if s.validateBounds {
		for i, p := range points {
			if !p.InBounds() {
				return "", fmt.Errorf("%w: point %d (%.6f, %.6f)", ErrPointOutOfBounds, i, p.Lat, p.Lon)
			}
		}
	}

	start := time.Now()
	encoded, err := polyline.Encode(toCodecPoints(points), precision)
	if err != nil {
		metrics.EncodeErrors.Inc()
		return "", err
	}
	metrics.EncodesTotal.Inc()
	metrics.EncodeDuration.Observe(time.Since(start).Seconds())
	metrics.EncodedPoints.Add(float64(len(points)))

	return encoded, nil
}

// Decode converts an encoded polyline string back into coordinates.
// A negative precision selects the service default.
func (s *CodecService) Decode(ctx context.Context, encoded string, precision int) ([]domain.GeoPoint, error) {
	if precision < 0 {
		precision = s.defaultPrecision
	}

	_, span := tracer.Start(ctx, "codec.Decode")
	span.SetAttributes(
		attribute.Int("codec.precision", precision),
		attribute.Int("codec.input_bytes", len(encoded)),
	)
	defer span.End()

	start := time.Now()
	pts, err := polyline.Decode(encoded, precision)
	if err != nil {
		metrics.DecodeErrors.Inc()
		return nil, err
	}
	metrics.DecodesTotal.Inc()
	metrics.DecodeDuration.Observe(time.Since(start).Seconds())

	return toGeoPoints(pts), nil
}

// DefaultPrecision returns the precision applied when callers do not choose one.
func (s *CodecService) DefaultPrecision() int {
	return s.defaultPrecision
}

func toCodecPoints(points []domain.GeoPoint) []polyline.Point {
	out := make([]polyline.Point, len(points))
	for i, p := range points {
		out[i] = polyline.Point{Lat: p.Lat, Lon: p.Lon}
	}
	return out
}

func toGeoPoints(points []polyline.Point) []domain.GeoPoint {
	out := make([]domain.GeoPoint, len(points))
	for i, p := range points {
		out[i] = domain.GeoPoint{Lat: p.Lat, Lon: p.Lon}
	}
	return out
}
