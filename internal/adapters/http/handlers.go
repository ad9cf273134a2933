package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gorosabel/shapeline/internal/core/domain"
	"github.com/gorosabel/shapeline/internal/core/usecases"
	"github.com/gorosabel/shapeline/polyline"
)

// encodeRequest is the body for POST /v1/encode.
type encodeRequest struct {
	Points    []domain.GeoPoint `json:"points"`
	Precision *int              `json:"precision"`
}

// encodeResponse carries an encoded polyline and its parameters.
type encodeResponse struct {
	Encoded    string `json:"encoded"`
	Precision  int    `json:"precision"`
	PointCount int    `json:"point_count"`
}

// decodeRequest is the body for POST /v1/decode.
type decodeRequest struct {
	Encoded   string `json:"encoded"`
	Precision *int   `json:"precision"`
}

// decodeResponse carries decoded coordinates and the precision used.
type decodeResponse struct {
	Points     []domain.GeoPoint `json:"points"`
	Precision  int               `json:"precision"`
	PointCount int               `json:"point_count"`
}

// codecError maps codec failures to HTTP errors.
func codecError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, polyline.ErrInvalidPrecision):
		return errBadRequest(c, err.Error())
	case errors.Is(err, usecases.ErrPointOutOfBounds):
		return errBadRequest(c, err.Error())
	case errors.Is(err, polyline.ErrMalformedInput):
		return errUnprocessable(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}

// precisionOrDefault resolves an optional request precision; nil means the
// service default (signalled downstream with -1).
func precisionOrDefault(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

// EncodeHandler encodes a coordinate sequence into a polyline string.
func EncodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req encodeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Points) > 1_000_000 {
			return errBadRequest(c, "too many points (max 1000000)")
		}

		precision := precisionOrDefault(req.Precision)
		encoded, err := deps.Codec.Encode(c.Context(), req.Points, precision)
		if err != nil {
			return codecError(c, err)
		}
		if precision < 0 {
			precision = deps.Codec.DefaultPrecision()
		}

		return c.JSON(encodeResponse{
			Encoded:    encoded,
			Precision:  precision,
			PointCount: len(req.Points),
		})
	}
}

// DecodeHandler decodes a polyline string into coordinates.
func DecodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req decodeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		precision := precisionOrDefault(req.Precision)
		points, err := deps.Codec.Decode(c.Context(), req.Encoded, precision)
		if err != nil {
			return codecError(c, err)
		}
		if precision < 0 {
			precision = deps.Codec.DefaultPrecision()
		}

		return c.JSON(decodeResponse{
			Points:     points,
			Precision:  precision,
			PointCount: len(points),
		})
	}
}

// createShapeRequest is the body for POST /v1/shapes.
type createShapeRequest struct {
	Name      string            `json:"name"`
	ShapeKey  string            `json:"shape_key"`
	Source    string            `json:"source"`
	Points    []domain.GeoPoint `json:"points"`
	Precision *int              `json:"precision"`
}

// CreateShapeHandler encodes and stores a new shape.
func CreateShapeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createShapeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Points) == 0 {
			return errBadRequest(c, "points are required")
		}

		shape, err := deps.Shapes.Create(c.Context(), req.Name, req.ShapeKey, req.Source,
			req.Points, precisionOrDefault(req.Precision))
		if err != nil {
			return codecError(c, err)
		}
		return c.Status(201).JSON(shape)
	}
}

// ListShapesHandler lists shapes, optionally filtered by source.
func ListShapesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		source := c.Query("source")
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 50
		}

		shapes, err := deps.Shapes.List(c.Context(), source, limit, offset)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Count: len(shapes)}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: shapes, Pagination: pg})
	}
}

// GetShapeHandler returns a single shape by ID, encoding included.
func GetShapeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "shape id is required")
		}
		shape, err := deps.Shapes.GetByID(c.Context(), id)
		if err != nil {
			if errors.Is(err, usecases.ErrShapeNotFound) {
				return errNotFound(c, "shape not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(shape)
	}
}

// GetShapeByKeyHandler returns a single shape by its external key.
func GetShapeByKeyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")
		if key == "" {
			return errBadRequest(c, "shape key is required")
		}
		shape, err := deps.Shapes.GetByKey(c.Context(), key)
		if err != nil {
			if errors.Is(err, usecases.ErrShapeNotFound) {
				return errNotFound(c, "shape not found")
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(shape)
	}
}

// geometryResponse is the decoded line plus its bounding box.
type geometryResponse struct {
	Coordinates []domain.GeoPoint `json:"coordinates"`
	Bounds      domain.Bounds     `json:"bounds"`
}

// ShapeGeometryHandler returns a shape's decoded coordinates.
func ShapeGeometryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "shape id is required")
		}
		line, err := deps.Shapes.Geometry(c.Context(), id)
		if err != nil {
			if errors.Is(err, usecases.ErrShapeNotFound) {
				return errNotFound(c, "shape not found")
			}
			return codecError(c, err)
		}

		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(geometryResponse{Coordinates: line.Coordinates, Bounds: line.Bounds()})
	}
}

// DeleteShapeHandler removes a shape.
func DeleteShapeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "shape id is required")
		}
		if err := deps.Shapes.Delete(c.Context(), id); err != nil {
			if errors.Is(err, usecases.ErrShapeNotFound) {
				return errNotFound(c, "shape not found")
			}
			return errInternal(c, err.Error())
		}
		return c.SendStatus(204)
	}
}

// reencodeRequest is the body for POST /v1/shapes/:id/reencode.
// Precision is a pointer so an omitted field is rejected rather than
// silently re-encoding at precision 0.
type reencodeRequest struct {
	Precision *int `json:"precision"`
}

// ReencodeShapeHandler re-encodes a stored shape at a new precision.
func ReencodeShapeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "shape id is required")
		}
		var req reencodeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Precision == nil {
			return errBadRequest(c, "precision is required")
		}

		shape, err := deps.Shapes.Reencode(c.Context(), id, *req.Precision)
		if err != nil {
			if errors.Is(err, usecases.ErrShapeNotFound) {
				return errNotFound(c, "shape not found")
			}
			return codecError(c, err)
		}
		return c.JSON(shape)
	}
}

// ingestPointRequest is the body for POST /v1/trackers/:id/points.
type ingestPointRequest struct {
	Time      time.Time       `json:"time"`
	Location  domain.GeoPoint `json:"location"`
	Elevation float64         `json:"elevation"`
}

// IngestTrackPointHandler stores a single tracker position.
func IngestTrackPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trackerID := c.Params("id")
		if trackerID == "" {
			return errBadRequest(c, "tracker id is required")
		}
		var req ingestPointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		tp := &domain.TrackPoint{
			Time:      req.Time,
			TrackerID: trackerID,
			Location:  req.Location,
			Elevation: req.Elevation,
		}
		if err := deps.Tracks.Ingest(c.Context(), tp); err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(202).JSON(tp)
	}
}

// batchIngestRequest is the body for POST /v1/trackers/:id/points/batch.
type batchIngestRequest struct {
	Points []ingestPointRequest `json:"points"`
}

// BatchIngestHandler stores a batch of tracker positions in one round trip.
func BatchIngestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trackerID := c.Params("id")
		if trackerID == "" {
			return errBadRequest(c, "tracker id is required")
		}
		var req batchIngestRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Points) == 0 {
			return errBadRequest(c, "points must not be empty")
		}
		if len(req.Points) > 10_000 {
			return errBadRequest(c, "too many points (max 10000)")
		}

		tps := make([]domain.TrackPoint, len(req.Points))
		for i, p := range req.Points {
			tps[i] = domain.TrackPoint{
				Time:      p.Time,
				TrackerID: trackerID,
				Location:  p.Location,
				Elevation: p.Elevation,
			}
		}
		if err := deps.Tracks.IngestBatch(c.Context(), tps); err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(202).JSON(fiber.Map{"accepted": len(tps)})
	}
}

// TrackerPointsHandler returns a tracker's recorded positions.
func TrackerPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trackerID := c.Params("id")
		if trackerID == "" {
			return errBadRequest(c, "tracker id is required")
		}

		var since time.Time
		if raw := c.Query("since"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return errBadRequest(c, "since must be RFC 3339")
			}
			since = t
		}
		limit := c.QueryInt("limit", 1000)

		points, err := deps.Tracks.ListPoints(c.Context(), trackerID, since, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(points)
	}
}

// closeTrackRequest is the body for POST /v1/trackers/:id/close.
type closeTrackRequest struct {
	Name      string `json:"name"`
	Precision *int   `json:"precision"`
}

// CloseTrackHandler compresses a tracker's points into a stored shape.
func CloseTrackHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trackerID := c.Params("id")
		if trackerID == "" {
			return errBadRequest(c, "tracker id is required")
		}
		var req closeTrackRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		shape, err := deps.Tracks.CloseTrack(c.Context(), trackerID, req.Name,
			precisionOrDefault(req.Precision))
		if err != nil {
			if errors.Is(err, usecases.ErrEmptyTrack) {
				return errNotFound(c, "no points recorded for tracker")
			}
			return codecError(c, err)
		}
		return c.Status(201).JSON(shape)
	}
}

// StoreStats holds row counts from the shape store.
type StoreStats struct {
	Shapes      int    `json:"shapes"`
	TrackPoints int    `json:"track_points"`
	LastShape   string `json:"last_shape,omitempty"`
}

// StoreStatsHandler returns row counts from the shape store.
func StoreStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats StoreStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM shapes),
				(SELECT count(*) FROM track_points),
				COALESCE((SELECT max(created_at)::text FROM shapes), '')
		`)
		if err := row.Scan(&stats.Shapes, &stats.TrackPoints, &stats.LastShape); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}
