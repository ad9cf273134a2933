package domain

import (
	"time"
)

// Shape is a stored route geometry, kept in its encoded polyline form.
// Geometry is only materialized on demand by decoding.
type Shape struct {
	ID         string         `json:"id"`
	ShapeKey   string         `json:"shape_key"`
	Name       string         `json:"name"`
	Precision  int            `json:"precision"`
	Encoded    string         `json:"encoded"`
	PointCount int            `json:"point_count"`
	Source     string         `json:"source,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TrackPoint is a single real-time position reading from a tracker
// (vehicle, bike, survey device). Accumulated points for one tracker form a
// track that can be closed into a Shape.
type TrackPoint struct {
	Time      time.Time      `json:"time"`
	TrackerID string         `json:"tracker_id"`
	ShapeID   string         `json:"shape_id,omitempty"`
	Location  GeoPoint       `json:"location"`
	Elevation float64        `json:"elevation,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ShapeEvent is published when a shape is created, re-encoded, or deleted.
type ShapeEvent struct {
	Type      string    `json:"type"` // "created" | "reencoded" | "deleted"
	ShapeID   string    `json:"shape_id"`
	ShapeKey  string    `json:"shape_key"`
	Precision int       `json:"precision"`
	Time      time.Time `json:"time"`
}
