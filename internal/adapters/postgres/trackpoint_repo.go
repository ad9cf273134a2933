package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gorosabel/shapeline/internal/core/domain"
)

// TrackPointRepo implements ports.TrackPointRepository.
type TrackPointRepo struct {
	db *DB
}

func NewTrackPointRepo(db *DB) *TrackPointRepo {
	return &TrackPointRepo{db: db}
}

func (r *TrackPointRepo) Insert(ctx context.Context, tp *domain.TrackPoint) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO track_points (time, tracker_id, shape_id, lat, lon, elevation, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, tp.Time, tp.TrackerID, nilIfEmpty(tp.ShapeID),
		tp.Location.Lat, tp.Location.Lon, tp.Elevation, tp.Metadata)
	return err
}

func (r *TrackPointRepo) InsertBatch(ctx context.Context, tps []domain.TrackPoint) error {
	batch := &pgx.Batch{}
	for _, tp := range tps {
		batch.Queue(`
			INSERT INTO track_points (time, tracker_id, shape_id, lat, lon, elevation, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, tp.Time, tp.TrackerID, nilIfEmpty(tp.ShapeID),
			tp.Location.Lat, tp.Location.Lon, tp.Elevation, tp.Metadata)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range tps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

func (r *TrackPointRepo) ListByTracker(ctx context.Context, trackerID string, since time.Time, limit int) ([]domain.TrackPoint, error) {
	// limit <= 0 means no limit; NULL disables the LIMIT clause.
	var lim interface{}
	if limit > 0 {
		lim = limit
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT time, tracker_id, COALESCE(shape_id::text, ''), lat, lon, elevation, metadata
		FROM track_points
		WHERE tracker_id = $1 AND time >= $2
		ORDER BY time
		LIMIT $3
	`, trackerID, since, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.TrackPoint
	for rows.Next() {
		var tp domain.TrackPoint
		if err := rows.Scan(&tp.Time, &tp.TrackerID, &tp.ShapeID,
			&tp.Location.Lat, &tp.Location.Lon, &tp.Elevation, &tp.Metadata); err != nil {
			return nil, err
		}
		points = append(points, tp)
	}
	return points, rows.Err()
}

func (r *TrackPointRepo) DeleteByTracker(ctx context.Context, trackerID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM track_points WHERE tracker_id = $1`, trackerID)
	return err
}
