package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gorosabel/shapeline/internal/core/domain"
)

// ShapeRepo implements ports.ShapeRepository.
type ShapeRepo struct {
	db *DB
}

func NewShapeRepo(db *DB) *ShapeRepo { return &ShapeRepo{db: db} }

func (r *ShapeRepo) Create(ctx context.Context, shape *domain.Shape) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO shapes (id, shape_key, name, precision, encoded, point_count, source, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, shape.ID, shape.ShapeKey, shape.Name, shape.Precision, shape.Encoded,
		shape.PointCount, nilIfEmpty(shape.Source), shape.Metadata,
		shape.CreatedAt, shape.UpdatedAt)
	return err
}

func (r *ShapeRepo) GetByID(ctx context.Context, id string) (*domain.Shape, error) {
	return r.getByField(ctx, "id", id)
}

func (r *ShapeRepo) GetByKey(ctx context.Context, key string) (*domain.Shape, error) {
	return r.getByField(ctx, "shape_key", key)
}

func (r *ShapeRepo) getByField(ctx context.Context, field, value string) (*domain.Shape, error) {
	var s domain.Shape
	err := r.db.Pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, shape_key, name, precision, encoded, point_count,
		       COALESCE(source, ''), metadata, created_at, updated_at
		FROM shapes WHERE %s = $1
	`, field), value).Scan(&s.ID, &s.ShapeKey, &s.Name, &s.Precision, &s.Encoded,
		&s.PointCount, &s.Source, &s.Metadata, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ShapeRepo) List(ctx context.Context, source string, limit, offset int) ([]domain.Shape, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, shape_key, name, precision, encoded, point_count,
		       COALESCE(source, ''), metadata, created_at, updated_at
		FROM shapes
		WHERE ($1 = '' OR source = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, source, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shapes []domain.Shape
	for rows.Next() {
		var s domain.Shape
		if err := rows.Scan(&s.ID, &s.ShapeKey, &s.Name, &s.Precision, &s.Encoded,
			&s.PointCount, &s.Source, &s.Metadata, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		shapes = append(shapes, s)
	}
	return shapes, rows.Err()
}

func (r *ShapeRepo) UpdateEncoding(ctx context.Context, id string, encoded string, precision, pointCount int) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE shapes
		SET encoded = $2, precision = $3, point_count = $4, updated_at = now()
		WHERE id = $1
	`, id, encoded, precision, pointCount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shape %s not found", id)
	}
	return nil
}

func (r *ShapeRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM shapes WHERE id = $1`, id)
	return err
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
