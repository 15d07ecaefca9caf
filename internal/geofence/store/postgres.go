package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrgate/internal/geofence/models"
	id "hrgate/pkg/domain"
	"hrgate/pkg/platform/sentinel"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// PostgresStore persists office locations in PostgreSQL.
// ListActive orders by created_at so zone evaluation order is stable.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, loc models.OfficeLocation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO office_locations
			(id, name, latitude, longitude, radius_meters, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		loc.ID.String(), loc.Name, loc.Latitude, loc.Longitude, loc.RadiusMeters,
		loc.Address, loc.IsActive, loc.CreatedAt, loc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, loc models.OfficeLocation) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE office_locations
		SET name = $2, latitude = $3, longitude = $4, radius_meters = $5,
			address = $6, is_active = $7, updated_at = $8
		WHERE id = $1`,
		loc.ID.String(), loc.Name, loc.Latitude, loc.Longitude, loc.RadiusMeters,
		loc.Address, loc.IsActive, loc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, locID id.LocationID) (models.OfficeLocation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, latitude, longitude, radius_meters, address, is_active, created_at, updated_at
		FROM office_locations WHERE id = $1`, locID.String())
	loc, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.OfficeLocation{}, sentinel.ErrNotFound
		}
		return models.OfficeLocation{}, fmt.Errorf("find location: %w", err)
	}
	return loc, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]models.OfficeLocation, error) {
	return s.list(ctx, `
		SELECT id, name, latitude, longitude, radius_meters, address, is_active, created_at, updated_at
		FROM office_locations WHERE is_active ORDER BY created_at`)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]models.OfficeLocation, error) {
	return s.list(ctx, `
		SELECT id, name, latitude, longitude, radius_meters, address, is_active, created_at, updated_at
		FROM office_locations ORDER BY created_at`)
}

func (s *PostgresStore) list(ctx context.Context, query string) ([]models.OfficeLocation, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var out []models.OfficeLocation
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func scanLocation(row pgx.Row) (models.OfficeLocation, error) {
	var loc models.OfficeLocation
	var rawID string
	err := row.Scan(&rawID, &loc.Name, &loc.Latitude, &loc.Longitude, &loc.RadiusMeters,
		&loc.Address, &loc.IsActive, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return models.OfficeLocation{}, err
	}
	parsed, err := id.ParseLocationID(rawID)
	if err != nil {
		return models.OfficeLocation{}, err
	}
	loc.ID = parsed
	return loc, nil
}
