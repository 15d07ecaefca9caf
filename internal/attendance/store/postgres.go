package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrgate/internal/attendance/models"
	id "hrgate/pkg/domain"
	"hrgate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists records in the attendance table. The
// UNIQUE(user_id, day) constraint is what makes concurrent check-ins safe:
// the database picks the winner, not application code.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, r models.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attendance
			(id, user_id, day, check_in_time, status, working_hours,
			 check_in_latitude, check_in_longitude, check_in_verified, check_in_location,
			 check_in_biometric, device_name, device_fingerprint, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		r.ID, r.UserID, r.Day, r.CheckInTime, r.Status, r.WorkingHours,
		r.CheckIn.Latitude, r.CheckIn.Longitude, r.CheckIn.Verified, r.CheckIn.LocationName,
		r.CheckInBiometric, r.DeviceName, r.DeviceFingerprint, r.CreatedAt, r.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByUserAndDay(ctx context.Context, userID id.UserID, day time.Time) (models.Record, error) {
	row := s.pool.QueryRow(ctx, selectRecord+` WHERE user_id = $1 AND day = $2`, userID, day)
	return scanRecord(row)
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.AttendanceID) (models.Record, error) {
	row := s.pool.QueryRow(ctx, selectRecord+` WHERE id = $1`, recordID)
	return scanRecord(row)
}

func (s *PostgresStore) Update(ctx context.Context, r models.Record) error {
	var (
		outLat, outLon *float64
		outVerified    *bool
		outLocation    *string
	)
	if r.CheckOut != nil {
		outLat = &r.CheckOut.Latitude
		outLon = &r.CheckOut.Longitude
		outVerified = &r.CheckOut.Verified
		outLocation = &r.CheckOut.LocationName
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE attendance
		SET check_out_time = $2, status = $3, working_hours = $4,
		    check_out_latitude = $5, check_out_longitude = $6,
		    check_out_verified = $7, check_out_location = $8,
		    check_out_biometric = $9, updated_at = $10
		WHERE id = $1`,
		r.ID, r.CheckOutTime, r.Status, r.WorkingHours,
		outLat, outLon, outVerified, outLocation,
		r.CheckOutBiometric, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByUserRange(ctx context.Context, userID id.UserID, from, to time.Time) ([]models.Record, error) {
	rows, err := s.pool.Query(ctx, selectRecord+`
		WHERE user_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

const selectRecord = `
	SELECT id, user_id, day, check_in_time, check_out_time, status, working_hours,
	       check_in_latitude, check_in_longitude, check_in_verified, check_in_location,
	       check_out_latitude, check_out_longitude, check_out_verified, check_out_location,
	       check_in_biometric, check_out_biometric, device_name, device_fingerprint,
	       created_at, updated_at
	FROM attendance`

func scanRecord(row pgx.Row) (models.Record, error) {
	var (
		r           models.Record
		outLat      *float64
		outLon      *float64
		outVerified *bool
		outLocation *string
	)
	err := row.Scan(
		&r.ID, &r.UserID, &r.Day, &r.CheckInTime, &r.CheckOutTime, &r.Status, &r.WorkingHours,
		&r.CheckIn.Latitude, &r.CheckIn.Longitude, &r.CheckIn.Verified, &r.CheckIn.LocationName,
		&outLat, &outLon, &outVerified, &outLocation,
		&r.CheckInBiometric, &r.CheckOutBiometric, &r.DeviceName, &r.DeviceFingerprint,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("scan attendance record: %w", err)
	}
	if outLat != nil && outLon != nil {
		r.CheckOut = &models.GeoStamp{
			Latitude:  *outLat,
			Longitude: *outLon,
		}
		if outVerified != nil {
			r.CheckOut.Verified = *outVerified
		}
		if outLocation != nil {
			r.CheckOut.LocationName = *outLocation
		}
	}
	// Day and timestamps come back in the session time zone.
	r.Day = models.DayOf(r.Day)
	return r, nil
}
