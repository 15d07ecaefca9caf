package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "hrgate/pkg/domain"
)

// PostgresStore persists audit events in the audit_events table. It runs
// on database/sql with the lib/pq driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var userID any
	if !event.UserID.IsNil() {
		userID = uuid.UUID(event.UserID).String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(category, action, user_id, subject, decision, reason, request_id,
			 device, device_fingerprint, client_ip, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(event.Category), string(event.Action), userID, event.Subject,
		event.Decision, event.Reason, event.RequestID,
		event.Device, event.DeviceFingerprint, event.ClientIP, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByUser returns events for one user, newest first. Used by the HR
// admin surface to review a user's attendance decisions.
func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, action, user_id, subject, decision, reason, request_id,
		       device, device_fingerprint, client_ip, occurred_at
		FROM audit_events WHERE user_id = $1 ORDER BY occurred_at DESC LIMIT $2`,
		userID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var event Event
		var category, action string
		var rawUserID sql.NullString
		if err := rows.Scan(&category, &action, &rawUserID, &event.Subject,
			&event.Decision, &event.Reason, &event.RequestID,
			&event.Device, &event.DeviceFingerprint, &event.ClientIP, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = EventCategory(category)
		event.Action = Action(action)
		if rawUserID.Valid {
			parsed, err := id.ParseUserID(rawUserID.String)
			if err == nil {
				event.UserID = parsed
			}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
