package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrgate/internal/biometric/models"
	id "hrgate/pkg/domain"
	"hrgate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists credentials in the biometric_credentials table.
// The full webauthn credential (public key, sign counter, flags) is stored
// as a JSON column; the base64url credential ID is indexed separately.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, cred models.Credential) error {
	payload, err := json.Marshal(cred.Credential)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO biometric_credentials
			(id, user_id, credential_id, credential, label, created_at, updated_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		cred.ID, cred.UserID, cred.CredentialID, payload, cred.Label,
		cred.CreatedAt, cred.UpdatedAt, cred.LastUsedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.Credential, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, credential_id, credential, label, created_at, updated_at, last_used_at
		FROM biometric_credentials
		WHERE user_id = $1
		ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []models.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

func (s *PostgresStore) FindByUserAndCredentialID(ctx context.Context, userID id.UserID, credentialID string) (models.Credential, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, credential_id, credential, label, created_at, updated_at, last_used_at
		FROM biometric_credentials
		WHERE user_id = $1 AND credential_id = $2`,
		userID, credentialID,
	)
	cred, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Credential{}, sentinel.ErrNotFound
	}
	return cred, err
}

func (s *PostgresStore) Update(ctx context.Context, cred models.Credential) error {
	payload, err := json.Marshal(cred.Credential)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE biometric_credentials
		SET credential = $3, label = $4, updated_at = $5, last_used_at = $6
		WHERE user_id = $1 AND credential_id = $2`,
		cred.UserID, cred.CredentialID, payload, cred.Label, cred.UpdatedAt, cred.LastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID, credentialID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM biometric_credentials
		WHERE user_id = $1 AND credential_id = $2`,
		userID, credentialID,
	)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanCredential(row pgx.Row) (models.Credential, error) {
	var (
		cred       models.Credential
		payload    []byte
		lastUsedAt *time.Time
	)
	err := row.Scan(&cred.ID, &cred.UserID, &cred.CredentialID, &payload,
		&cred.Label, &cred.CreatedAt, &cred.UpdatedAt, &lastUsedAt)
	if err != nil {
		return models.Credential{}, err
	}
	var stored webauthn.Credential
	if err := json.Unmarshal(payload, &stored); err != nil {
		return models.Credential{}, fmt.Errorf("unmarshal credential: %w", err)
	}
	cred.Credential = stored
	cred.LastUsedAt = lastUsedAt
	return cred, nil
}
