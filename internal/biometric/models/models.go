// Package models defines biometric credential records and ceremony sessions.
package models

import (
	"encoding/base64"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"

	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
)

// Credential is a stored WebAuthn credential bound to one user. The raw
// authenticator credential ID is kept base64url-encoded for indexing; the
// full webauthn.Credential (public key, sign counter, flags) rides along
// as JSON in the store.
type Credential struct {
	ID           id.CredentialID
	UserID       id.UserID
	CredentialID string
	Credential   webauthn.Credential
	Label        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastUsedAt   *time.Time
}

// NewCredential wraps a freshly minted webauthn credential. Enrollment is
// rejected outright when the authenticator produced no public key; there is
// no fallback path that stores an unverifiable credential.
func NewCredential(userID id.UserID, cred *webauthn.Credential, label string, now time.Time) (Credential, error) {
	if userID.IsNil() {
		return Credential{}, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if cred == nil || len(cred.ID) == 0 {
		return Credential{}, dErrors.New(dErrors.CodeInvalidInput, "credential is required")
	}
	if len(cred.PublicKey) == 0 {
		return Credential{}, dErrors.New(dErrors.CodeInvalidInput, "credential has no public key")
	}
	return Credential{
		ID:           id.NewCredentialID(),
		UserID:       userID,
		CredentialID: EncodeCredentialID(cred.ID),
		Credential:   *cred,
		Label:        label,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// EncodeCredentialID renders a raw authenticator credential ID as
// unpadded base64url, the form used in store keys and API responses.
func EncodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

// CeremonyKind discriminates the two WebAuthn ceremonies so a registration
// session can never be replayed to finish a verification.
type CeremonyKind string

const (
	CeremonyEnrollment   CeremonyKind = "enrollment"
	CeremonyVerification CeremonyKind = "verification"
)

// CeremonySession is the server-side half of an in-flight ceremony. It is
// stored keyed by (user, kind) with a TTL; abandoning the ceremony leaves
// no credential rows behind.
type CeremonySession struct {
	Kind      CeremonyKind
	UserID    id.UserID
	Data      webauthn.SessionData
	CreatedAt time.Time
}
