// Package domain defines typed identifiers shared across features.
//
// Each ID is a distinct named UUID type so the compiler rejects mixing a
// UserID with a LocationID. Parsers validate at trust boundaries: IDs must
// be valid, non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "hrgate/pkg/domain-errors"
)

type (
	// UserID identifies an employee.
	UserID uuid.UUID
	// LocationID identifies an office geofence zone.
	LocationID uuid.UUID
	// AttendanceID identifies one attendance record (one user, one day).
	AttendanceID uuid.UUID
	// CredentialID identifies a stored biometric credential row.
	CredentialID uuid.UUID
)

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id LocationID) String() string   { return uuid.UUID(id).String() }
func (id AttendanceID) String() string { return uuid.UUID(id).String() }
func (id CredentialID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id LocationID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id AttendanceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewUserID generates a fresh user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewLocationID generates a fresh location ID.
func NewLocationID() LocationID { return LocationID(uuid.New()) }

// NewAttendanceID generates a fresh attendance record ID.
func NewAttendanceID() AttendanceID { return AttendanceID(uuid.New()) }

// NewCredentialID generates a fresh credential row ID.
func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseUserID validates and converts a string into a UserID.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseLocationID validates and converts a string into a LocationID.
func ParseLocationID(raw string) (LocationID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return LocationID{}, err
	}
	return LocationID(parsed), nil
}

// ParseAttendanceID validates and converts a string into an AttendanceID.
func ParseAttendanceID(raw string) (AttendanceID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return AttendanceID{}, err
	}
	return AttendanceID(parsed), nil
}

// ParseCredentialID validates and converts a string into a CredentialID.
func ParseCredentialID(raw string) (CredentialID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return CredentialID{}, err
	}
	return CredentialID(parsed), nil
}
