// Package audit captures who did what to the attendance system and why a
// decision came out the way it did. Events are transport-agnostic so
// stores and sinks can fan out.
package audit

import (
	"time"

	id "hrgate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryAttendance covers decisions on check-in/check-out requests.
	CategoryAttendance EventCategory = "attendance"

	// CategorySecurity covers biometric enrollment/verification outcomes
	// and admin-token rejections.
	CategorySecurity EventCategory = "security"

	// CategoryAdministration covers HR edits to office locations and
	// manual status designations.
	CategoryAdministration EventCategory = "administration"
)

// Action names follow "subject_verb" so downstream consumers can filter
// without parsing.
type Action string

const (
	ActionCheckInRecorded    Action = "check_in_recorded"
	ActionCheckInDenied      Action = "check_in_denied"
	ActionCheckOutRecorded   Action = "check_out_recorded"
	ActionCheckOutDenied     Action = "check_out_denied"
	ActionCredentialEnrolled Action = "credential_enrolled"
	ActionCredentialRevoked  Action = "credential_revoked"
	ActionBiometricVerified  Action = "biometric_verified"
	ActionBiometricRejected  Action = "biometric_rejected"
	ActionLocationCreated    Action = "location_created"
	ActionLocationUpdated    Action = "location_updated"
	ActionLocationDisabled   Action = "location_disabled"
	ActionStatusDesignated   Action = "status_designated"
	ActionDeviceChanged      Action = "device_changed"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Category  EventCategory
	Action    Action
	Timestamp time.Time
	UserID    id.UserID
	// Subject names the entity acted on when it is not the user, e.g. a
	// location ID or credential ID.
	Subject string
	// Decision is "allowed" or "denied" for gate decisions, empty otherwise.
	Decision string
	// Reason carries the denial reason or other short context.
	Reason string
	// RequestID correlates the event with the HTTP access log.
	RequestID string
	// Device is the parsed device display name of the requester.
	Device string
	// DeviceFingerprint is the stable hash of the requester's device.
	DeviceFingerprint string
	// ClientIP is the requester's address as seen by the edge.
	ClientIP string
}

func (e EventCategory) String() string { return string(e) }
func (a Action) String() string        { return string(a) }
