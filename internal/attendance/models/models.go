// Package models defines attendance records and their state transitions.
// Invariants live in constructors and transition methods so a Record can
// never hold a negative working-hours value or checkout-before-check-in.
package models

import (
	"time"

	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
)

// Status of an attendance record.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	// StatusAbsent is assigned by the nightly batch process, never by the
	// decision gate.
	StatusAbsent Status = "absent"
	// StatusHalfDay is a manual HR designation.
	StatusHalfDay Status = "half_day"
)

// GeoStamp captures where a check-in or checkout happened and whether the
// geofence validator confirmed it.
type GeoStamp struct {
	Latitude     float64
	Longitude    float64
	Verified     bool
	LocationName string
}

// Record is one user's attendance for one calendar day. At most one record
// exists per (user, day); the persistence layer enforces that with a
// uniqueness constraint.
type Record struct {
	ID     id.AttendanceID
	UserID id.UserID
	// Day is the calendar day in UTC, truncated to midnight.
	Day time.Time

	CheckInTime  time.Time
	CheckOutTime *time.Time
	Status       Status
	// WorkingHours is derived from the two timestamps; never negative.
	WorkingHours float64

	CheckIn           GeoStamp
	CheckOut          *GeoStamp
	CheckInBiometric  bool
	CheckOutBiometric bool

	DeviceName string
	// DeviceFingerprint is the stable hash of the check-in device; checkout
	// punches from a different fingerprint are flagged in the audit trail.
	DeviceFingerprint string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewRecord constructs the check-in half of a record.
func NewRecord(userID id.UserID, checkIn time.Time, stamp GeoStamp, biometric bool, status Status, deviceName, deviceFingerprint string) (Record, error) {
	if userID.IsNil() {
		return Record{}, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if checkIn.IsZero() {
		return Record{}, dErrors.New(dErrors.CodeInvalidInput, "check-in time is required")
	}
	return Record{
		ID:                id.NewAttendanceID(),
		UserID:            userID,
		Day:               DayOf(checkIn),
		CheckInTime:       checkIn,
		Status:            status,
		CheckIn:           stamp,
		CheckInBiometric:  biometric,
		DeviceName:        deviceName,
		DeviceFingerprint: deviceFingerprint,
		CreatedAt:         checkIn,
		UpdatedAt:         checkIn,
	}, nil
}

// Complete records the checkout. It is rejected when the record is already
// completed (idempotency: a second checkout is an error, not an overwrite)
// or when the checkout timestamp precedes check-in.
func (r *Record) Complete(checkOut time.Time, stamp GeoStamp, biometric bool) error {
	if r.CheckOutTime != nil {
		return dErrors.New(dErrors.CodeConflict, "checkout already recorded for this day")
	}
	if checkOut.Before(r.CheckInTime) {
		return dErrors.New(dErrors.CodeInvalidInput, "checkout time precedes check-in time")
	}
	hours := checkOut.Sub(r.CheckInTime).Hours()

	r.CheckOutTime = &checkOut
	r.CheckOut = &stamp
	r.CheckOutBiometric = biometric
	r.WorkingHours = hours
	r.UpdatedAt = checkOut
	return nil
}

// Completed reports whether checkout fields are populated.
func (r *Record) Completed() bool { return r.CheckOutTime != nil }

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Schedule holds the org's workday policy. Check-ins after LateAfter are
// marked late; WorkdayStart exists for reporting and future policies.
type Schedule struct {
	WorkdayStart TimeOfDay
	LateAfter    TimeOfDay
}

// StatusForCheckIn derives the initial status from the check-in clock time.
func (s Schedule) StatusForCheckIn(checkIn time.Time) Status {
	if s.LateAfter.Before(checkIn.UTC()) {
		return StatusLate
	}
	return StatusPresent
}

// TimeOfDay is a wall-clock hour/minute boundary, parsed from "HH:MM".
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM". The format is exact: two digits, a colon,
// two digits, nothing more. Config typos fail at startup instead of
// silently shifting the late threshold.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	if len(raw) != 5 || raw[2] != ':' || !isDigits(raw[:2]) || !isDigits(raw[3:]) {
		return TimeOfDay{}, dErrors.New(dErrors.CodeInvalidInput, "time of day must be HH:MM")
	}
	tod := TimeOfDay{
		Hour:   int(raw[0]-'0')*10 + int(raw[1]-'0'),
		Minute: int(raw[3]-'0')*10 + int(raw[4]-'0'),
	}
	if tod.Hour > 23 || tod.Minute > 59 {
		return TimeOfDay{}, dErrors.New(dErrors.CodeInvalidInput, "time of day out of range")
	}
	return tod, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Before reports whether the boundary falls strictly before the clock time
// of t on t's own calendar day.
func (tod TimeOfDay) Before(t time.Time) bool {
	boundary := time.Date(t.Year(), t.Month(), t.Day(), tod.Hour, tod.Minute, 0, 0, t.Location())
	return t.After(boundary)
}
