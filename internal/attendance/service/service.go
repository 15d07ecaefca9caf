// Package service implements the attendance decision gate. A punch is
// accepted only when the geofence validator confirms the position; biometric
// proof upgrades the record's trust level, and a uniqueness constraint in
// the store settles concurrent duplicate check-ins.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"hrgate/internal/attendance/models"
	"hrgate/internal/audit"
	gfmodels "hrgate/internal/geofence/models"
	"hrgate/internal/jwttoken"
	"hrgate/internal/platform/metrics"
	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
	"hrgate/pkg/platform/sentinel"
	"hrgate/pkg/requestcontext"
)

const (
	denyReasonOutsideGeofence = "outside_geofence"
	denyReasonInvalidProof    = "invalid_proof"
	denyReasonDuplicate       = "duplicate_check_in"
	denyReasonNoCheckIn       = "no_check_in"
	denyReasonAlreadyOut      = "already_checked_out"

	flagReasonDeviceChanged = "checkout_device_differs"
)

// Store persists attendance records.
type Store interface {
	Create(ctx context.Context, record models.Record) error
	FindByUserAndDay(ctx context.Context, userID id.UserID, day time.Time) (models.Record, error)
	FindByID(ctx context.Context, recordID id.AttendanceID) (models.Record, error)
	Update(ctx context.Context, record models.Record) error
	ListByUserRange(ctx context.Context, userID id.UserID, from, to time.Time) ([]models.Record, error)
}

// GeofenceChecker decides whether a position falls inside an active office
// zone.
type GeofenceChecker interface {
	CheckPosition(ctx context.Context, pos gfmodels.Position) (gfmodels.CheckResult, error)
}

// ProofValidator checks biometric proof tokens presented with a punch.
type ProofValidator interface {
	ValidateProofToken(token string, userID id.UserID) (*jwttoken.Claims, error)
}

// Auditor receives attendance decisions without blocking them.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// DeviceComparer flags checkout punches arriving from a different device
// than the one that checked in.
type DeviceComparer interface {
	CompareFingerprints(stored, current string) (matched, drift bool)
}

// PunchRequest is a check-in or checkout attempt. ProofToken is optional;
// when absent the punch is recorded without biometric confirmation.
type PunchRequest struct {
	Position   gfmodels.Position
	ProofToken string
}

type Service struct {
	store    Store
	geofence GeofenceChecker
	proofs   ProofValidator
	schedule models.Schedule
	devices  DeviceComparer
	auditor  Auditor
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

func New(store Store, geofence GeofenceChecker, proofs ProofValidator, schedule models.Schedule, devices DeviceComparer, auditor Auditor, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		geofence: geofence,
		proofs:   proofs,
		schedule: schedule,
		devices:  devices,
		auditor:  auditor,
		metrics:  m,
		tracer:   otel.Tracer("hrgate/attendance"),
		logger:   logger,
	}
}

// CheckIn runs the decision gate and opens today's attendance record. The
// store's per-day uniqueness constraint is the arbiter for concurrent
// duplicates: exactly one request wins, the rest get a conflict.
func (s *Service) CheckIn(ctx context.Context, userID id.UserID, req PunchRequest) (models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.check_in",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	stamp, biometric, err := s.gate(ctx, userID, req, audit.ActionCheckInDenied)
	if err != nil {
		return models.Record{}, err
	}
	span.SetAttributes(
		attribute.String("zone", stamp.LocationName),
		attribute.Bool("biometric", biometric),
	)

	now := requestcontext.Now(ctx)
	status := s.schedule.StatusForCheckIn(now)
	record, err := models.NewRecord(userID, now, stamp, biometric, status,
		requestcontext.DeviceName(ctx), requestcontext.DeviceFingerprint(ctx))
	if err != nil {
		return models.Record{}, err
	}

	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.deny(ctx, userID, audit.ActionCheckInDenied, denyReasonDuplicate)
			return models.Record{}, dErrors.New(dErrors.CodeConflict, "already checked in today")
		}
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "store attendance record")
	}

	if s.metrics != nil {
		s.metrics.CheckInsRecorded.Inc()
	}
	s.emit(ctx, userID, audit.ActionCheckInRecorded, record.ID.String(), "allowed", string(status))
	s.logger.InfoContext(ctx, "check-in recorded",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"zone", stamp.LocationName,
		"status", status,
		"biometric", biometric,
	)
	return record, nil
}

// CheckOut closes today's record. It requires an open record and a
// checkout time at or after check-in; working hours are derived here.
func (s *Service) CheckOut(ctx context.Context, userID id.UserID, req PunchRequest) (models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.check_out",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	stamp, biometric, err := s.gate(ctx, userID, req, audit.ActionCheckOutDenied)
	if err != nil {
		return models.Record{}, err
	}

	now := requestcontext.Now(ctx)
	record, err := s.store.FindByUserAndDay(ctx, userID, models.DayOf(now))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.deny(ctx, userID, audit.ActionCheckOutDenied, denyReasonNoCheckIn)
			return models.Record{}, dErrors.New(dErrors.CodeNotFound, "no check-in recorded today")
		}
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "load attendance record")
	}

	if err := record.Complete(now, stamp, biometric); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.deny(ctx, userID, audit.ActionCheckOutDenied, denyReasonAlreadyOut)
		}
		return models.Record{}, err
	}

	// A checkout from a different device than the check-in is flagged for
	// HR review but does not block the punch.
	if s.devices != nil {
		current := requestcontext.DeviceFingerprint(ctx)
		if _, drift := s.devices.CompareFingerprints(record.DeviceFingerprint, current); drift {
			s.emit(ctx, userID, audit.ActionDeviceChanged, record.ID.String(), "", flagReasonDeviceChanged)
			s.logger.WarnContext(ctx, "checkout device differs from check-in device",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", userID,
				"record_id", record.ID,
			)
		}
	}

	if err := s.store.Update(ctx, record); err != nil {
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "update attendance record")
	}

	if s.metrics != nil {
		s.metrics.CheckOutsRecorded.Inc()
	}
	s.emit(ctx, userID, audit.ActionCheckOutRecorded, record.ID.String(), "allowed", "")
	s.logger.InfoContext(ctx, "checkout recorded",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"zone", stamp.LocationName,
		"working_hours", record.WorkingHours,
	)
	return record, nil
}

// Today returns the user's record for the current day.
func (s *Service) Today(ctx context.Context, userID id.UserID) (models.Record, error) {
	record, err := s.store.FindByUserAndDay(ctx, userID, models.DayOf(requestcontext.Now(ctx)))
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Record{}, dErrors.New(dErrors.CodeNotFound, "no attendance record today")
	}
	if err != nil {
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "load attendance record")
	}
	return record, nil
}

// History returns the user's records between from and to, inclusive.
func (s *Service) History(ctx context.Context, userID id.UserID, from, to time.Time) ([]models.Record, error) {
	if to.Before(from) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "history range is inverted")
	}
	records, err := s.store.ListByUserRange(ctx, userID, models.DayOf(from), models.DayOf(to))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list attendance records")
	}
	return records, nil
}

// DesignateHalfDay is the manual HR override that marks an existing record
// as a half day. It never touches timestamps or working hours.
func (s *Service) DesignateHalfDay(ctx context.Context, recordID id.AttendanceID) (models.Record, error) {
	record, err := s.store.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Record{}, dErrors.New(dErrors.CodeNotFound, "attendance record not found")
		}
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "load attendance record")
	}

	record.Status = models.StatusHalfDay
	record.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, record); err != nil {
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "update attendance record")
	}

	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			Category: audit.CategoryAdministration,
			Action:   audit.ActionStatusDesignated,
			UserID:   record.UserID,
			Subject:  record.ID.String(),
			Reason:   string(models.StatusHalfDay),
		})
	}
	return record, nil
}

// gate applies the two admission checks shared by check-in and checkout:
// the position must fall inside an active zone, and a proof token, when
// presented, must be valid for this user. The gate fails closed.
func (s *Service) gate(ctx context.Context, userID id.UserID, req PunchRequest, denialAction audit.Action) (models.GeoStamp, bool, error) {
	result, err := s.geofence.CheckPosition(ctx, req.Position)
	if err != nil {
		return models.GeoStamp{}, false, err
	}
	if !result.Valid {
		if s.metrics != nil {
			s.metrics.GeofenceDenials.Inc()
		}
		s.deny(ctx, userID, denialAction, denyReasonOutsideGeofence)
		s.logger.WarnContext(ctx, "punch outside geofence",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"distance_m", result.DistanceMeters,
		)
		return models.GeoStamp{}, false, dErrors.New(dErrors.CodeForbidden, "position is outside all office zones")
	}

	stamp := models.GeoStamp{
		Latitude:     req.Position.Latitude,
		Longitude:    req.Position.Longitude,
		Verified:     true,
		LocationName: result.MatchedZone.Name,
	}

	if req.ProofToken == "" {
		return stamp, false, nil
	}
	if _, err := s.proofs.ValidateProofToken(req.ProofToken, userID); err != nil {
		s.deny(ctx, userID, denialAction, denyReasonInvalidProof)
		return models.GeoStamp{}, false, err
	}
	return stamp, true, nil
}

func (s *Service) deny(ctx context.Context, userID id.UserID, action audit.Action, reason string) {
	s.emit(ctx, userID, action, "", "denied", reason)
}

func (s *Service) emit(ctx context.Context, userID id.UserID, action audit.Action, subject, decision, reason string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, audit.Event{
		Category: audit.CategoryAttendance,
		Action:   action,
		UserID:   userID,
		Subject:  subject,
		Decision: decision,
		Reason:   reason,
	})
}
