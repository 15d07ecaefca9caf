// Package handler wires attendance endpoints to the attendance service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrgate/internal/attendance/models"
	"hrgate/internal/attendance/service"
	gfmodels "hrgate/internal/geofence/models"
	"hrgate/internal/transport/shared"
	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
	"hrgate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

const dateLayout = "2006-01-02"

// Service defines the attendance operations the handler depends on.
type Service interface {
	CheckIn(ctx context.Context, userID id.UserID, req service.PunchRequest) (models.Record, error)
	CheckOut(ctx context.Context, userID id.UserID, req service.PunchRequest) (models.Record, error)
	Today(ctx context.Context, userID id.UserID) (models.Record, error)
	History(ctx context.Context, userID id.UserID, from, to time.Time) ([]models.Record, error)
	DesignateHalfDay(ctx context.Context, recordID id.AttendanceID) (models.Record, error)
}

// Handler exposes attendance punches and queries over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the employee-facing attendance endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/attendance/check-in", h.HandleCheckIn)
	r.Post("/attendance/check-out", h.HandleCheckOut)
	r.Get("/attendance/today", h.HandleToday)
	r.Get("/attendance/history", h.HandleHistory)
}

// RegisterAdmin mounts the HR-only endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/attendance/{attendanceID}/half-day", h.HandleDesignateHalfDay)
}

// PunchRequest is the JSON body for check-in and check-out.
type PunchRequest struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	ProofToken string  `json:"proof_token,omitempty"`
}

// GeoStampResponse mirrors models.GeoStamp for JSON.
type GeoStampResponse struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Verified     bool    `json:"verified"`
	LocationName string  `json:"location_name,omitempty"`
}

// RecordResponse is the public view of an attendance record.
type RecordResponse struct {
	ID                string            `json:"id"`
	Day               string            `json:"day"`
	CheckInTime       time.Time         `json:"check_in_time"`
	CheckOutTime      *time.Time        `json:"check_out_time,omitempty"`
	Status            string            `json:"status"`
	WorkingHours      float64           `json:"working_hours"`
	CheckIn           GeoStampResponse  `json:"check_in"`
	CheckOut          *GeoStampResponse `json:"check_out,omitempty"`
	CheckInBiometric  bool              `json:"check_in_biometric"`
	CheckOutBiometric bool              `json:"check_out_biometric"`
	DeviceName        string            `json:"device_name,omitempty"`
}

func recordResponse(r models.Record) RecordResponse {
	resp := RecordResponse{
		ID:                r.ID.String(),
		Day:               r.Day.Format(dateLayout),
		CheckInTime:       r.CheckInTime,
		CheckOutTime:      r.CheckOutTime,
		Status:            string(r.Status),
		WorkingHours:      r.WorkingHours,
		CheckIn:           geoStampResponse(r.CheckIn),
		CheckInBiometric:  r.CheckInBiometric,
		CheckOutBiometric: r.CheckOutBiometric,
		DeviceName:        r.DeviceName,
	}
	if r.CheckOut != nil {
		stamp := geoStampResponse(*r.CheckOut)
		resp.CheckOut = &stamp
	}
	return resp
}

func geoStampResponse(s models.GeoStamp) GeoStampResponse {
	return GeoStampResponse{
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		Verified:     s.Verified,
		LocationName: s.LocationName,
	}
}

// HandleCheckIn handles POST /attendance/check-in.
func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	h.handlePunch(w, r, h.service.CheckIn, http.StatusCreated)
}

// HandleCheckOut handles POST /attendance/check-out.
func (h *Handler) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	h.handlePunch(w, r, h.service.CheckOut, http.StatusOK)
}

func (h *Handler) handlePunch(w http.ResponseWriter, r *http.Request, punch func(context.Context, id.UserID, service.PunchRequest) (models.Record, error), status int) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := shared.Decode[PunchRequest](w, r)
	if !ok {
		return
	}

	record, err := punch(ctx, userID, service.PunchRequest{
		Position:   gfmodels.Position{Latitude: req.Latitude, Longitude: req.Longitude},
		ProofToken: req.ProofToken,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "punch rejected",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, status, recordResponse(record))
}

// HandleToday handles GET /attendance/today.
func (h *Handler) HandleToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	record, err := h.service.Today(ctx, userID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, recordResponse(record))
}

// HandleHistory handles GET /attendance/history?from=...&to=... with
// ISO dates. The range defaults to the last 30 days.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	now := requestcontext.Now(ctx)
	from, to := now.AddDate(0, 0, -30), now
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse(dateLayout, raw); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "from must be YYYY-MM-DD"))
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse(dateLayout, raw); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "to must be YYYY-MM-DD"))
			return
		}
	}

	records, err := h.service.History(ctx, userID, from, to)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, recordResponse(record))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

// HandleDesignateHalfDay handles POST /attendance/{attendanceID}/half-day.
func (h *Handler) HandleDesignateHalfDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, err := id.ParseAttendanceID(chi.URLParam(r, "attendanceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.service.DesignateHalfDay(ctx, recordID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "half day designated",
		"request_id", requestcontext.RequestID(ctx),
		"attendance_id", recordID,
		"user_id", record.UserID,
	)
	shared.WriteJSON(w, http.StatusOK, recordResponse(record))
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}
