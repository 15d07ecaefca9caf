// Package handler exposes office zone administration and the position
// pre-flight check.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrgate/internal/audit"
	"hrgate/internal/geofence/models"
	"hrgate/internal/transport/shared"
	id "hrgate/pkg/domain"
	"hrgate/pkg/requestcontext"
)

// Service defines the geofence operations the handler depends on.
type Service interface {
	CheckPosition(ctx context.Context, pos models.Position) (models.CheckResult, error)
	CreateLocation(ctx context.Context, name string, lat, lon float64, radiusMeters int, address string, now time.Time) (models.OfficeLocation, error)
	UpdateLocation(ctx context.Context, locID id.LocationID, name string, lat, lon float64, radiusMeters int, address string, active bool, now time.Time) (models.OfficeLocation, error)
	DeactivateLocation(ctx context.Context, locID id.LocationID, now time.Time) error
	ListLocations(ctx context.Context) ([]models.OfficeLocation, error)
}

// Auditor receives administration events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// Handler wires geofence endpoints to the geofence service.
type Handler struct {
	service Service
	auditor Auditor
	logger  *slog.Logger
}

func New(service Service, auditor Auditor, logger *slog.Logger) *Handler {
	return &Handler{service: service, auditor: auditor, logger: logger}
}

// Register mounts the employee-facing pre-flight check.
func (h *Handler) Register(r chi.Router) {
	r.Post("/geofence/check", h.HandleCheck)
}

// RegisterAdmin mounts the HR location management endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/locations", h.HandleCreateLocation)
	r.Get("/locations", h.HandleListLocations)
	r.Put("/locations/{locationID}", h.HandleUpdateLocation)
	r.Delete("/locations/{locationID}", h.HandleDeactivateLocation)
}

// CheckRequest is a bare position to evaluate.
type CheckRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CheckResponse reports whether the position would be accepted. The matched
// zone is named so the client can show it; distance is returned only on a
// match to avoid leaking zone geometry to probes.
type CheckResponse struct {
	Valid          bool    `json:"valid"`
	Zone           string  `json:"zone,omitempty"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
}

// LocationRequest is the admin create/update body.
type LocationRequest struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters int     `json:"radius_meters"`
	Address      string  `json:"address"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// LocationResponse is the admin view of an office zone.
type LocationResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RadiusMeters int       `json:"radius_meters"`
	Address      string    `json:"address,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func locationResponse(loc models.OfficeLocation) LocationResponse {
	return LocationResponse{
		ID:           loc.ID.String(),
		Name:         loc.Name,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		RadiusMeters: loc.RadiusMeters,
		Address:      loc.Address,
		IsActive:     loc.IsActive,
		CreatedAt:    loc.CreatedAt,
		UpdatedAt:    loc.UpdatedAt,
	}
}

// HandleCheck handles POST /geofence/check.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := shared.Decode[CheckRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.CheckPosition(ctx, models.Position{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := CheckResponse{Valid: result.Valid}
	if result.Valid {
		resp.Zone = result.MatchedZone.Name
		resp.DistanceMeters = result.DistanceMeters
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreateLocation handles POST /locations.
func (h *Handler) HandleCreateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := shared.Decode[LocationRequest](w, r)
	if !ok {
		return
	}

	loc, err := h.service.CreateLocation(ctx, req.Name, req.Latitude, req.Longitude, req.RadiusMeters, req.Address, requestcontext.Now(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	h.emit(ctx, audit.ActionLocationCreated, loc.ID.String(), loc.Name)
	h.logger.InfoContext(ctx, "office location created",
		"request_id", requestcontext.RequestID(ctx),
		"location_id", loc.ID,
		"name", loc.Name,
	)
	shared.WriteJSON(w, http.StatusCreated, locationResponse(loc))
}

// HandleListLocations handles GET /locations.
func (h *Handler) HandleListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.service.ListLocations(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]LocationResponse, 0, len(locs))
	for _, loc := range locs {
		out = append(out, locationResponse(loc))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

// HandleUpdateLocation handles PUT /locations/{locationID}.
func (h *Handler) HandleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locID, err := id.ParseLocationID(chi.URLParam(r, "locationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, ok := shared.Decode[LocationRequest](w, r)
	if !ok {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	loc, err := h.service.UpdateLocation(ctx, locID, req.Name, req.Latitude, req.Longitude, req.RadiusMeters, req.Address, active, requestcontext.Now(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	h.emit(ctx, audit.ActionLocationUpdated, loc.ID.String(), loc.Name)
	shared.WriteJSON(w, http.StatusOK, locationResponse(loc))
}

// HandleDeactivateLocation handles DELETE /locations/{locationID}. Zones
// are deactivated, never erased, so old attendance stamps keep resolving.
func (h *Handler) HandleDeactivateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locID, err := id.ParseLocationID(chi.URLParam(r, "locationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.DeactivateLocation(ctx, locID, requestcontext.Now(ctx)); err != nil {
		shared.WriteError(w, err)
		return
	}

	h.emit(ctx, audit.ActionLocationDisabled, locID.String(), "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) emit(ctx context.Context, action audit.Action, subject, reason string) {
	if h.auditor == nil {
		return
	}
	h.auditor.Emit(ctx, audit.Event{
		Category: audit.CategoryAdministration,
		Action:   action,
		UserID:   requestcontext.UserID(ctx),
		Subject:  subject,
		Reason:   reason,
	})
}
