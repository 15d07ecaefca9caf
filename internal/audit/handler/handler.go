// Package handler exposes the audit trail to HR tooling.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrgate/internal/audit"
	"hrgate/internal/transport/shared"
	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
)

// Store reads persisted audit events.
type Store interface {
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]audit.Event, error)
}

// Handler serves the audit review endpoint.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterAdmin mounts the audit review endpoint on the admin surface.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/audit/users/{userID}", h.HandleListByUser)
}

// EventResponse is the JSON view of one audit event.
type EventResponse struct {
	Category          string    `json:"category"`
	Action            string    `json:"action"`
	OccurredAt        time.Time `json:"occurred_at"`
	UserID            string    `json:"user_id,omitempty"`
	Subject           string    `json:"subject,omitempty"`
	Decision          string    `json:"decision,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	RequestID         string    `json:"request_id,omitempty"`
	Device            string    `json:"device,omitempty"`
	DeviceFingerprint string    `json:"device_fingerprint,omitempty"`
	ClientIP          string    `json:"client_ip,omitempty"`
}

// HandleListByUser handles GET /audit/users/{userID}?limit=N, newest first.
func (h *Handler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
	}

	events, err := h.store.ListByUser(ctx, userID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list audit events failed",
			"user_id", userID,
			"error", err,
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list audit events"))
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, event := range events {
		resp := EventResponse{
			Category:          event.Category.String(),
			Action:            event.Action.String(),
			OccurredAt:        event.Timestamp,
			Subject:           event.Subject,
			Decision:          event.Decision,
			Reason:            event.Reason,
			RequestID:         event.RequestID,
			Device:            event.Device,
			DeviceFingerprint: event.DeviceFingerprint,
			ClientIP:          event.ClientIP,
		}
		if !event.UserID.IsNil() {
			resp.UserID = event.UserID.String()
		}
		out = append(out, resp)
	}
	shared.WriteJSON(w, http.StatusOK, out)
}
