// Package handler wires biometric gate endpoints to the biometric service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-webauthn/webauthn/protocol"

	"hrgate/internal/biometric/models"
	"hrgate/internal/biometric/service"
	"hrgate/internal/transport/shared"
	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
	"hrgate/pkg/requestcontext"
)

// Service defines the biometric operations the handler depends on.
type Service interface {
	BeginEnrollment(ctx context.Context, userID id.UserID) (*protocol.CredentialCreation, error)
	FinishEnrollment(ctx context.Context, userID id.UserID, label string, response []byte) (models.Credential, error)
	BeginVerification(ctx context.Context, userID id.UserID) (*protocol.CredentialAssertion, error)
	FinishVerification(ctx context.Context, userID id.UserID, response []byte) (service.VerificationResult, error)
	CancelCeremony(ctx context.Context, userID id.UserID, kind models.CeremonyKind) error
	ListCredentials(ctx context.Context, userID id.UserID) ([]models.Credential, error)
	RevokeCredential(ctx context.Context, userID id.UserID, credentialID string) error
}

// Handler exposes the WebAuthn ceremonies over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts biometric endpoints on the router. All routes require an
// authenticated employee.
func (h *Handler) Register(r chi.Router) {
	r.Post("/biometric/enroll/begin", h.HandleBeginEnrollment)
	r.Post("/biometric/enroll/finish", h.HandleFinishEnrollment)
	r.Delete("/biometric/enroll", h.HandleCancelEnrollment)
	r.Post("/biometric/verify/begin", h.HandleBeginVerification)
	r.Post("/biometric/verify/finish", h.HandleFinishVerification)
	r.Delete("/biometric/verify", h.HandleCancelVerification)
	r.Get("/biometric/credentials", h.HandleListCredentials)
	r.Delete("/biometric/credentials/{credentialID}", h.HandleRevokeCredential)
}

// FinishEnrollmentRequest carries the authenticator's attestation response
// verbatim, plus an optional human label for the credential.
type FinishEnrollmentRequest struct {
	Label    string          `json:"label"`
	Response json.RawMessage `json:"response"`
}

// FinishVerificationRequest carries the authenticator's assertion response.
type FinishVerificationRequest struct {
	Response json.RawMessage `json:"response"`
}

// CredentialResponse is the public view of an enrolled credential. The
// public key and sign counter never leave the server.
type CredentialResponse struct {
	CredentialID string     `json:"credential_id"`
	Label        string     `json:"label,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
}

// VerificationResponse returns the proof token that a check-in request can
// present as biometric evidence.
type VerificationResponse struct {
	CredentialID string    `json:"credential_id"`
	ProofToken   string    `json:"proof_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func credentialResponse(cred models.Credential) CredentialResponse {
	return CredentialResponse{
		CredentialID: cred.CredentialID,
		Label:        cred.Label,
		CreatedAt:    cred.CreatedAt,
		LastUsedAt:   cred.LastUsedAt,
	}
}

// HandleBeginEnrollment handles POST /biometric/enroll/begin.
func (h *Handler) HandleBeginEnrollment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	creation, err := h.service.BeginEnrollment(ctx, userID)
	if err != nil {
		h.logError(ctx, "begin enrollment failed", userID, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, creation)
}

// HandleFinishEnrollment handles POST /biometric/enroll/finish.
func (h *Handler) HandleFinishEnrollment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := shared.Decode[FinishEnrollmentRequest](w, r)
	if !ok {
		return
	}
	if len(req.Response) == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "response is required"))
		return
	}

	cred, err := h.service.FinishEnrollment(ctx, userID, req.Label, req.Response)
	if err != nil {
		h.logError(ctx, "finish enrollment failed", userID, err)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "biometric credential enrolled",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"credential_id", cred.CredentialID,
	)
	shared.WriteJSON(w, http.StatusCreated, credentialResponse(cred))
}

// HandleBeginVerification handles POST /biometric/verify/begin.
func (h *Handler) HandleBeginVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	assertion, err := h.service.BeginVerification(ctx, userID)
	if err != nil {
		h.logError(ctx, "begin verification failed", userID, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, assertion)
}

// HandleFinishVerification handles POST /biometric/verify/finish.
func (h *Handler) HandleFinishVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := shared.Decode[FinishVerificationRequest](w, r)
	if !ok {
		return
	}
	if len(req.Response) == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "response is required"))
		return
	}

	result, err := h.service.FinishVerification(ctx, userID, req.Response)
	if err != nil {
		h.logError(ctx, "finish verification failed", userID, err)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "biometric verification accepted",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"credential_id", result.CredentialID,
	)
	shared.WriteJSON(w, http.StatusOK, VerificationResponse{
		CredentialID: result.CredentialID,
		ProofToken:   result.ProofToken,
		ExpiresAt:    result.ExpiresAt,
	})
}

// HandleCancelEnrollment handles DELETE /biometric/enroll. It discards a
// pending registration ceremony, e.g. when the user dismisses the prompt.
func (h *Handler) HandleCancelEnrollment(w http.ResponseWriter, r *http.Request) {
	h.cancelCeremony(w, r, models.CeremonyEnrollment)
}

// HandleCancelVerification handles DELETE /biometric/verify.
func (h *Handler) HandleCancelVerification(w http.ResponseWriter, r *http.Request) {
	h.cancelCeremony(w, r, models.CeremonyVerification)
}

func (h *Handler) cancelCeremony(w http.ResponseWriter, r *http.Request, kind models.CeremonyKind) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	if err := h.service.CancelCeremony(ctx, userID, kind); err != nil {
		h.logError(ctx, "cancel ceremony failed", userID, err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListCredentials handles GET /biometric/credentials.
func (h *Handler) HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	creds, err := h.service.ListCredentials(ctx, userID)
	if err != nil {
		h.logError(ctx, "list credentials failed", userID, err)
		shared.WriteError(w, err)
		return
	}
	out := make([]CredentialResponse, 0, len(creds))
	for _, cred := range creds {
		out = append(out, credentialResponse(cred))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

// HandleRevokeCredential handles DELETE /biometric/credentials/{credentialID}.
func (h *Handler) HandleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	credentialID := chi.URLParam(r, "credentialID")

	if err := h.service.RevokeCredential(ctx, userID, credentialID); err != nil {
		h.logError(ctx, "revoke credential failed", userID, err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) logError(ctx context.Context, msg string, userID id.UserID, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"error", err,
	)
}
