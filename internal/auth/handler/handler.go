// Package handler issues employee session tokens. Token minting sits on
// the admin surface: the upstream HR system exchanges its trust for a
// per-employee bearer token here.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrgate/internal/transport/shared"
	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
	"hrgate/pkg/requestcontext"
)

const defaultSessionTTL = 12 * time.Hour

// TokenIssuer mints access tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, expiresIn time.Duration) (string, error)
}

// Handler exposes token issuance.
type Handler struct {
	issuer     TokenIssuer
	defaultTTL time.Duration
	logger     *slog.Logger
}

func New(issuer TokenIssuer, defaultTTL time.Duration, logger *slog.Logger) *Handler {
	if defaultTTL <= 0 {
		defaultTTL = defaultSessionTTL
	}
	return &Handler{issuer: issuer, defaultTTL: defaultTTL, logger: logger}
}

// RegisterAdmin mounts token issuance on the admin surface.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/auth/token", h.HandleIssueToken)
}

// IssueTokenRequest names the employee the token is for.
type IssueTokenRequest struct {
	UserID string `json:"user_id"`
	// ExpiresInSeconds falls back to the server default when zero.
	ExpiresInSeconds int `json:"expires_in_seconds,omitempty"`
}

// IssueTokenResponse carries the minted bearer token.
type IssueTokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// HandleIssueToken handles POST /auth/token.
func (h *Handler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := shared.Decode[IssueTokenRequest](w, r)
	if !ok {
		return
	}

	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	ttl := h.defaultTTL
	if req.ExpiresInSeconds > 0 {
		ttl = time.Duration(req.ExpiresInSeconds) * time.Second
	}

	token, err := h.issuer.GenerateAccessToken(userID, ttl)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "issue token"))
		return
	}

	h.logger.InfoContext(ctx, "session token issued",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"ttl", ttl.String(),
	)
	shared.WriteJSON(w, http.StatusCreated, IssueTokenResponse{
		AccessToken: token,
		ExpiresAt:   requestcontext.Now(ctx).Add(ttl),
	})
}
