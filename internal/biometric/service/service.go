// Package service implements the biometric gate: WebAuthn enrollment and
// verification ceremonies, counter-based anti-replay, and issuance of the
// short-lived proof tokens that attendance check-in accepts as evidence.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"hrgate/internal/audit"
	"hrgate/internal/biometric/models"
	"hrgate/internal/platform/metrics"
	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
	"hrgate/pkg/platform/sentinel"
	"hrgate/pkg/requestcontext"
)

const (
	rejectReasonNoCredential      = "no_credential"
	rejectReasonCeremonyExpired   = "ceremony_expired"
	rejectReasonAssertionInvalid  = "assertion_invalid"
	rejectReasonCounterRegression = "counter_regression"
	rejectReasonNoPublicKey       = "no_public_key"
)

// CredentialStore persists enrolled credentials.
type CredentialStore interface {
	Create(ctx context.Context, cred models.Credential) error
	ListByUser(ctx context.Context, userID id.UserID) ([]models.Credential, error)
	FindByUserAndCredentialID(ctx context.Context, userID id.UserID, credentialID string) (models.Credential, error)
	Update(ctx context.Context, cred models.Credential) error
	Delete(ctx context.Context, userID id.UserID, credentialID string) error
}

// SessionStore holds in-flight ceremony sessions. Take consumes the session
// so a finish response can only be presented once.
type SessionStore interface {
	Save(ctx context.Context, session models.CeremonySession) error
	Take(ctx context.Context, userID id.UserID, kind models.CeremonyKind) (models.CeremonySession, error)
	Delete(ctx context.Context, userID id.UserID, kind models.CeremonyKind) error
}

// CeremonyProvider is the slice of webauthn.WebAuthn the service uses.
type CeremonyProvider interface {
	BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	CreateCredential(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error)
	BeginLogin(user webauthn.User, opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	ValidateLogin(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error)
}

// ceremonyParser decodes authenticator responses. Split out from the
// provider so tests can inject pre-parsed responses.
type ceremonyParser interface {
	ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error)
	ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error)
}

type defaultParser struct{}

func (defaultParser) ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error) {
	return protocol.ParseCredentialCreationResponseBytes(data)
}

func (defaultParser) ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error) {
	return protocol.ParseCredentialRequestResponseBytes(data)
}

// ProofIssuer mints the biometric proof tokens handed back on successful
// verification.
type ProofIssuer interface {
	GenerateProofToken(userID id.UserID, credentialID string, ttl time.Duration) (string, error)
}

// Auditor receives security events without blocking the caller.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// VerificationResult is returned when an assertion is accepted.
type VerificationResult struct {
	CredentialID string
	ProofToken   string
	ExpiresAt    time.Time
}

type Service struct {
	provider CeremonyProvider
	parser   ceremonyParser
	creds    CredentialStore
	sessions SessionStore
	proofs   ProofIssuer
	proofTTL time.Duration
	auditor  Auditor
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(provider CeremonyProvider, creds CredentialStore, sessions SessionStore, proofs ProofIssuer, proofTTL time.Duration, auditor Auditor, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		provider: provider,
		parser:   defaultParser{},
		creds:    creds,
		sessions: sessions,
		proofs:   proofs,
		proofTTL: proofTTL,
		auditor:  auditor,
		metrics:  m,
		logger:   logger,
	}
}

// BeginEnrollment starts a registration ceremony. Already-enrolled
// credentials are sent as exclusions so the authenticator refuses to
// re-register itself.
func (s *Service) BeginEnrollment(ctx context.Context, userID id.UserID) (*protocol.CredentialCreation, error) {
	existing, err := s.creds.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list credentials")
	}

	user := &webauthnUser{id: userID, credentials: existing}
	opts := []webauthn.RegistrationOption{
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			UserVerification:        protocol.VerificationRequired,
		}),
	}
	if len(existing) > 0 {
		opts = append(opts, webauthn.WithExclusions(webauthn.Credentials(user.WebAuthnCredentials()).CredentialDescriptors()))
	}

	creation, sessionData, err := s.provider.BeginRegistration(user, opts...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "begin enrollment")
	}

	session := models.CeremonySession{
		Kind:      models.CeremonyEnrollment,
		UserID:    userID,
		Data:      *sessionData,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save ceremony session")
	}
	return creation, nil
}

// FinishEnrollment validates the authenticator's attestation response and
// persists the credential. A response without an extractable public key is
// rejected; nothing is stored for an abandoned or failed ceremony.
func (s *Service) FinishEnrollment(ctx context.Context, userID id.UserID, label string, response []byte) (models.Credential, error) {
	session, err := s.sessions.Take(ctx, userID, models.CeremonyEnrollment)
	if err != nil {
		if errors.Is(err, sentinel.ErrExpired) {
			s.reject(ctx, userID, audit.ActionBiometricRejected, rejectReasonCeremonyExpired)
		}
		return models.Credential{}, s.translateSessionErr(err)
	}

	parsed, err := s.parser.ParseCredentialCreationResponseBytes(response)
	if err != nil {
		return models.Credential{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "parse enrollment response")
	}

	existing, err := s.creds.ListByUser(ctx, userID)
	if err != nil {
		return models.Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "list credentials")
	}
	user := &webauthnUser{id: userID, credentials: existing}

	credential, err := s.provider.CreateCredential(user, session.Data, parsed)
	if err != nil {
		s.reject(ctx, userID, audit.ActionBiometricRejected, rejectReasonAssertionInvalid)
		return models.Credential{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "enrollment response rejected")
	}

	now := requestcontext.Now(ctx)
	cred, err := models.NewCredential(userID, credential, label, now)
	if err != nil {
		s.reject(ctx, userID, audit.ActionBiometricRejected, rejectReasonNoPublicKey)
		return models.Credential{}, err
	}

	if err := s.creds.Create(ctx, cred); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Credential{}, dErrors.New(dErrors.CodeConflict, "credential already enrolled")
		}
		return models.Credential{}, dErrors.Wrap(err, dErrors.CodeInternal, "store credential")
	}

	if s.metrics != nil {
		s.metrics.BiometricEnrolled.Inc()
	}
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   audit.ActionCredentialEnrolled,
			UserID:   userID,
			Subject:  cred.CredentialID,
		})
	}
	return cred, nil
}

// BeginVerification starts an assertion ceremony restricted to the user's
// own enrolled credentials. A user with no credentials cannot begin one.
func (s *Service) BeginVerification(ctx context.Context, userID id.UserID) (*protocol.CredentialAssertion, error) {
	existing, err := s.creds.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list credentials")
	}
	if len(existing) == 0 {
		s.reject(ctx, userID, audit.ActionBiometricRejected, rejectReasonNoCredential)
		return nil, dErrors.New(dErrors.CodeNotFound, "no biometric credential enrolled")
	}

	user := &webauthnUser{id: userID, credentials: existing}
	assertion, sessionData, err := s.provider.BeginLogin(user)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "begin verification")
	}

	session := models.CeremonySession{
		Kind:      models.CeremonyVerification,
		UserID:    userID,
		Data:      *sessionData,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save ceremony session")
	}
	return assertion, nil
}

// FinishVerification validates the assertion server-side. The signature
// counter must move strictly forward; a regression or clone warning rejects
// the assertion and leaves the stored credential untouched. On success the
// counter is persisted and a short-lived proof token is issued.
func (s *Service) FinishVerification(ctx context.Context, userID id.UserID, response []byte) (VerificationResult, error) {
	session, err := s.sessions.Take(ctx, userID, models.CeremonyVerification)
	if err != nil {
		if errors.Is(err, sentinel.ErrExpired) {
			s.reject(ctx, userID, audit.ActionBiometricRejected, rejectReasonCeremonyExpired)
		}
		return VerificationResult{}, s.translateSessionErr(err)
	}

	parsed, err := s.parser.ParseCredentialRequestResponseBytes(response)
	if err != nil {
		return VerificationResult{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "parse verification response")
	}

	existing, err := s.creds.ListByUser(ctx, userID)
	if err != nil {
		return VerificationResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "list credentials")
	}
	user := &webauthnUser{id: userID, credentials: existing}

	validated, err := s.provider.ValidateLogin(user, session.Data, parsed)
	if err != nil {
		s.reject(ctx, userID, audit.ActionBiometricRejected, rejectReasonAssertionInvalid)
		return VerificationResult{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "biometric assertion rejected")
	}

	credentialID := models.EncodeCredentialID(validated.ID)
	stored, err := s.creds.FindByUserAndCredentialID(ctx, userID, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.reject(ctx, userID, audit.ActionBiometricRejected, rejectReasonNoCredential)
			return VerificationResult{}, dErrors.New(dErrors.CodeUnauthorized, "assertion does not match an enrolled credential")
		}
		return VerificationResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load credential")
	}

	if !counterAdvanced(stored.Credential.Authenticator.SignCount, validated.Authenticator) {
		s.reject(ctx, userID, audit.ActionBiometricRejected, rejectReasonCounterRegression)
		s.logger.WarnContext(ctx, "biometric counter regression",
			"user_id", userID.String(),
			"credential_id", credentialID,
			"stored_count", stored.Credential.Authenticator.SignCount,
			"asserted_count", validated.Authenticator.SignCount,
		)
		return VerificationResult{}, dErrors.New(dErrors.CodeUnauthorized, "possible cloned authenticator detected")
	}

	now := requestcontext.Now(ctx)
	stored.Credential = *validated
	stored.UpdatedAt = now
	stored.LastUsedAt = &now
	if err := s.creds.Update(ctx, stored); err != nil {
		return VerificationResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "update credential")
	}

	token, err := s.proofs.GenerateProofToken(userID, credentialID, s.proofTTL)
	if err != nil {
		return VerificationResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "issue proof token")
	}

	if s.metrics != nil {
		s.metrics.BiometricVerified.Inc()
	}
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   audit.ActionBiometricVerified,
			UserID:   userID,
			Subject:  credentialID,
			Decision: "allowed",
		})
	}
	return VerificationResult{
		CredentialID: credentialID,
		ProofToken:   token,
		ExpiresAt:    now.Add(s.proofTTL),
	}, nil
}

// CancelCeremony discards the user's in-flight ceremony session of the
// given kind, so an abandoned Begin cannot be finished later. Cancelling
// when no session exists is a no-op.
func (s *Service) CancelCeremony(ctx context.Context, userID id.UserID, kind models.CeremonyKind) error {
	if err := s.sessions.Delete(ctx, userID, kind); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "discard ceremony session")
	}
	s.logger.InfoContext(ctx, "biometric ceremony cancelled",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"kind", string(kind),
	)
	return nil
}

// ListCredentials returns the user's enrolled credentials.
func (s *Service) ListCredentials(ctx context.Context, userID id.UserID) ([]models.Credential, error) {
	creds, err := s.creds.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list credentials")
	}
	return creds, nil
}

// RevokeCredential removes one enrolled credential.
func (s *Service) RevokeCredential(ctx context.Context, userID id.UserID, credentialID string) error {
	if credentialID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "credential id is required")
	}
	if err := s.creds.Delete(ctx, userID, credentialID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete credential")
	}
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   audit.ActionCredentialRevoked,
			UserID:   userID,
			Subject:  credentialID,
		})
	}
	return nil
}

// counterAdvanced applies the anti-replay rule: the asserted counter must be
// strictly greater than the stored one. Authenticators that never implement
// a counter report zero on both sides, which is the only tie allowed.
func counterAdvanced(stored uint32, asserted webauthn.Authenticator) bool {
	if asserted.CloneWarning {
		return false
	}
	if stored == 0 && asserted.SignCount == 0 {
		return true
	}
	return asserted.SignCount > stored
}

func (s *Service) translateSessionErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrExpired):
		return dErrors.New(dErrors.CodeUnauthorized, "ceremony session expired or missing")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeUnauthorized, "ceremony session does not match")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "load ceremony session")
	}
}

func (s *Service) reject(ctx context.Context, userID id.UserID, action audit.Action, reason string) {
	if s.metrics != nil {
		s.metrics.BiometricRejected.WithLabelValues(reason).Inc()
	}
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   action,
			UserID:   userID,
			Decision: "denied",
			Reason:   reason,
		})
	}
}
