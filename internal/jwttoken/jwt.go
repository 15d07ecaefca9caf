// Package jwttoken issues and validates the two token shapes the service
// uses: employee access tokens and short-lived biometric proof tokens.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
)

// Scope discriminates token kinds so a proof token can never be presented
// as a session token or vice versa.
const (
	ScopeAccess         = "access"
	ScopeBiometricProof = "biometric_proof"
)

// Claims represents the JWT claims for hrgate tokens.
type Claims struct {
	UserID       string `json:"user_id"`
	Scope        string `json:"scope"`
	CredentialID string `json:"credential_id,omitempty"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewService(signingKey, issuer, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken issues an employee session token.
func (s *Service) GenerateAccessToken(userID id.UserID, expiresIn time.Duration) (string, error) {
	return s.sign(Claims{
		UserID: userID.String(),
		Scope:  ScopeAccess,
	}, expiresIn)
}

// GenerateProofToken issues a short-lived token proving a completed
// biometric verification. It names the credential that produced the
// assertion for the audit trail.
func (s *Service) GenerateProofToken(userID id.UserID, credentialID string, expiresIn time.Duration) (string, error) {
	return s.sign(Claims{
		UserID:       userID.String(),
		Scope:        ScopeBiometricProof,
		CredentialID: credentialID,
	}, expiresIn)
}

func (s *Service) sign(claims Claims, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		Audience:  []string{s.audience},
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidateToken parses and validates any hrgate token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ValidateAccessToken validates a session token and returns its user ID.
func (s *Service) ValidateAccessToken(tokenString string) (id.UserID, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return id.UserID{}, err
	}
	if claims.Scope != ScopeAccess {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "token scope mismatch")
	}
	return id.ParseUserID(claims.UserID)
}

// ValidateProofToken validates a biometric proof token for the given user.
// The proof must belong to the same user it is presented for.
func (s *Service) ValidateProofToken(tokenString string, userID id.UserID) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Scope != ScopeBiometricProof {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token scope mismatch")
	}
	if claims.UserID != userID.String() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "proof token belongs to another user")
	}
	return claims, nil
}
