package service

import (
	"github.com/go-webauthn/webauthn/webauthn"

	"hrgate/internal/biometric/models"
	id "hrgate/pkg/domain"
)

// webauthnUser adapts an employee and their stored credentials to the
// webauthn.User interface expected by the ceremony library.
type webauthnUser struct {
	id          id.UserID
	credentials []models.Credential
}

func (u *webauthnUser) WebAuthnID() []byte {
	raw := u.id
	return raw[:]
}

func (u *webauthnUser) WebAuthnName() string { return u.id.String() }

func (u *webauthnUser) WebAuthnDisplayName() string { return u.id.String() }

func (u *webauthnUser) WebAuthnIcon() string { return "" }

func (u *webauthnUser) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, 0, len(u.credentials))
	for _, c := range u.credentials {
		creds = append(creds, c.Credential)
	}
	return creds
}
