package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrCredentialInvalid means the bearer credential was rejected (HTTP 401)
// or is known to be expired. The caller should ask the identity provider to
// re-authenticate.
var ErrCredentialInvalid = errors.New("credential invalid")

// Credential is an opaque bearer token issued by the identity provider.
type Credential string

type contextKey string

const credentialKey contextKey = "auth_credential"

// WithCredential attaches the bearer credential to ctx. Collaborator calls
// read it from there instead of process-wide state.
func WithCredential(ctx context.Context, cred Credential) context.Context {
	return context.WithValue(ctx, credentialKey, cred)
}

// CredentialFrom extracts the bearer credential from ctx.
func CredentialFrom(ctx context.Context) (Credential, bool) {
	cred, ok := ctx.Value(credentialKey).(Credential)
	if !ok || cred == "" {
		return "", false
	}
	return cred, true
}

// Claims is what the client can learn from its own credential.
type Claims struct {
	Subject   string
	ExpiresAt time.Time // zero when the token has no exp claim
}

// Expired reports whether the claims are past their expiry at now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Inspect decodes the JWT claims without verifying the signature; the
// signing key lives with the identity provider. Non-JWT credentials yield
// empty claims and no error, since the token is opaque to this client.
func (c Credential) Inspect() (Claims, error) {
	raw := strings.TrimSpace(string(c))
	if strings.Count(raw, ".") != 2 {
		return Claims{}, nil
	}

	var mc jwt.MapClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &mc); err != nil {
		return Claims{}, fmt.Errorf("parse credential: %w", err)
	}

	var claims Claims
	if sub, err := mc.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// Check rejects a credential that is empty or already expired at now.
func (c Credential) Check(now time.Time) error {
	if strings.TrimSpace(string(c)) == "" {
		return fmt.Errorf("%w: no credential configured", ErrCredentialInvalid)
	}
	claims, err := c.Inspect()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCredentialInvalid, err)
	}
	if claims.Expired(now) {
		return fmt.Errorf("%w: expired at %s", ErrCredentialInvalid, claims.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// Subject returns the credential's subject claim, or "" when unknown.
func (c Credential) Subject() string {
	claims, err := c.Inspect()
	if err != nil {
		return ""
	}
	return claims.Subject
}
