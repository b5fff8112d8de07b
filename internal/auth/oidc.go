package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDC verifies a bearer ID token issued for the configured client.
type OIDC struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDC discovers issuer and returns an authenticator for clientID tokens.
func NewOIDC(ctx context.Context, issuer, clientID string) (*OIDC, error) {
	issuer = strings.TrimSpace(issuer)
	clientID = strings.TrimSpace(clientID)
	if issuer == "" || clientID == "" {
		return nil, errors.New("oidc auth requires issuer and client id")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer: %w", err)
	}
	return NewOIDCWithVerifier(provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

// NewOIDCWithVerifier wraps an already configured verifier.
func NewOIDCWithVerifier(verifier *oidc.IDTokenVerifier) *OIDC {
	return &OIDC{verifier: verifier}
}

func (o *OIDC) Mode() string { return ModeOIDC }

// Authenticate reads the token from the Authorization header or, for
// websocket handshakes, from the access_token query parameter.
func (o *OIDC) Authenticate(r *http.Request) (Identity, error) {
	raw := bearerToken(r)
	if raw == "" {
		return Identity{}, ErrUnauthenticated
	}
	token, err := o.verifier.Verify(r.Context(), raw)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("%w: decode claims: %v", ErrUnauthenticated, err)
	}
	if token.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return Identity{UID: token.Subject, Email: claims.Email}, nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}
