package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://issuer.example.com"
	testClientID = "customsclass"
)

func signToken(t *testing.T, key *rsa.PrivateKey, claims map[string]any) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, (&jose.SignerOptions{}).WithType("JWT"))
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	obj, err := signer.Sign(payload)
	require.NoError(t, err)
	raw, err := obj.CompactSerialize()
	require.NoError(t, err)
	return raw
}

func validClaims() map[string]any {
	now := time.Now()
	return map[string]any{
		"iss":   testIssuer,
		"aud":   testClientID,
		"sub":   "user-123",
		"email": "clerk@example.com",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

func newTestOIDC(t *testing.T) (*OIDC, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	return NewOIDCWithVerifier(oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: testClientID})), key
}

func TestOIDCAuthenticate(t *testing.T) {
	authn, key := newTestOIDC(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, validClaims()))
	id, err := authn.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, Identity{UID: "user-123", Email: "clerk@example.com"}, id)
	assert.Equal(t, ModeOIDC, authn.Mode())
}

func TestOIDCAuthenticateQueryToken(t *testing.T) {
	authn, key := newTestOIDC(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history/stream?access_token="+signToken(t, key, validClaims()), nil)
	id, err := authn.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "user-123", id.UID)
}

func TestOIDCRejects(t *testing.T) {
	authn, key := newTestOIDC(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	wrongAudience := validClaims()
	wrongAudience["aud"] = "someone-else"

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage", "Bearer not-a-jwt"},
		{"expired", "Bearer " + signToken(t, key, expired)},
		{"wrong audience", "Bearer " + signToken(t, key, wrongAudience)},
		{"wrong key", "Bearer " + signToken(t, otherKey, validClaims())},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			_, err := authn.Authenticate(req)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestHeaderAuthenticate(t *testing.T) {
	authn := NewHeader("")
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := authn.Authenticate(req)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	req.Header.Set("X-User-Id", "  u1 ")
	id, err := authn.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UID)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, Config{})
	require.NoError(t, err)
	assert.Equal(t, ModeNone, a.Mode())
	id, err := a.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, id.Anonymous())

	a, err = New(ctx, Config{Mode: "HEADER", Header: "X-Forwarded-User"})
	require.NoError(t, err)
	assert.Equal(t, ModeHeader, a.Mode())

	_, err = New(ctx, Config{Mode: ModeOIDC})
	assert.Error(t, err)

	_, err = New(ctx, Config{Mode: "ldap"})
	assert.Error(t, err)
}
