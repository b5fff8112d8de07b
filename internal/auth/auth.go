// Package auth resolves the identity of the caller of an HTTP request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Supported modes.
const (
	ModeNone   = "none"
	ModeHeader = "header"
	ModeOIDC   = "oidc"
)

// DefaultHeader carries the user id in header mode.
const DefaultHeader = "X-User-ID"

// ErrUnauthenticated is returned when a request carries no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the resolved caller. UID is empty for anonymous callers.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}

// Anonymous reports whether the identity has no user id.
func (i Identity) Anonymous() bool {
	return i.UID == ""
}

// Authenticator extracts an Identity from a request.
type Authenticator interface {
	Mode() string
	Authenticate(r *http.Request) (Identity, error)
}

// Config selects and configures an Authenticator.
type Config struct {
	Mode     string
	Header   string
	Issuer   string
	ClientID string
}

// New builds the Authenticator for cfg.Mode. OIDC discovery happens here, so
// ctx bounds the call to the issuer.
func New(ctx context.Context, cfg Config) (Authenticator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", ModeNone:
		return Anonymous{}, nil
	case ModeHeader:
		return NewHeader(cfg.Header), nil
	case ModeOIDC:
		return NewOIDC(ctx, cfg.Issuer, cfg.ClientID)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// Anonymous treats every caller as anonymous.
type Anonymous struct{}

func (Anonymous) Mode() string { return ModeNone }

func (Anonymous) Authenticate(*http.Request) (Identity, error) {
	return Identity{}, nil
}

// Header trusts a header set by an authenticating reverse proxy.
type Header struct {
	name string
}

// NewHeader reads the user id from the named header (DefaultHeader when empty).
func NewHeader(name string) *Header {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultHeader
	}
	return &Header{name: http.CanonicalHeaderKey(name)}
}

func (h *Header) Mode() string { return ModeHeader }

func (h *Header) Authenticate(r *http.Request) (Identity, error) {
	uid := strings.TrimSpace(r.Header.Get(h.name))
	if uid == "" {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UID: uid}, nil
}
