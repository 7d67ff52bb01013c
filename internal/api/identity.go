package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Identity is what the external login flow produced for the caller. The
// core only ever consumes the (name, groups) pair; how they were obtained
// (OIDC, SSO, a trusted proxy) is outside this process.
type Identity struct {
	Name   string
	Groups []string
}

// Authenticator resolves the authenticated identity for a request.
type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, error)
}

// ErrUnauthenticated signals that no identity could be established.
var ErrUnauthenticated = errors.New("not authenticated")

// HeaderAuthenticator trusts identity headers set by an authenticating
// reverse proxy (oauth2-proxy and friends), which terminates the OIDC flow
// and forwards the resolved user and group claims.
type HeaderAuthenticator struct {
	UserHeader   string
	GroupsHeader string
}

func NewHeaderAuthenticator() *HeaderAuthenticator {
	return &HeaderAuthenticator{
		UserHeader:   "X-Forwarded-User",
		GroupsHeader: "X-Forwarded-Groups",
	}
}

func (a *HeaderAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	name := r.Header.Get(a.UserHeader)
	if name == "" {
		return nil, ErrUnauthenticated
	}

	var groups []string
	for _, g := range strings.Split(r.Header.Get(a.GroupsHeader), ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}

	return &Identity{Name: name, Groups: groups}, nil
}

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// IdentityFrom returns the authenticated identity stored by RequireAuth.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}
