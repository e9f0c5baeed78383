package auth

import (
	"errors"
	"net/http"
	"strings"
)

// Middleware authenticates admin API requests with organization-scoped JWTs and
// checks the caller's role against Policy.
type Middleware struct {
	secret []byte
	policy Policy
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{secret: secret, policy: policy}
}

// Handler is the chi middleware. Requests that no policy rule covers pass through
// without an identity.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		required, ok := m.policy.RequiredRole(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.authenticate(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="safetyband"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !identity.Role.Allows(required) {
			http.Error(w, "forbidden: "+string(required)+" role required", http.StatusForbidden)
			return
		}
		ctx := WithIdentity(r.Context(), identity.OrganizationID, identity.Role, identity.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate turns the bearer token into the caller identity. Claims are
// already validated by ParseJWT, so the organization and role are always set.
func (m *Middleware) authenticate(r *http.Request) (Identity, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Identity{}, ErrUnauthorized
	}
	claims, err := ParseJWT(token, m.secret)
	if err != nil {
		return Identity{}, errors.Join(ErrUnauthorized, err)
	}
	role, _ := NormalizeRole(claims.Role)
	return Identity{
		OrganizationID: claims.OrganizationID,
		Role:           role,
		Subject:        claims.Subject,
	}, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
