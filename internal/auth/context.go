package auth

import "context"

type identityKey struct{}

// Identity is the authenticated caller of an admin API request.
type Identity struct {
	OrganizationID string
	Role           Role
	Subject        string
}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, organizationID string, role Role, subject string) context.Context {
	return context.WithValue(ctx, identityKey{}, Identity{
		OrganizationID: organizationID,
		Role:           role,
		Subject:        subject,
	})
}

// IdentityFromContext returns the caller identity stored by the middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}

// OrganizationIDFromContext returns the organization the token was issued for.
func OrganizationIDFromContext(ctx context.Context) string {
	identity, _ := IdentityFromContext(ctx)
	return identity.OrganizationID
}

func RoleFromContext(ctx context.Context) Role {
	identity, _ := IdentityFromContext(ctx)
	return identity.Role
}

func SubjectFromContext(ctx context.Context) string {
	identity, _ := IdentityFromContext(ctx)
	return identity.Subject
}
