package auth

import "context"

// EnsureOrganization verifies the caller may act on organizationID.
// Admins may act on any organization; anonymous contexts pass through.
func EnsureOrganization(ctx context.Context, organizationID string) error {
	callerOrg := OrganizationIDFromContext(ctx)
	if callerOrg == "" || organizationID == "" {
		return nil
	}
	if RoleFromContext(ctx) == RoleAdmin {
		return nil
	}
	if callerOrg != organizationID {
		return ErrOrganizationMismatch
	}
	return nil
}
