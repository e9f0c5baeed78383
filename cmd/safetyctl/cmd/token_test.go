package cmd

import (
	"strings"
	"testing"

	"safetyband-cloud/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	out, err := execute(t, "token", "--org", "org-1", "--role", "Operator", "--secret", "s3cret", "--subject", "ops")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	claims, err := auth.ParseJWT(strings.TrimSpace(out), []byte("s3cret"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.OrganizationID != "org-1" || claims.Role != string(auth.RoleOperator) || claims.Subject != "ops" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenSecretFromEnv(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "from-env")
	out, err := execute(t, "token", "--org", "org-1")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	claims, err := auth.ParseJWT(strings.TrimSpace(out), []byte("from-env"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Role != string(auth.RoleViewer) {
		t.Fatalf("expected default viewer role, got %q", claims.Role)
	}
}

func TestTokenValidation(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	cases := [][]string{
		{"token", "--org", "org-1"},
		{"token", "--org", "org-1", "--secret", "x", "--role", "root"},
		{"token", "--secret", "x"},
		{"token", "--org", "org-1", "--secret", "x", "--ttl", "-1h"},
	}
	for _, args := range cases {
		if _, err := execute(t, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}
