package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	secret := []byte("test-secret")
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))
	handler := mw.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations/org-1/configurations", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthMiddleware_ViewerForbiddenConfigurationPut(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "org-1", "viewer")
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))
	handler := mw.Handler(okHandler())

	req := httptest.NewRequest(http.MethodPut, "/api/v1/organizations/org-1/configurations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestAuthMiddleware_ViewerAllowedReport(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "org-1", "viewer")
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))
	var orgID string
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID = OrganizationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exposure/report", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if orgID != "org-1" {
		t.Fatalf("expected organization org-1, got %q", orgID)
	}
}

func TestAuthMiddleware_ExemptIngest(t *testing.T) {
	mw := NewMiddleware([]byte("test-secret"), NewDefaultPolicy([]string{"/healthz"}, []string{"/ingest/"}))
	handler := mw.Handler(okHandler())

	for _, path := range []string{"/healthz", "/ingest/device"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.Code)
		}
	}
}

func TestIssueJWT_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := IssueJWT(secret, "org-7", "Operator", "cli", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ParseJWT(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.OrganizationID != "org-7" || claims.Role != string(RoleOperator) || claims.Subject != "cli" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := ParseJWT(token, []byte("other")); err == nil {
		t.Fatalf("expected signature error")
	}
	if _, err := IssueJWT(secret, "org-7", "root", "", time.Hour); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected invalid role error, got %v", err)
	}
	if _, err := IssueJWT(secret, "", "viewer", "", time.Hour); !errors.Is(err, ErrMissingOrganization) {
		t.Fatalf("expected missing organization error, got %v", err)
	}
}

func TestEnsureOrganization(t *testing.T) {
	viewer := WithIdentity(context.Background(), "org-1", RoleViewer, "u")
	if err := EnsureOrganization(viewer, "org-1"); err != nil {
		t.Fatalf("expected access, got %v", err)
	}
	if err := EnsureOrganization(viewer, "org-2"); !errors.Is(err, ErrOrganizationMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	admin := WithIdentity(context.Background(), "org-1", RoleAdmin, "u")
	if err := EnsureOrganization(admin, "org-2"); err != nil {
		t.Fatalf("admin should cross organizations, got %v", err)
	}
}

func TestIngestAuthMiddleware(t *testing.T) {
	secret := []byte("ingest-secret")
	mw := NewIngestAuthMiddleware(secret, time.Minute)
	var body string
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))

	payload := `{"device_id":"W1"}`
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/ingest/device", strings.NewReader(payload))
	req.Header.Set("X-Device-Timestamp", ts)
	req.Header.Set("X-Device-Signature", SignIngest(secret, ts, []byte(payload)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || body != payload {
		t.Fatalf("expected signed request through, got %d body=%q", resp.Code, body)
	}

	req = httptest.NewRequest(http.MethodPost, "/ingest/device", strings.NewReader(payload))
	req.Header.Set("X-Device-Timestamp", ts)
	req.Header.Set("X-Device-Signature", "deadbeef")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	open := NewIngestAuthMiddleware(nil, 0).Wrap(okHandler())
	resp = httptest.NewRecorder()
	open.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/ingest/device", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("unsigned ingest should pass without secret, got %d", resp.Code)
	}
}

func mustToken(t *testing.T, secret []byte, organizationID, role string) string {
	t.Helper()
	claims := Claims{
		OrganizationID: organizationID,
		Role:           role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestPolicyRequiredRole(t *testing.T) {
	policy := NewDefaultPolicy([]string{"/healthz"}, []string{"/ingest/"})
	cases := []struct {
		method string
		path   string
		role   Role
		ok     bool
	}{
		{http.MethodGet, "/api/v1/organizations/org-1/configurations", RoleViewer, true},
		{http.MethodPut, "/api/v1/organizations/org-1/configurations", RoleOperator, true},
		{http.MethodPost, "/api/v1/exposure/report", RoleViewer, true},
		{http.MethodPost, "/api/v1/exposure/group", RoleOperator, true},
		{http.MethodGet, "/api/v1/events", RoleViewer, true},
		{http.MethodDelete, "/api/v1/events", RoleOperator, true},
		{http.MethodGet, "/status", "", false},
	}
	for _, tc := range cases {
		role, ok := policy.RequiredRole(httptest.NewRequest(tc.method, tc.path, nil))
		if role != tc.role || ok != tc.ok {
			t.Fatalf("%s %s: expected (%s, %t), got (%s, %t)", tc.method, tc.path, tc.role, tc.ok, role, ok)
		}
	}
	if !policy.IsExempt(httptest.NewRequest(http.MethodPost, "/ingest/device", nil)) {
		t.Fatalf("ingest should be exempt")
	}
	if !policy.IsExempt(httptest.NewRequest(http.MethodGet, "/healthz", nil)) {
		t.Fatalf("healthz should be exempt")
	}
	if policy.IsExempt(httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)) {
		t.Fatalf("api should not be exempt")
	}
}

func TestRoleAllows(t *testing.T) {
	cases := []struct {
		role     Role
		required Role
		want     bool
	}{
		{RoleViewer, RoleViewer, true},
		{RoleViewer, RoleOperator, false},
		{RoleOperator, RoleViewer, true},
		{RoleAdmin, RoleOperator, true},
		{Role("root"), RoleViewer, false},
		{Role(""), Role(""), false},
	}
	for _, tc := range cases {
		if got := tc.role.Allows(tc.required); got != tc.want {
			t.Fatalf("%q allows %q: expected %t, got %t", tc.role, tc.required, tc.want, got)
		}
	}
	if role, ok := NormalizeRole("  Operator "); !ok || role != RoleOperator {
		t.Fatalf("expected operator, got %q ok=%t", role, ok)
	}
}

func TestAuthMiddleware_BearerParsing(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "org-1", "viewer")
	handler := NewMiddleware(secret, NewDefaultPolicy(nil, nil)).Handler(okHandler())

	cases := map[string]int{
		"Bearer " + token:  http.StatusOK,
		"bearer  " + token: http.StatusOK,
		"Basic " + token:   http.StatusUnauthorized,
		"Bearer":           http.StatusUnauthorized,
		token:              http.StatusUnauthorized,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		req.Header.Set("Authorization", header)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("header %q: expected %d, got %d", header, want, resp.Code)
		}
		if want == http.StatusUnauthorized && resp.Header().Get("WWW-Authenticate") == "" {
			t.Fatalf("header %q: expected WWW-Authenticate challenge", header)
		}
	}
}
