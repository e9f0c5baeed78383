package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"safetyband-cloud/internal/audit"
	"safetyband-cloud/internal/auth"
	exposureapp "safetyband-cloud/internal/exposure/application"
	exposure "safetyband-cloud/internal/exposure/domain"
	"safetyband-cloud/internal/exposure/infrastructure/memory"
	masterdata "safetyband-cloud/internal/masterdata/domain"
)

type stubWearables struct{}

func (stubWearables) GetByDisplayID(_ context.Context, displayID string) (*masterdata.Wearable, error) {
	if displayID != "0811" {
		return nil, nil
	}
	return &masterdata.Wearable{ID: "w-1", DisplayID: "0811", OrganizationID: "org-1"}, nil
}

func (stubWearables) Create(context.Context, *masterdata.Wearable) error { return nil }

func (stubWearables) Touch(context.Context, string, string) error { return nil }

type stubGrouper struct {
	err error
}

func (s stubGrouper) GroupWearable(_ context.Context, displayID string) (exposureapp.GroupResult, error) {
	if s.err != nil {
		return exposureapp.GroupResult{}, s.err
	}
	return exposureapp.GroupResult{DisplayID: displayID, Consumed: 3, Written: 2, Totals: [exposure.SeverityCount]int{10, 0, 5, 0}}, nil
}

func newTestHandler(t *testing.T, grouper Grouper, auditLog audit.Logger) *Handler {
	t.Helper()
	repo := memory.NewSampleRepository()
	base := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	err := repo.SaveProcessed(context.Background(), []exposure.Event{
		{ID: "e-1", WearableID: "w-1", Severity: exposure.SeverityHigh, Timestamp: base, Duration: 30},
		{ID: "e-2", WearableID: "w-1", Severity: exposure.SeverityLow, Timestamp: base.Add(time.Hour), Duration: 20},
	}, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	h, err := NewHandler(stubWearables{}, repo, grouper, auditLog, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	h.now = func() time.Time { return base.Add(12 * time.Hour) }
	return h
}

func TestHandleReport_JSON(t *testing.T) {
	auditLog := &audit.MemoryLogger{}
	h := newTestHandler(t, nil, auditLog)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exposure/report?wearable=0811&from=2024-06-10&to=2024-06-11", nil)
	rec := httptest.NewRecorder()

	h.HandleReport(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Totals       map[string]int `json:"totals"`
		TotalSeconds int            `json:"total_seconds"`
		Events       []any          `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Totals["high"] != 30 || body.Totals["low"] != 20 || body.TotalSeconds != 50 || len(body.Events) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if len(auditLog.Entries) != 1 || auditLog.Entries[0].Action != "exposure.report" {
		t.Fatalf("expected audit entry, got %+v", auditLog.Entries)
	}
}

func TestHandleReport_Formats(t *testing.T) {
	h := newTestHandler(t, nil, nil)
	cases := map[string]string{
		"pdf":  "application/pdf",
		"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
	for format, contentType := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/exposure/report?wearable=0811&format="+format, nil)
		rec := httptest.NewRecorder()
		h.HandleReport(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", format, rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != contentType {
			t.Fatalf("%s: unexpected content type %q", format, got)
		}
	}
}

func TestHandleReport_Errors(t *testing.T) {
	h := newTestHandler(t, nil, nil)
	cases := []struct {
		name   string
		url    string
		ctx    func(context.Context) context.Context
		status int
	}{
		{name: "missing wearable", url: "/api/v1/exposure/report", status: http.StatusBadRequest},
		{name: "unknown wearable", url: "/api/v1/exposure/report?wearable=9999", status: http.StatusNotFound},
		{name: "bad range", url: "/api/v1/exposure/report?wearable=0811&from=2024-06-11&to=2024-06-10", status: http.StatusBadRequest},
		{name: "bad format", url: "/api/v1/exposure/report?wearable=0811&format=csv", status: http.StatusBadRequest},
		{
			name: "other organization",
			url:  "/api/v1/exposure/report?wearable=0811",
			ctx: func(ctx context.Context) context.Context {
				return auth.WithIdentity(ctx, "org-2", auth.RoleViewer, "bob")
			},
			status: http.StatusForbidden,
		},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.url, nil)
		if tc.ctx != nil {
			req = req.WithContext(tc.ctx(req.Context()))
		}
		rec := httptest.NewRecorder()
		h.HandleReport(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, rec.Code)
		}
	}
}

func TestHandleGroup(t *testing.T) {
	h := newTestHandler(t, stubGrouper{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exposure/group", strings.NewReader(`{"wearable_id":"0811"}`))
	rec := httptest.NewRecorder()

	h.HandleGroup(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Consumed int `json:"consumed"`
		Written  int `json:"written"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Consumed != 3 || body.Written != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHandleGroup_InProgress(t *testing.T) {
	h := newTestHandler(t, stubGrouper{err: exposure.ErrGroupingInProgress}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exposure/group", strings.NewReader(`{"wearable_id":"0811"}`))
	rec := httptest.NewRecorder()

	h.HandleGroup(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
