package audit

import (
	"context"
	"net/http/httptest"
	"regexp"
	"testing"

	"safetyband-cloud/internal/auth"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestFromRequestCarriesIdentity(t *testing.T) {
	req := httptest.NewRequest("PUT", "/api/v1/organizations/org-1/configurations", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), "org-1", auth.RoleOperator, "alice"))

	entry := FromRequest(req, "configuration.upsert", "organization", "org-1", map[string]any{"count": 2})
	if entry.OrganizationID != "org-1" || entry.Actor != "alice" || entry.Role != "operator" {
		t.Fatalf("unexpected identity: %+v", entry)
	}
	if string(entry.Metadata) != `{"count":2}` {
		t.Fatalf("unexpected metadata: %s", entry.Metadata)
	}
}

func TestRepositoryLogFillsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	metadata := []byte(`{"format":"pdf"}`)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(sqlmock.AnyArg(), "org-1", "alice", "viewer", "exposure.report", "wearable", "0811",
			"w-1", metadata, DigestJSON(metadata), "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewRepository(db).Log(context.Background(), Entry{
		OrganizationID: "org-1",
		Actor:          "alice",
		Role:           "viewer",
		Action:         "exposure.report",
		ResourceType:   "wearable",
		ResourceID:     "0811",
		WearableID:     "w-1",
		Metadata:       metadata,
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryLogCustomTableAndNulls(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_archive")).
		WithArgs("audit-1", nil, "safetyctl", "admin", "exposure.group", "wearable", "0811",
			nil, nil, "", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewRepository(db, WithTable("audit_archive")).Log(context.Background(), Entry{
		ID:           "audit-1",
		Actor:        "safetyctl",
		Role:         "admin",
		Action:       " exposure.group ",
		ResourceType: "wearable",
		ResourceID:   "0811",
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryLogRequiresAction(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	if err := NewRepository(db).Log(context.Background(), Entry{}); err != ErrMissingAction {
		t.Fatalf("expected ErrMissingAction, got %v", err)
	}
	var nilRepo *Repository
	if err := nilRepo.Log(context.Background(), Entry{Action: "x"}); err == nil {
		t.Fatalf("expected nil repository error")
	}
}
