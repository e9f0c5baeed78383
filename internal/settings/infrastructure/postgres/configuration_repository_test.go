package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	settings "safetyband-cloud/internal/settings/domain"

	"github.com/DATA-DOG/go-sqlmock"
)

var configColumns = []string{"id", "organization_id", "wearable_id", "category", "enabled", "icon_alert", "vibration_alert", "sound_alert", "threshold", "updated_at"}

func TestConfigurationRepository_ListForOrganization(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	updated := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(configColumns).
		AddRow("c-1", "org-1", nil, "PPE_SMALL", true, true, false, false, 2, updated).
		AddRow("c-2", "org-1", nil, "RETIRED_CATEGORY", true, false, false, false, 1, updated)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE organization_id = $1 AND wearable_id IS NULL")).
		WithArgs("org-1").
		WillReturnRows(rows)

	got, err := NewConfigurationRepository(db).ListForOrganization(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Category != settings.PPESmall || got[0].Threshold != 2 || got[0].WearableID != "" {
		t.Fatalf("unexpected rows: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConfigurationRepository_UpsertUpdatesExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	updated := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE configurations")).
		WithArgs("org-1", "w-1", "HAV_HIGH", true, false, true, false, 90, updated).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c-7"))

	cfg := &settings.Configuration{OrganizationID: "org-1", WearableID: "w-1", Category: settings.HAVHigh, Enabled: true, VibrationAlert: true, Threshold: 90, UpdatedAt: updated}
	if err := NewConfigurationRepository(db).Upsert(context.Background(), cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if cfg.ID != "c-7" {
		t.Fatalf("expected id from update, got %s", cfg.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConfigurationRepository_UpsertInsertsMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	updated := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE configurations")).
		WithArgs("org-1", nil, "NOISE_LOW", true, true, true, true, 85, updated).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO configurations")).
		WithArgs(sqlmock.AnyArg(), "org-1", nil, "NOISE_LOW", true, true, true, true, 85, updated).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cfg := &settings.Configuration{OrganizationID: "org-1", Category: settings.NoiseLow, Enabled: true, IconAlert: true, VibrationAlert: true, SoundAlert: true, Threshold: 85, UpdatedAt: updated}
	if err := NewConfigurationRepository(db).Upsert(context.Background(), cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if cfg.ID == "" {
		t.Fatalf("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
