package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	masterdata "safetyband-cloud/internal/masterdata/domain"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestWearableRepository_GetByDisplayID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "display_id", "organization_id", "user_id", "version", "created_at", "updated_at"}).
		AddRow("w-uuid", "0811", "org-1", nil, "2.4.0", created, created)
	mock.ExpectQuery(regexp.QuoteMeta("FROM wearables WHERE display_id = $1")).
		WithArgs("0811").
		WillReturnRows(rows)

	repo := NewWearableRepository(db)
	wearable, err := repo.GetByDisplayID(context.Background(), "0811")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if wearable == nil || wearable.ID != "w-uuid" || wearable.OrganizationID != "org-1" {
		t.Fatalf("unexpected wearable: %+v", wearable)
	}
	if wearable.UserID != "" || wearable.Version != "2.4.0" {
		t.Fatalf("unexpected optional fields: %+v", wearable)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWearableRepository_GetByDisplayIDMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM wearables WHERE display_id = $1")).
		WithArgs("9999").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	wearable, err := NewWearableRepository(db).GetByDisplayID(context.Background(), "9999")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if wearable != nil {
		t.Fatalf("expected nil wearable, got %+v", wearable)
	}
}

func TestWearableRepository_CreateAssignsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wearables")).
		WithArgs(sqlmock.AnyArg(), "0161", "org-2", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	wearable := &masterdata.Wearable{DisplayID: "0161", OrganizationID: "org-2"}
	if err := NewWearableRepository(db).Create(context.Background(), wearable); err != nil {
		t.Fatalf("create: %v", err)
	}
	if wearable.ID != "existing-id" {
		t.Fatalf("expected id from RETURNING, got %s", wearable.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWearableRepository_Touch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE wearables SET updated_at = NOW()")).
		WithArgs("w-1", "2.5.0").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewWearableRepository(db).Touch(context.Background(), "w-1", "2.5.0"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrganizationRepository_GetGroupsAllowLists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM organizations WHERE id = $1")).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow("org-1", "Knauf", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM beacon_types bt")).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "descriptor", "display_id"}).
			AddRow("bt-1", "SmallPPE", "0805").
			AddRow("bt-1", "SmallPPE", "0811").
			AddRow("bt-2", "LargeMachine", nil))

	org, err := NewOrganizationRepository(db).Get(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if org == nil || len(org.BeaconTypes) != 2 {
		t.Fatalf("unexpected organization: %+v", org)
	}
	if !org.BeaconTypes[0].Allows("0811") || len(org.BeaconTypes[0].AllowList) != 2 {
		t.Fatalf("unexpected allow-list: %+v", org.BeaconTypes[0])
	}
	if len(org.BeaconTypes[1].AllowList) != 0 {
		t.Fatalf("expected empty allow-list, got %+v", org.BeaconTypes[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBeaconRepository_UpdateBatteryZeroOnlyTouches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE beacons SET updated_at = NOW() WHERE id = $1")).
		WithArgs("b-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE beacons SET battery = $2, updated_at = NOW() WHERE id = $1")).
		WithArgs("b-1", 64).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewBeaconRepository(db)
	if err := repo.UpdateBattery(context.Background(), "b-1", 0); err != nil {
		t.Fatalf("update zero: %v", err)
	}
	if err := repo.UpdateBattery(context.Background(), "b-1", 64); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestChargerRepository_GetByDisplayID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM charging_stations WHERE display_id = $1")).
		WithArgs("C042").
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_id", "organization_id", "timezone", "version", "created_at", "updated_at"}).
			AddRow("c-1", "C042", "org-1", "GMT+2", nil, now, now))

	charger, err := NewChargerRepository(db).GetByDisplayID(context.Background(), "C042")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if charger == nil || charger.Timezone != "GMT+2" || charger.OrganizationID != "org-1" {
		t.Fatalf("unexpected charger: %+v", charger)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
