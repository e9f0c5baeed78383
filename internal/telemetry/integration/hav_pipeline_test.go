package integration_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	exposureapp "safetyband-cloud/internal/exposure/application"
	exposure "safetyband-cloud/internal/exposure/domain"
	exposurerepo "safetyband-cloud/internal/exposure/infrastructure/postgres"
	masterdatarepo "safetyband-cloud/internal/masterdata/infrastructure/postgres"
	telemetryapp "safetyband-cloud/internal/telemetry/application"
	telemetry "safetyband-cloud/internal/telemetry/domain"
	telemetrypostgres "safetyband-cloud/internal/telemetry/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func TestHAVPipeline_ReceiveGroupList(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"organizations", "wearables", "charging_stations", "hav_pending_samples", "events"} {
		if !tableExists(db, table) {
			t.Skipf("%s missing; run migrations", table)
		}
	}

	ctx := context.Background()
	orgID := "org-it"
	chargerID := "charger-it"
	displayID := "IT-0811"
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	cleanup := func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM events WHERE wearable_id IN (SELECT id FROM wearables WHERE display_id = $1)`, displayID)
		_, _ = db.ExecContext(ctx, `DELETE FROM hav_pending_samples WHERE wearable_id IN (SELECT id FROM wearables WHERE display_id = $1)`, displayID)
		_, _ = db.ExecContext(ctx, `DELETE FROM wearables WHERE display_id = $1`, displayID)
		_, _ = db.ExecContext(ctx, `DELETE FROM charging_stations WHERE id = $1`, chargerID)
		_, _ = db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, orgID)
	}
	cleanup()
	defer cleanup()

	if _, err := db.ExecContext(ctx, `INSERT INTO organizations (id, name) VALUES ($1, $2)`, orgID, "Integration"); err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	if _, err := db.ExecContext(ctx, `
INSERT INTO charging_stations (id, display_id, organization_id, timezone, version)
VALUES ($1, $2, $3, 'GMT-0', '1.0.0')`, chargerID, "C-IT", orgID); err != nil {
		t.Fatalf("seed charger: %v", err)
	}

	wearables := masterdatarepo.NewWearableRepository(db)
	organizations := masterdatarepo.NewOrganizationRepository(db)
	samples := exposurerepo.NewSampleRepository(db)

	receiver, err := telemetryapp.NewReceiveService(
		wearables,
		masterdatarepo.NewChargerRepository(db),
		masterdatarepo.NewBeaconRepository(db),
		telemetrypostgres.NewEventRepository(db),
		samples,
		nil,
		fixedClock{now: now},
	)
	if err != nil {
		t.Fatalf("receive service: %v", err)
	}

	payloads := []struct {
		hour, minute int
		level        string
		millis       int
	}{
		{9, 0, "low", 120000},
		{9, 10, "medium", 80000},
		{9, 20, "high", 80000},
		{10, 5, "medium", 30000},
	}
	for _, p := range payloads {
		raw := fmt.Sprintf(`{"request_type":0,"device_id":%q,"charger_id":"CS C-IT","version":"2.4.0",`+
			`"event_type":1,"imu_level":%q,"duration":%d,`+
			`"event_time":{"year":%d,"month":%d,"day":%d,"hour":%d,"minute":%d,"second":0}}`,
			displayID, p.level, p.millis, day.Year(), int(day.Month()), day.Day(), p.hour, p.minute)
		var msg telemetry.DeviceMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		outcome, err := receiver.Receive(ctx, msg)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if outcome != telemetryapp.OutcomePending {
			t.Fatalf("expected pending, got %s", outcome)
		}
	}

	grouping, err := exposureapp.NewGroupingService(wearables, organizations, samples, samples)
	if err != nil {
		t.Fatalf("grouping service: %v", err)
	}
	result, err := grouping.GroupWearable(ctx, displayID)
	if err != nil {
		t.Fatalf("group wearable: %v", err)
	}
	if result.Consumed != len(payloads) {
		t.Fatalf("expected %d consumed samples, got %d", len(payloads), result.Consumed)
	}

	events, err := samples.ListEvents(ctx, result.WearableID, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	var totals [exposure.SeverityCount]int
	for _, evt := range events {
		totals[evt.Severity] += evt.Duration
	}
	if totals[exposure.SeverityLow] != 40 || totals[exposure.SeverityMedium] != 30 || totals[exposure.SeverityHigh] != 80 {
		t.Fatalf("unexpected totals: %v", totals)
	}

	pending, err := samples.ListPending(ctx, orgID, result.WearableID)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending samples, got %d", len(pending))
	}
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
SELECT EXISTS (
	SELECT 1
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false
	}
	return exists
}
