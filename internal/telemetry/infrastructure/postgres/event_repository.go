package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	telemetry "safetyband-cloud/internal/telemetry/domain"

	"github.com/google/uuid"
)

const defaultEventsTable = "events"

// EventRepository is a Postgres implementation for beacon and noise events.
type EventRepository struct {
	db    *sql.DB
	table string
}

// NewEventRepository constructs a repository with default table name.
func NewEventRepository(db *sql.DB, opts ...RepositoryOption) *EventRepository {
	repo := &EventRepository{db: db, table: defaultEventsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*EventRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *EventRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Exists reports whether the same event was already stored for the wearable.
func (r *EventRepository) Exists(ctx context.Context, wearableID string, eventType telemetry.EventType, ts time.Time, duration int) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("event repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT EXISTS (
	SELECT 1 FROM %s
	WHERE wearable_id = $1 AND type = $2 AND ts = $3 AND duration = $4
)`, r.table)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, wearableID, string(eventType), ts.UTC(), duration).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Insert stores one event.
func (r *EventRepository) Insert(ctx context.Context, event *telemetry.StoredEvent) error {
	if r == nil || r.db == nil {
		return errors.New("event repo: nil db")
	}
	if event == nil || event.WearableID == "" || event.Type == "" || event.Timestamp.IsZero() {
		return errors.New("event repo: invalid event")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	ts,
	type,
	wearable_id,
	beacon_id,
	organization_id,
	user_id,
	duration
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)`, r.table)

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Timestamp.UTC(),
		string(event.Type),
		event.WearableID,
		nullString(event.BeaconID),
		nullString(event.OrganizationID),
		nullString(event.UserID),
		event.Duration,
	)
	return err
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
