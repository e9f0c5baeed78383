package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	exposure "safetyband-cloud/internal/exposure/domain"

	"github.com/google/uuid"
)

const (
	defaultPendingTable = "hav_pending_samples"
	defaultEventsTable  = "events"

	havEventType = "HandArmVibration"

	// markDoneBatchSize bounds the number of ids per UPDATE statement.
	markDoneBatchSize = 50
)

// SampleRepository persists pending HAV samples and the events grouped from them.
type SampleRepository struct {
	db           *sql.DB
	pendingTable string
	eventsTable  string
}

// NewSampleRepository constructs a repository with default table names.
func NewSampleRepository(db *sql.DB, opts ...RepositoryOption) *SampleRepository {
	repo := &SampleRepository{
		db:           db,
		pendingTable: defaultPendingTable,
		eventsTable:  defaultEventsTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*SampleRepository)

// WithPendingTable overrides the pending samples table name.
func WithPendingTable(table string) RepositoryOption {
	return func(repo *SampleRepository) {
		if table != "" {
			repo.pendingTable = table
		}
	}
}

// WithEventsTable overrides the events table name.
func WithEventsTable(table string) RepositoryOption {
	return func(repo *SampleRepository) {
		if table != "" {
			repo.eventsTable = table
		}
	}
}

// Exists reports whether a sample with the same wearable, timestamp and duration was stored.
func (r *SampleRepository) Exists(ctx context.Context, wearableID string, ts time.Time, duration int) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("sample repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT EXISTS (
	SELECT 1 FROM %s
	WHERE wearable_id = $1 AND ts = $2 AND duration = $3
)`, r.pendingTable)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, wearableID, ts.UTC(), duration).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Insert stores a pending sample.
func (r *SampleRepository) Insert(ctx context.Context, sample *exposure.PendingSample) error {
	if r == nil || r.db == nil {
		return errors.New("sample repo: nil db")
	}
	if sample == nil || sample.WearableID == "" || sample.Timestamp.IsZero() {
		return errors.New("sample repo: invalid sample")
	}
	if !sample.Severity.IsValid() {
		return exposure.ErrInvalidSeverity
	}
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	status := sample.Status
	if status == "" {
		status = exposure.StatusPending
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	wearable_id,
	organization_id,
	user_id,
	severity,
	ts,
	duration,
	status
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)`, r.pendingTable)

	_, err := r.db.ExecContext(ctx, query,
		sample.ID,
		sample.WearableID,
		sample.OrganizationID,
		nullString(sample.UserID),
		sample.Severity.String(),
		sample.Timestamp.UTC(),
		sample.Duration,
		string(status),
	)
	return err
}

// ListPending returns the pending samples of one wearable ordered by timestamp.
// An empty organizationID matches every organization.
func (r *SampleRepository) ListPending(ctx context.Context, organizationID, wearableID string) ([]exposure.PendingSample, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sample repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, wearable_id, organization_id, user_id, severity, ts, duration, status
FROM %s
WHERE wearable_id = $1 AND status = $2 AND ($3 = '' OR organization_id = $3)
ORDER BY ts ASC, id ASC`, r.pendingTable)

	rows, err := r.db.QueryContext(ctx, query, wearableID, string(exposure.StatusPending), organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []exposure.PendingSample
	for rows.Next() {
		var (
			sample   exposure.PendingSample
			userID   sql.NullString
			severity string
			status   string
		)
		if err := rows.Scan(
			&sample.ID,
			&sample.WearableID,
			&sample.OrganizationID,
			&userID,
			&severity,
			&sample.Timestamp,
			&sample.Duration,
			&status,
		); err != nil {
			return nil, err
		}
		level, ok := exposure.ParseSeverity(severity)
		if !ok {
			return nil, fmt.Errorf("sample repo: sample %s: %w", sample.ID, exposure.ErrInvalidSeverity)
		}
		sample.Severity = level
		sample.UserID = userID.String
		sample.Timestamp = sample.Timestamp.UTC()
		sample.Status = exposure.SampleStatus(status)
		result = append(result, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListWearablesWithPending returns the ids of wearables that still have pending samples.
func (r *SampleRepository) ListWearablesWithPending(ctx context.Context) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sample repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT DISTINCT wearable_id
FROM %s
WHERE status = $1
ORDER BY wearable_id`, r.pendingTable)

	rows, err := r.db.QueryContext(ctx, query, string(exposure.StatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveProcessed inserts the grouped events and marks the consumed samples done
// in a single transaction.
func (r *SampleRepository) SaveProcessed(ctx context.Context, events []exposure.Event, consumedIDs []string) error {
	if r == nil || r.db == nil {
		return errors.New("sample repo: nil db")
	}
	if len(events) == 0 && len(consumedIDs) == 0 {
		return nil
	}

	insert := fmt.Sprintf(`
INSERT INTO %s (
	id,
	ts,
	type,
	wearable_id,
	organization_id,
	user_id,
	imu_level,
	duration
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)`, r.eventsTable)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if len(events) > 0 {
		stmt, err := tx.PrepareContext(ctx, insert)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer stmt.Close()

		for _, event := range events {
			if event.WearableID == "" || event.Timestamp.IsZero() || !event.Severity.IsValid() {
				_ = tx.Rollback()
				return errors.New("sample repo: invalid event")
			}
			id := event.ID
			if id == "" {
				id = uuid.NewString()
			}
			if _, err := stmt.ExecContext(ctx,
				id,
				event.Timestamp.UTC(),
				havEventType,
				event.WearableID,
				nullString(event.OrganizationID),
				nullString(event.UserID),
				event.Severity.String(),
				event.Duration,
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}

	for start := 0; start < len(consumedIDs); start += markDoneBatchSize {
		end := start + markDoneBatchSize
		if end > len(consumedIDs) {
			end = len(consumedIDs)
		}
		if err := r.markDone(ctx, tx, consumedIDs[start:end]); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (r *SampleRepository) markDone(ctx context.Context, tx *sql.Tx, ids []string) error {
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(exposure.StatusDone))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = NOW() WHERE id IN (%s)`,
		r.pendingTable, strings.Join(placeholders, ", "))

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != int64(len(ids)) {
		return fmt.Errorf("sample repo: marked %d of %d samples done", affected, len(ids))
	}
	return nil
}

// ListEvents returns HAV events for a wearable within [from, to).
func (r *SampleRepository) ListEvents(ctx context.Context, wearableID string, from, to time.Time) ([]exposure.Event, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sample repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, ts, wearable_id, organization_id, user_id, imu_level, duration
FROM %s
WHERE wearable_id = $1 AND type = $2 AND ts >= $3 AND ts < $4
ORDER BY ts ASC`, r.eventsTable)

	rows, err := r.db.QueryContext(ctx, query, wearableID, havEventType, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []exposure.Event
	for rows.Next() {
		var (
			event  exposure.Event
			orgID  sql.NullString
			userID sql.NullString
			level  sql.NullString
		)
		if err := rows.Scan(&event.ID, &event.Timestamp, &event.WearableID, &orgID, &userID, &level, &event.Duration); err != nil {
			return nil, err
		}
		severity, ok := exposure.ParseSeverity(level.String)
		if !ok {
			severity = exposure.SeverityLow
		}
		event.Severity = severity
		event.OrganizationID = orgID.String
		event.UserID = userID.String
		event.Timestamp = event.Timestamp.UTC()
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
