package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	masterdata "safetyband-cloud/internal/masterdata/domain"

	"github.com/google/uuid"
)

const defaultWearablesTable = "wearables"

// WearableRepository is a Postgres implementation for wearables.
type WearableRepository struct {
	db    DBTX
	table string
}

// NewWearableRepository constructs a repository.
func NewWearableRepository(db DBTX, opts ...WearableOption) *WearableRepository {
	repo := &WearableRepository{db: db, table: defaultWearablesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// WearableOption configures the repository.
type WearableOption func(*WearableRepository)

// WithWearableTable overrides the default table name.
func WithWearableTable(table string) WearableOption {
	return func(repo *WearableRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// GetByDisplayID loads a wearable by the id it reports on the wire.
func (r *WearableRepository) GetByDisplayID(ctx context.Context, displayID string) (*masterdata.Wearable, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("wearable repo: nil db")
	}
	if displayID == "" {
		return nil, errors.New("wearable repo: empty display id")
	}

	query := fmt.Sprintf(`
SELECT id, display_id, organization_id, user_id, version, created_at, updated_at
FROM %s
WHERE display_id = $1
LIMIT 1`, r.table)

	var (
		wearable masterdata.Wearable
		userID   sql.NullString
		version  sql.NullString
	)
	if err := r.db.QueryRowContext(ctx, query, displayID).Scan(
		&wearable.ID,
		&wearable.DisplayID,
		&wearable.OrganizationID,
		&userID,
		&version,
		&wearable.CreatedAt,
		&wearable.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	wearable.UserID = userID.String
	wearable.Version = version.String
	wearable.CreatedAt = wearable.CreatedAt.UTC()
	wearable.UpdatedAt = wearable.UpdatedAt.UTC()
	return &wearable, nil
}

// Create registers a wearable. An existing display id is re-assigned to the
// new organization and keeps its id.
func (r *WearableRepository) Create(ctx context.Context, wearable *masterdata.Wearable) error {
	if r == nil || r.db == nil {
		return errors.New("wearable repo: nil db")
	}
	if wearable == nil {
		return errors.New("wearable repo: nil wearable")
	}
	if wearable.ID == "" {
		wearable.ID = uuid.NewString()
	}
	if err := wearable.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	display_id,
	organization_id,
	user_id,
	version
) VALUES (
	$1, $2, $3, $4, $5
)
ON CONFLICT (display_id)
DO UPDATE SET
	organization_id = EXCLUDED.organization_id,
	updated_at = NOW()
RETURNING id`, r.table)

	if err := r.db.QueryRowContext(
		ctx,
		query,
		wearable.ID,
		wearable.DisplayID,
		wearable.OrganizationID,
		nullString(wearable.UserID),
		nullString(wearable.Version),
	).Scan(&wearable.ID); err != nil {
		return err
	}
	now := time.Now().UTC()
	if wearable.CreatedAt.IsZero() {
		wearable.CreatedAt = now
	}
	wearable.UpdatedAt = now
	return nil
}

// Touch refreshes updated_at and, when non-empty, the firmware version.
func (r *WearableRepository) Touch(ctx context.Context, id, version string) error {
	if r == nil || r.db == nil {
		return errors.New("wearable repo: nil db")
	}
	if id == "" {
		return errors.New("wearable repo: empty id")
	}

	query := fmt.Sprintf(`
UPDATE %s
SET updated_at = NOW(),
	version = COALESCE(NULLIF($2, ''), version)
WHERE id = $1`, r.table)

	_, err := r.db.ExecContext(ctx, query, id, version)
	return err
}
