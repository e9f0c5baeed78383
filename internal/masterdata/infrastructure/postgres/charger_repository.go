package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "safetyband-cloud/internal/masterdata/domain"
)

const defaultChargersTable = "charging_stations"

// ChargerRepository is a Postgres implementation for charging stations.
type ChargerRepository struct {
	db    DBTX
	table string
}

// NewChargerRepository constructs a repository.
func NewChargerRepository(db DBTX, opts ...ChargerOption) *ChargerRepository {
	repo := &ChargerRepository{db: db, table: defaultChargersTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ChargerOption configures the repository.
type ChargerOption func(*ChargerRepository)

// WithChargerTable overrides the default table name.
func WithChargerTable(table string) ChargerOption {
	return func(repo *ChargerRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// GetByDisplayID loads a charger by display id.
func (r *ChargerRepository) GetByDisplayID(ctx context.Context, displayID string) (*masterdata.ChargingStation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("charger repo: nil db")
	}
	if displayID == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`
SELECT id, display_id, organization_id, timezone, version, created_at, updated_at
FROM %s
WHERE display_id = $1
LIMIT 1`, r.table)

	var (
		charger  masterdata.ChargingStation
		timezone sql.NullString
		version  sql.NullString
	)
	if err := r.db.QueryRowContext(ctx, query, displayID).Scan(
		&charger.ID,
		&charger.DisplayID,
		&charger.OrganizationID,
		&timezone,
		&version,
		&charger.CreatedAt,
		&charger.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	charger.Timezone = timezone.String
	charger.Version = version.String
	charger.CreatedAt = charger.CreatedAt.UTC()
	charger.UpdatedAt = charger.UpdatedAt.UTC()
	return &charger, nil
}

// Touch refreshes updated_at and, when non-empty, the firmware version.
func (r *ChargerRepository) Touch(ctx context.Context, id, version string) error {
	if r == nil || r.db == nil {
		return errors.New("charger repo: nil db")
	}
	if id == "" {
		return errors.New("charger repo: empty id")
	}

	query := fmt.Sprintf(`
UPDATE %s
SET updated_at = NOW(),
	version = COALESCE(NULLIF($2, ''), version)
WHERE id = $1`, r.table)

	_, err := r.db.ExecContext(ctx, query, id, version)
	return err
}
