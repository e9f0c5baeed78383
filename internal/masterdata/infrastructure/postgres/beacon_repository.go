package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "safetyband-cloud/internal/masterdata/domain"
)

const defaultBeaconsTable = "beacons"

// BeaconRepository is a Postgres implementation for beacons.
type BeaconRepository struct {
	db    DBTX
	table string
}

// NewBeaconRepository constructs a repository.
func NewBeaconRepository(db DBTX) *BeaconRepository {
	return &BeaconRepository{db: db, table: defaultBeaconsTable}
}

// GetByDisplayID loads a beacon by its minor id.
func (r *BeaconRepository) GetByDisplayID(ctx context.Context, displayID string) (*masterdata.Beacon, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("beacon repo: nil db")
	}
	if displayID == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`
SELECT id, display_id, organization_id, beacon_type_id, battery, updated_at
FROM %s
WHERE display_id = $1
LIMIT 1`, r.table)

	var (
		beacon  masterdata.Beacon
		typeID  sql.NullString
		battery sql.NullInt64
	)
	if err := r.db.QueryRowContext(ctx, query, displayID).Scan(
		&beacon.ID,
		&beacon.DisplayID,
		&beacon.OrganizationID,
		&typeID,
		&battery,
		&beacon.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	beacon.BeaconTypeID = typeID.String
	beacon.Battery = int(battery.Int64)
	beacon.UpdatedAt = beacon.UpdatedAt.UTC()
	return &beacon, nil
}

// UpdateBattery stores the reported battery level. Zero only refreshes updated_at.
func (r *BeaconRepository) UpdateBattery(ctx context.Context, id string, battery int) error {
	if r == nil || r.db == nil {
		return errors.New("beacon repo: nil db")
	}
	if id == "" {
		return errors.New("beacon repo: empty id")
	}

	if battery <= 0 {
		query := fmt.Sprintf(`UPDATE %s SET updated_at = NOW() WHERE id = $1`, r.table)
		_, err := r.db.ExecContext(ctx, query, id)
		return err
	}

	query := fmt.Sprintf(`UPDATE %s SET battery = $2, updated_at = NOW() WHERE id = $1`, r.table)
	_, err := r.db.ExecContext(ctx, query, id, battery)
	return err
}
