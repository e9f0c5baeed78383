package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "safetyband-cloud/internal/masterdata/domain"
)

const (
	defaultOrganizationsTable = "organizations"
	defaultBeaconTypesTable   = "beacon_types"
	defaultAllowListTable     = "beacon_type_allow_list"
)

// OrganizationRepository is a Postgres implementation for organizations.
type OrganizationRepository struct {
	db             DBTX
	table          string
	beaconTypes    string
	allowList      string
	wearablesTable string
}

// NewOrganizationRepository constructs a repository.
func NewOrganizationRepository(db DBTX) *OrganizationRepository {
	return &OrganizationRepository{
		db:             db,
		table:          defaultOrganizationsTable,
		beaconTypes:    defaultBeaconTypesTable,
		allowList:      defaultAllowListTable,
		wearablesTable: defaultWearablesTable,
	}
}

// Get loads an organization with its beacon types and their allow-lists.
func (r *OrganizationRepository) Get(ctx context.Context, id string) (*masterdata.Organization, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("organization repo: nil db")
	}
	if id == "" {
		return nil, errors.New("organization repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, name, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var org masterdata.Organization
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	org.CreatedAt = org.CreatedAt.UTC()
	org.UpdatedAt = org.UpdatedAt.UTC()

	types, err := r.listBeaconTypes(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("organization repo: beacon types: %w", err)
	}
	org.BeaconTypes = types
	return &org, nil
}

func (r *OrganizationRepository) listBeaconTypes(ctx context.Context, organizationID string) ([]masterdata.BeaconType, error) {
	query := fmt.Sprintf(`
SELECT bt.id, bt.descriptor, w.display_id
FROM %s bt
LEFT JOIN %s al ON al.beacon_type_id = bt.id
LEFT JOIN %s w ON w.id = al.wearable_id
WHERE bt.organization_id = $1
ORDER BY bt.id ASC, w.display_id ASC`, r.beaconTypes, r.allowList, r.wearablesTable)

	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.BeaconType
	for rows.Next() {
		var (
			typeID     string
			descriptor string
			displayID  sql.NullString
		)
		if err := rows.Scan(&typeID, &descriptor, &displayID); err != nil {
			return nil, err
		}
		if len(result) == 0 || result[len(result)-1].ID != typeID {
			result = append(result, masterdata.BeaconType{
				ID:             typeID,
				OrganizationID: organizationID,
				Descriptor:     descriptor,
			})
		}
		if displayID.Valid && displayID.String != "" {
			last := &result[len(result)-1]
			last.AllowList = append(last.AllowList, displayID.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
