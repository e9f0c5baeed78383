package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	settings "safetyband-cloud/internal/settings/domain"

	"github.com/google/uuid"
)

const defaultConfigurationsTable = "configurations"

// ConfigurationRepository is a Postgres implementation for configuration rows.
type ConfigurationRepository struct {
	db    *sql.DB
	table string
}

// NewConfigurationRepository constructs a repository with default table name.
func NewConfigurationRepository(db *sql.DB, opts ...RepositoryOption) *ConfigurationRepository {
	repo := &ConfigurationRepository{db: db, table: defaultConfigurationsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*ConfigurationRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *ConfigurationRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// ListForOrganization returns organization-wide rows.
func (r *ConfigurationRepository) ListForOrganization(ctx context.Context, organizationID string) ([]settings.Configuration, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("configuration repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, organization_id, wearable_id, category, enabled, icon_alert, vibration_alert, sound_alert, threshold, updated_at
FROM %s
WHERE organization_id = $1 AND wearable_id IS NULL
ORDER BY category`, r.table)
	return r.list(ctx, query, organizationID)
}

// ListForWearable returns the rows attached to one wearable.
func (r *ConfigurationRepository) ListForWearable(ctx context.Context, organizationID, wearableID string) ([]settings.Configuration, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("configuration repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, organization_id, wearable_id, category, enabled, icon_alert, vibration_alert, sound_alert, threshold, updated_at
FROM %s
WHERE organization_id = $1 AND wearable_id = $2
ORDER BY category`, r.table)
	return r.list(ctx, query, organizationID, wearableID)
}

// Upsert updates the row matching organization, wearable and category, or inserts one.
func (r *ConfigurationRepository) Upsert(ctx context.Context, cfg *settings.Configuration) error {
	if r == nil || r.db == nil {
		return errors.New("configuration repo: nil db")
	}
	if cfg == nil || cfg.OrganizationID == "" {
		return errors.New("configuration repo: invalid configuration")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = time.Now().UTC()
	}

	update := fmt.Sprintf(`
UPDATE %s
SET enabled = $4, icon_alert = $5, vibration_alert = $6, sound_alert = $7, threshold = $8, updated_at = $9
WHERE organization_id = $1 AND wearable_id IS NOT DISTINCT FROM $2 AND category = $3
RETURNING id`, r.table)

	var id string
	err := r.db.QueryRowContext(ctx, update,
		cfg.OrganizationID, nullString(cfg.WearableID), string(cfg.Category),
		cfg.Enabled, cfg.IconAlert, cfg.VibrationAlert, cfg.SoundAlert, cfg.Threshold, cfg.UpdatedAt,
	).Scan(&id)
	if err == nil {
		cfg.ID = id
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	insert := fmt.Sprintf(`
INSERT INTO %s (
	id, organization_id, wearable_id, category, enabled, icon_alert, vibration_alert, sound_alert, threshold, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)`, r.table)
	_, err = r.db.ExecContext(ctx, insert,
		cfg.ID, cfg.OrganizationID, nullString(cfg.WearableID), string(cfg.Category),
		cfg.Enabled, cfg.IconAlert, cfg.VibrationAlert, cfg.SoundAlert, cfg.Threshold, cfg.UpdatedAt,
	)
	return err
}

func (r *ConfigurationRepository) list(ctx context.Context, query string, args ...any) ([]settings.Configuration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settings.Configuration
	for rows.Next() {
		var (
			cfg        settings.Configuration
			wearableID sql.NullString
			category   string
		)
		if err := rows.Scan(
			&cfg.ID,
			&cfg.OrganizationID,
			&wearableID,
			&category,
			&cfg.Enabled,
			&cfg.IconAlert,
			&cfg.VibrationAlert,
			&cfg.SoundAlert,
			&cfg.Threshold,
			&cfg.UpdatedAt,
		); err != nil {
			return nil, err
		}
		parsed, ok := settings.ParseCategory(category)
		if !ok {
			continue
		}
		cfg.Category = parsed
		cfg.WearableID = wearableID.String
		cfg.UpdatedAt = cfg.UpdatedAt.UTC()
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
