package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	exposureevents "safetyband-cloud/internal/exposure/application/events"
	masterdata "safetyband-cloud/internal/masterdata/domain"
	"safetyband-cloud/internal/observability/metrics"
	settings "safetyband-cloud/internal/settings/domain"
)

// ErrOrganizationNotFound is returned by admin operations on unknown organizations.
var ErrOrganizationNotFound = errors.New("settings: organization not found")

// ErrWearableNotFound is returned when a wearable filter does not match any wearable.
var ErrWearableNotFound = errors.New("settings: wearable not found")

// Request is a request_type 1 message.
type Request struct {
	DeviceID     string
	Version      string
	FirstRequest bool
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Service builds wearable settings and manages configuration rows.
type Service struct {
	wearables     masterdata.WearableRepository
	organizations masterdata.OrganizationRepository
	configs       settings.ConfigurationRepository
	publisher     EventPublisher
	clock         Clock
	defaults      settings.Defaults
	logger        *log.Logger
}

// Option configures the service.
type Option func(*Service)

// WithDefaults overrides the built-in defaults for categories present in defaults.
func WithDefaults(defaults settings.Defaults) Option {
	return func(s *Service) {
		for c, cfg := range defaults {
			cfg.Category = c
			s.defaults[c] = cfg
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs the service. publisher may be nil.
func NewService(
	wearables masterdata.WearableRepository,
	organizations masterdata.OrganizationRepository,
	configs settings.ConfigurationRepository,
	publisher EventPublisher,
	clock Clock,
	opts ...Option,
) (*Service, error) {
	if wearables == nil {
		return nil, errors.New("settings service: nil wearable repository")
	}
	if organizations == nil {
		return nil, errors.New("settings service: nil organization repository")
	}
	if configs == nil {
		return nil, errors.New("settings service: nil configuration repository")
	}
	if clock == nil {
		return nil, errors.New("settings service: nil clock")
	}
	svc := &Service{
		wearables:     wearables,
		organizations: organizations,
		configs:       configs,
		publisher:     publisher,
		clock:         clock,
		defaults:      settings.DefaultConfigurations(),
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SettingsFor answers a settings request. Unknown wearables or organizations get
// settings built from the defaults. A first request triggers HAV grouping first.
func (s *Service) SettingsFor(ctx context.Context, req Request) (settings.WearableSettings, error) {
	wearable, err := s.wearables.GetByDisplayID(ctx, req.DeviceID)
	if err != nil {
		return settings.WearableSettings{}, fmt.Errorf("settings: load wearable: %w", err)
	}
	if wearable == nil {
		return s.fallback(req.DeviceID), nil
	}
	if err := s.wearables.Touch(ctx, wearable.ID, req.Version); err != nil {
		return settings.WearableSettings{}, fmt.Errorf("settings: touch wearable: %w", err)
	}

	org, err := s.organizations.Get(ctx, wearable.OrganizationID)
	if err != nil {
		return settings.WearableSettings{}, fmt.Errorf("settings: load organization: %w", err)
	}
	if org == nil {
		return s.fallback(req.DeviceID), nil
	}

	if req.FirstRequest && s.publisher != nil {
		s.logger.Printf("settings: first request for %s", wearable.DisplayID)
		evt := exposureevents.GroupingRequested{
			DisplayID:   wearable.DisplayID,
			Reason:      exposureevents.ReasonFirstRequest,
			RequestedAt: s.clock.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Printf("settings: grouping on first request: %v", err)
		}
	}

	merged, err := s.resolve(ctx, org.ID, wearable.ID)
	if err != nil {
		return settings.WearableSettings{}, err
	}
	metrics.IncSettingsResponse(false)
	return settings.Build(req.DeviceID, merged, settings.ExemptionsFor(wearable.DisplayID, org.BeaconTypes)), nil
}

// Effective returns the resolved configuration of an organization, or of one of
// its wearables when wearableDisplayID is set.
func (s *Service) Effective(ctx context.Context, organizationID, wearableDisplayID string) (settings.ConfigurationMap, error) {
	if err := s.ensureOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	wearableID, err := s.wearableInOrganization(ctx, organizationID, wearableDisplayID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, organizationID, wearableID)
}

// Upsert stores configuration rows for an organization, or for one of its
// wearables when wearableDisplayID is set.
func (s *Service) Upsert(ctx context.Context, organizationID, wearableDisplayID string, rows []settings.Configuration) ([]settings.Configuration, error) {
	for i := range rows {
		category, ok := settings.ParseCategory(string(rows[i].Category))
		if !ok {
			return nil, fmt.Errorf("%w: %q", settings.ErrInvalidCategory, rows[i].Category)
		}
		rows[i].Category = category
		if err := rows[i].Validate(); err != nil {
			return nil, err
		}
	}
	if err := s.ensureOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	wearableID, err := s.wearableInOrganization(ctx, organizationID, wearableDisplayID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	saved := make([]settings.Configuration, 0, len(rows))
	for _, row := range rows {
		row.OrganizationID = organizationID
		row.WearableID = wearableID
		row.UpdatedAt = now
		if err := s.configs.Upsert(ctx, &row); err != nil {
			return nil, fmt.Errorf("settings: upsert %s: %w", row.Category, err)
		}
		saved = append(saved, row)
	}
	return saved, nil
}

func (s *Service) resolve(ctx context.Context, organizationID, wearableID string) (settings.ConfigurationMap, error) {
	var wearableRows []settings.Configuration
	if wearableID != "" {
		rows, err := s.configs.ListForWearable(ctx, organizationID, wearableID)
		if err != nil {
			return nil, fmt.Errorf("settings: list wearable configuration: %w", err)
		}
		wearableRows = rows
	}
	orgRows, err := s.configs.ListForOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("settings: list organization configuration: %w", err)
	}
	return settings.Resolve(wearableRows, orgRows, s.defaults), nil
}

func (s *Service) fallback(deviceID string) settings.WearableSettings {
	metrics.IncSettingsResponse(true)
	return settings.Build(deviceID, settings.Resolve(nil, nil, s.defaults), nil)
}

func (s *Service) ensureOrganization(ctx context.Context, organizationID string) error {
	if strings.TrimSpace(organizationID) == "" {
		return ErrOrganizationNotFound
	}
	org, err := s.organizations.Get(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("settings: load organization: %w", err)
	}
	if org == nil {
		return ErrOrganizationNotFound
	}
	return nil
}

func (s *Service) wearableInOrganization(ctx context.Context, organizationID, displayID string) (string, error) {
	displayID = strings.TrimSpace(displayID)
	if displayID == "" {
		return "", nil
	}
	wearable, err := s.wearables.GetByDisplayID(ctx, displayID)
	if err != nil {
		return "", fmt.Errorf("settings: load wearable: %w", err)
	}
	if wearable == nil {
		return "", ErrWearableNotFound
	}
	if wearable.OrganizationID != organizationID {
		return "", settings.ErrWearableMismatch
	}
	return wearable.ID, nil
}
