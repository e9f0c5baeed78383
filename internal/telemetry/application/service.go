package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	exposure "safetyband-cloud/internal/exposure/domain"
	masterdata "safetyband-cloud/internal/masterdata/domain"
	"safetyband-cloud/internal/telemetry/application/events"
	telemetry "safetyband-cloud/internal/telemetry/domain"

	"github.com/google/uuid"
)

// DefaultMinHAVDuration is the shortest HAV reading, in seconds, that is stored.
const DefaultMinHAVDuration = 10

// Outcome describes what happened to a received event.
type Outcome string

const (
	OutcomeStored    Outcome = "stored"
	OutcomePending   Outcome = "pending"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDropped   Outcome = "dropped"
)

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// ReceiveService stores wearable events.
type ReceiveService struct {
	wearables masterdata.WearableRepository
	chargers  masterdata.ChargerRepository
	beacons   masterdata.BeaconRepository
	events    telemetry.EventRepository
	pending   exposure.PendingSampleRepository
	publisher EventPublisher
	clock     Clock
	logger    *log.Logger

	minHAVDuration int
}

// Option configures the service.
type Option func(*ReceiveService)

// WithMinHAVDuration overrides the minimum stored HAV duration.
func WithMinHAVDuration(seconds int) Option {
	return func(s *ReceiveService) {
		if seconds >= 0 {
			s.minHAVDuration = seconds
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *ReceiveService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewReceiveService constructs the service. publisher may be nil.
func NewReceiveService(
	wearables masterdata.WearableRepository,
	chargers masterdata.ChargerRepository,
	beacons masterdata.BeaconRepository,
	eventRepo telemetry.EventRepository,
	pending exposure.PendingSampleRepository,
	publisher EventPublisher,
	clock Clock,
	opts ...Option,
) (*ReceiveService, error) {
	if wearables == nil {
		return nil, errors.New("receive service: nil wearable repository")
	}
	if chargers == nil {
		return nil, errors.New("receive service: nil charger repository")
	}
	if beacons == nil {
		return nil, errors.New("receive service: nil beacon repository")
	}
	if eventRepo == nil {
		return nil, errors.New("receive service: nil event repository")
	}
	if pending == nil {
		return nil, errors.New("receive service: nil pending sample repository")
	}
	if clock == nil {
		return nil, errors.New("receive service: nil clock")
	}
	svc := &ReceiveService{
		wearables:      wearables,
		chargers:       chargers,
		beacons:        beacons,
		events:         eventRepo,
		pending:        pending,
		publisher:      publisher,
		clock:          clock,
		logger:         log.Default(),
		minHAVDuration: DefaultMinHAVDuration,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Receive normalizes and stores one request_type 0 message.
func (s *ReceiveService) Receive(ctx context.Context, msg telemetry.DeviceMessage) (Outcome, error) {
	if msg.DeviceID == "" {
		return OutcomeDropped, ErrMissingDeviceID
	}
	event := telemetry.Normalize(msg, s.clock.Now())

	wearable, err := s.resolveWearable(ctx, msg)
	if err != nil {
		return OutcomeDropped, err
	}
	if wearable == nil {
		return OutcomeDropped, nil
	}
	if err := s.wearables.Touch(ctx, wearable.ID, event.Version); err != nil {
		return OutcomeDropped, fmt.Errorf("receive: touch wearable: %w", err)
	}

	var beacon *masterdata.Beacon
	if event.IsBeacon {
		beacon, err = s.beacons.GetByDisplayID(ctx, event.BeaconID)
		if err != nil {
			return OutcomeDropped, fmt.Errorf("receive: load beacon: %w", err)
		}
		if beacon == nil {
			s.logger.Printf("receive: beacon not found: wearable=%s beacon=%q", event.DisplayID, event.BeaconID)
			return OutcomeDropped, nil
		}
		if err := s.beacons.UpdateBattery(ctx, beacon.ID, event.BeaconBattery); err != nil {
			return OutcomeDropped, fmt.Errorf("receive: update beacon: %w", err)
		}
	}

	var outcome Outcome
	if event.Type == telemetry.EventHandArmVibration {
		outcome, err = s.storeHAV(ctx, wearable, event)
	} else {
		outcome, err = s.storeEvent(ctx, wearable, beacon, event)
	}
	if err != nil {
		return OutcomeDropped, err
	}

	if s.publisher != nil && (outcome == OutcomeStored || outcome == OutcomePending) {
		evt := events.TelemetryReceived{
			EventID:    uuid.NewString(),
			WearableID: wearable.ID,
			DisplayID:  wearable.DisplayID,
			EventType:  string(event.Type),
			Duration:   event.Duration,
			Pending:    outcome == OutcomePending,
			OccurredAt: event.OccurredAt,
		}
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Printf("receive: publish telemetry received: %v", err)
		}
	}
	return outcome, nil
}

// resolveWearable loads the wearable, registering it under the charger's
// organization when it is unknown. A nil result means the message is dropped.
func (s *ReceiveService) resolveWearable(ctx context.Context, msg telemetry.DeviceMessage) (*masterdata.Wearable, error) {
	wearable, err := s.wearables.GetByDisplayID(ctx, msg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("receive: load wearable: %w", err)
	}
	if wearable != nil {
		return wearable, nil
	}

	chargerID := msg.ChargerDisplayID()
	if chargerID == "" {
		s.logger.Printf("receive: unknown wearable without charger: %s", msg.DeviceID)
		return nil, nil
	}
	charger, err := s.chargers.GetByDisplayID(ctx, chargerID)
	if err != nil {
		return nil, fmt.Errorf("receive: load charger: %w", err)
	}
	if charger == nil {
		s.logger.Printf("receive: wearable/charging station not found: wearable=%s charger=%s", msg.DeviceID, chargerID)
		return nil, nil
	}

	wearable = &masterdata.Wearable{
		DisplayID:      msg.DeviceID,
		OrganizationID: charger.OrganizationID,
	}
	if err := s.wearables.Create(ctx, wearable); err != nil {
		return nil, fmt.Errorf("receive: register wearable: %w", err)
	}
	s.logger.Printf("receive: registered wearable %s under organization %s", wearable.DisplayID, wearable.OrganizationID)
	return wearable, nil
}

func (s *ReceiveService) storeHAV(ctx context.Context, wearable *masterdata.Wearable, event telemetry.WearableEvent) (Outcome, error) {
	duplicate, err := s.pending.Exists(ctx, wearable.ID, event.OccurredAt, event.Duration)
	if err != nil {
		return OutcomeDropped, fmt.Errorf("receive: duplicate check: %w", err)
	}
	if duplicate {
		return OutcomeDuplicate, nil
	}
	if event.Duration <= s.minHAVDuration {
		return OutcomeIgnored, nil
	}

	severity := exposure.SeverityLow
	if event.IMULevel != nil {
		severity = *event.IMULevel
	}
	sample := &exposure.PendingSample{
		ID:             uuid.NewString(),
		WearableID:     wearable.ID,
		OrganizationID: wearable.OrganizationID,
		UserID:         wearable.UserID,
		Severity:       severity,
		Timestamp:      event.OccurredAt,
		Duration:       event.Duration,
		Status:         exposure.StatusPending,
	}
	if err := s.pending.Insert(ctx, sample); err != nil {
		return OutcomeDropped, fmt.Errorf("receive: insert pending sample: %w", err)
	}
	return OutcomePending, nil
}

func (s *ReceiveService) storeEvent(ctx context.Context, wearable *masterdata.Wearable, beacon *masterdata.Beacon, event telemetry.WearableEvent) (Outcome, error) {
	eventType := event.Type
	if !event.IsBeacon && eventType != telemetry.EventLoudNoise {
		eventType = telemetry.EventLoudNoise
	}

	duplicate, err := s.events.Exists(ctx, wearable.ID, eventType, event.OccurredAt, event.Duration)
	if err != nil {
		return OutcomeDropped, fmt.Errorf("receive: duplicate check: %w", err)
	}
	if duplicate {
		return OutcomeDuplicate, nil
	}

	stored := &telemetry.StoredEvent{
		ID:             uuid.NewString(),
		Timestamp:      event.OccurredAt,
		Type:           eventType,
		WearableID:     wearable.ID,
		OrganizationID: wearable.OrganizationID,
		UserID:         wearable.UserID,
		Duration:       event.Duration,
	}
	if beacon != nil {
		stored.BeaconID = beacon.ID
	}
	if err := s.events.Insert(ctx, stored); err != nil {
		return OutcomeDropped, fmt.Errorf("receive: insert event: %w", err)
	}
	s.logger.Printf("receive: adding event: wearable=%s duration=%d at=%s type=%s",
		wearable.DisplayID, event.Duration, event.OccurredAt.Format("2006-01-02 15:04:05"), eventType)
	return OutcomeStored, nil
}
