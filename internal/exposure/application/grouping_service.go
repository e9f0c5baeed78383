package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"safetyband-cloud/internal/exposure/application/events"
	exposure "safetyband-cloud/internal/exposure/domain"
	masterdata "safetyband-cloud/internal/masterdata/domain"
	"safetyband-cloud/internal/observability/metrics"

	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a crashed grouping run can block a wearable.
const DefaultLockTTL = 2 * time.Minute

const lockKeyPrefix = "safetyband:hav-grouping:"

// GroupResult summarises one grouping run.
type GroupResult struct {
	WearableID string
	DisplayID  string
	Consumed   int
	Written    int
	Totals     [exposure.SeverityCount]int
}

// GroupingService turns pending HAV samples into reallocated exposure events.
type GroupingService struct {
	wearables     masterdata.WearableRepository
	organizations masterdata.OrganizationRepository
	pending       exposure.PendingSampleRepository
	writer        exposure.ResultWriter
	locker        Locker
	lockTTL       time.Duration
	logger        *log.Logger
}

// Option configures the service.
type Option func(*GroupingService)

// WithLocker replaces the in-process locker, e.g. with a Redis-backed one.
func WithLocker(locker Locker) Option {
	return func(s *GroupingService) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *GroupingService) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *GroupingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewGroupingService constructs the service.
func NewGroupingService(
	wearables masterdata.WearableRepository,
	organizations masterdata.OrganizationRepository,
	pending exposure.PendingSampleRepository,
	writer exposure.ResultWriter,
	opts ...Option,
) (*GroupingService, error) {
	if wearables == nil {
		return nil, errors.New("grouping service: nil wearable repository")
	}
	if organizations == nil {
		return nil, errors.New("grouping service: nil organization repository")
	}
	if pending == nil {
		return nil, errors.New("grouping service: nil pending sample repository")
	}
	if writer == nil {
		return nil, errors.New("grouping service: nil result writer")
	}
	svc := &GroupingService{
		wearables:     wearables,
		organizations: organizations,
		pending:       pending,
		writer:        writer,
		locker:        NewLocalLocker(),
		lockTTL:       DefaultLockTTL,
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// GroupWearable groups the pending samples of the wearable with the given display id.
func (s *GroupingService) GroupWearable(ctx context.Context, displayID string) (GroupResult, error) {
	wearable, err := s.wearables.GetByDisplayID(ctx, displayID)
	if err != nil {
		return GroupResult{}, fmt.Errorf("grouping: load wearable: %w", err)
	}
	if wearable == nil {
		return GroupResult{}, exposure.ErrWearableNotFound
	}
	org, err := s.organizations.Get(ctx, wearable.OrganizationID)
	if err != nil {
		return GroupResult{}, fmt.Errorf("grouping: load organization: %w", err)
	}
	if org == nil {
		return GroupResult{}, exposure.ErrOrganizationNotFound
	}

	result, err := s.group(ctx, wearable.ID, org.ID)
	result.DisplayID = wearable.DisplayID
	return result, err
}

// SweepPending groups every wearable that still has pending samples. Wearables
// locked by a concurrent run are skipped; other failures are collected.
func (s *GroupingService) SweepPending(ctx context.Context) ([]GroupResult, error) {
	ids, err := s.pending.ListWearablesWithPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("grouping: list wearables: %w", err)
	}

	var (
		results []GroupResult
		errs    []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := s.group(ctx, id, "")
		if errors.Is(err, exposure.ErrGroupingInProgress) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("wearable %s: %w", id, err))
			continue
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

// HandleGroupingRequested runs a grouping for the requested wearable. A run that
// is already in progress for the wearable is not an error.
func (s *GroupingService) HandleGroupingRequested(ctx context.Context, evt events.GroupingRequested) error {
	result, err := s.GroupWearable(ctx, evt.DisplayID)
	if errors.Is(err, exposure.ErrGroupingInProgress) {
		s.logger.Printf("grouping: skipped %s (%s): already in progress", evt.DisplayID, evt.Reason)
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Printf("grouping: wearable=%s reason=%s consumed=%d written=%d",
		evt.DisplayID, evt.Reason, result.Consumed, result.Written)
	return nil
}

func (s *GroupingService) group(ctx context.Context, wearableID, organizationID string) (result GroupResult, err error) {
	start := time.Now()
	result.WearableID = wearableID
	defer func() {
		outcome := metrics.ResultSuccess
		switch {
		case errors.Is(err, exposure.ErrGroupingInProgress):
			outcome = metrics.ResultSkipped
		case err != nil:
			outcome = metrics.ResultError
		}
		metrics.ObserveGrouping(outcome, time.Since(start))
	}()

	release, acquired, err := s.locker.Acquire(ctx, lockKeyPrefix+wearableID, s.lockTTL)
	if err != nil {
		return result, fmt.Errorf("grouping: acquire lock: %w", err)
	}
	if !acquired {
		return result, exposure.ErrGroupingInProgress
	}
	defer release()

	pending, err := s.pending.ListPending(ctx, organizationID, wearableID)
	if err != nil {
		return result, fmt.Errorf("grouping: list pending: %w", err)
	}
	if len(pending) == 0 {
		return result, nil
	}
	if organizationID == "" {
		organizationID = pending[0].OrganizationID
	}

	samples := make([]exposure.Sample, len(pending))
	consumed := make([]string, len(pending))
	for i, p := range pending {
		samples[i] = p.Sample()
		consumed[i] = p.ID
	}

	records := exposure.Process(samples)
	grouped := make([]exposure.Event, len(records))
	for i, rec := range records {
		grouped[i] = exposure.Event{
			ID:             uuid.NewString(),
			WearableID:     wearableID,
			OrganizationID: organizationID,
			UserID:         rec.SubjectID,
			Severity:       rec.Severity,
			Timestamp:      rec.Timestamp,
			Duration:       rec.Duration,
		}
	}

	if err := s.writer.SaveProcessed(ctx, grouped, consumed); err != nil {
		return result, fmt.Errorf("grouping: save processed: %w", err)
	}

	result.Consumed = len(consumed)
	result.Written = len(grouped)
	result.Totals = exposure.TotalsBySeverity(records)
	for _, sev := range exposure.Severities {
		count := 0
		for _, rec := range records {
			if rec.Severity == sev {
				count++
			}
		}
		metrics.AddGroupedRecords(sev.String(), count)
	}
	return result, nil
}
