package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	exposure "safetyband-cloud/internal/exposure/domain"
)

// SampleRepository is an in-memory store for pending HAV samples and grouped events.
// It implements PendingSampleRepository, ResultWriter and EventReader.
type SampleRepository struct {
	mu      sync.RWMutex
	samples map[string]*exposure.PendingSample
	order   []string
	events  []exposure.Event
}

// NewSampleRepository constructs a repository.
func NewSampleRepository() *SampleRepository {
	return &SampleRepository{
		samples: make(map[string]*exposure.PendingSample),
	}
}

// Exists reports whether a pending or done sample matches wearable, timestamp and duration.
func (r *SampleRepository) Exists(ctx context.Context, wearableID string, ts time.Time, duration int) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sample := range r.samples {
		if sample.WearableID == wearableID && sample.Duration == duration && sample.Timestamp.Equal(ts) {
			return true, nil
		}
	}
	return false, nil
}

// Insert stores a sample.
func (r *SampleRepository) Insert(ctx context.Context, sample *exposure.PendingSample) error {
	_ = ctx
	if sample == nil {
		return errors.New("memory sample repo: nil sample")
	}
	if sample.ID == "" {
		return errors.New("memory sample repo: empty id")
	}
	copied := *sample
	copied.Timestamp = copied.Timestamp.UTC()
	if copied.Status == "" {
		copied.Status = exposure.StatusPending
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.samples[copied.ID]; !ok {
		r.order = append(r.order, copied.ID)
	}
	r.samples[copied.ID] = &copied
	return nil
}

// ListPending returns pending samples for a wearable in insertion order.
func (r *SampleRepository) ListPending(ctx context.Context, organizationID, wearableID string) ([]exposure.PendingSample, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []exposure.PendingSample
	for _, id := range r.order {
		sample := r.samples[id]
		if sample.Status != exposure.StatusPending || sample.WearableID != wearableID {
			continue
		}
		if organizationID != "" && sample.OrganizationID != organizationID {
			continue
		}
		result = append(result, *sample)
	}
	return result, nil
}

// ListWearablesWithPending returns wearable ids that have pending samples.
func (r *SampleRepository) ListWearablesWithPending(ctx context.Context) ([]string, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var result []string
	for _, id := range r.order {
		sample := r.samples[id]
		if sample.Status != exposure.StatusPending {
			continue
		}
		if _, ok := seen[sample.WearableID]; ok {
			continue
		}
		seen[sample.WearableID] = struct{}{}
		result = append(result, sample.WearableID)
	}
	return result, nil
}

// SaveProcessed appends events and marks the consumed samples done.
func (r *SampleRepository) SaveProcessed(ctx context.Context, events []exposure.Event, consumedIDs []string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range consumedIDs {
		if _, ok := r.samples[id]; !ok {
			return errors.New("memory sample repo: unknown sample " + id)
		}
	}
	r.events = append(r.events, events...)
	for _, id := range consumedIDs {
		r.samples[id].Status = exposure.StatusDone
	}
	return nil
}

// ListEvents returns grouped events of a wearable in [from, to), ordered by timestamp.
func (r *SampleRepository) ListEvents(ctx context.Context, wearableID string, from, to time.Time) ([]exposure.Event, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []exposure.Event
	for _, evt := range r.events {
		if evt.WearableID != wearableID {
			continue
		}
		if !from.IsZero() && evt.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !evt.Timestamp.Before(to) {
			continue
		}
		result = append(result, evt)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}
