package application

import (
	"context"
	"errors"
	"log"
	"time"
)

// Sweeper periodically groups every wearable with pending samples.
type Sweeper struct {
	grouping *GroupingService
	interval time.Duration
	logger   *log.Logger
}

// NewSweeper constructs a sweeper. A non-positive interval disables it.
func NewSweeper(grouping *GroupingService, interval time.Duration, logger *log.Logger) (*Sweeper, error) {
	if grouping == nil {
		return nil, errors.New("sweeper: nil grouping service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{grouping: grouping, interval: interval, logger: logger}, nil
}

// Enabled reports whether Run does anything.
func (s *Sweeper) Enabled() bool {
	return s != nil && s.interval > 0
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	results, err := s.grouping.SweepPending(ctx)
	if err != nil && ctx.Err() == nil {
		s.logger.Printf("sweeper: %v", err)
	}
	written := 0
	for _, result := range results {
		written += result.Written
	}
	if len(results) > 0 {
		s.logger.Printf("sweeper: grouped %d wearables, wrote %d events", len(results), written)
	}
}
