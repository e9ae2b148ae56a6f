package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// EventPruner deletes audit events older than a cutoff.
type EventPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron      *cron.Cron
	events    EventPruner
	retention time.Duration
	now       func() time.Time
}

// New creates a scheduler that prunes audit events older than retention on
// the given cron spec (standard five fields or a descriptor such as @daily).
func New(events EventPruner, spec string, retention time.Duration) (*Scheduler, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("audit retention must be positive, got %s", retention)
	}

	s := &Scheduler{
		cron:      cron.New(),
		events:    events,
		retention: retention,
		now:       time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.PruneAudit); err != nil {
		return nil, fmt.Errorf("invalid audit prune schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	log.Info().Msg("Starting background scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler.")
}

// PruneAudit deletes audit events that fell out of the retention window.
func (s *Scheduler) PruneAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := s.now().Add(-s.retention)
	n, err := s.events.PruneBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Time("cutoff", cutoff).Msg("Scheduler: failed to prune audit events")
		return
	}
	log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("Scheduler: pruned audit events")
}
