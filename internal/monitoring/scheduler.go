package monitoring

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/isdelr/shelf-api/internal/database"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const maintenanceTimeout = time.Minute

// Scheduler runs store housekeeping on a cron schedule.
type Scheduler struct {
	store database.Maintainer
	cron  *cron.Cron
	runs  atomic.Int64
}

// NewScheduler creates a scheduler that calls store.Maintain according to
// spec, a standard cron expression or descriptor such as "@hourly".
func NewScheduler(store database.Maintainer, spec string) (*Scheduler, error) {
	s := &Scheduler{store: store, cron: cron.New()}
	if _, err := s.cron.AddFunc(spec, s.runMaintenance); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run starts the scheduler in the background.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting store maintenance scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped store maintenance scheduler.")
}

// Runs reports how many maintenance passes have completed.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

func (s *Scheduler) runMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	start := time.Now()
	if err := s.store.Maintain(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduler: store maintenance failed")
		return
	}
	s.runs.Add(1)
	log.Info().Dur("took", time.Since(start)).Msg("Scheduler: store maintenance complete")
}
