package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/flashcards/internal/consistency"
	"github.com/example/flashcards/internal/logger"
)

// Repairer restores the environment edges from the relational store
type Repairer interface {
	Repair(ctx context.Context) (consistency.Report, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	repairer  Repairer
	interval  time.Duration
	log       *logger.Logger
}

// New creates a new scheduler instance. A zero interval disables reconciliation.
func New(repairer Repairer, interval time.Duration, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		repairer:  repairer,
		interval:  interval,
		log:       log,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	if s.interval > 0 {
		if _, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.reconcile); err != nil {
			return err
		}
		s.log.Info("Scheduled edge reconciliation", "interval", s.interval.String())
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// reconcile runs one repair, bounded by the job interval
func (s *Scheduler) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	if _, err := s.RunNow(ctx); err != nil {
		s.log.Error("Edge reconciliation failed", "error", err)
	}
}

// RunNow forces a reconciliation outside the schedule
func (s *Scheduler) RunNow(ctx context.Context) (consistency.Report, error) {
	started := time.Now()
	report, err := s.repairer.Repair(ctx)
	if err != nil {
		return report, err
	}
	s.log.Info("Edge reconciliation finished",
		"clean", report.Clean(),
		"duration", time.Since(started).String(),
	)
	return report, nil
}
