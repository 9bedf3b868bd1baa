// internal/app/system/workers/scheduler.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/planhub/internal/app/system/tasks"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Scheduler runs each job on its own ticker until stopped. Runs of the same
// job never overlap; a run that fails is logged and retried on the next
// tick.
type Scheduler struct {
	jobs       []tasks.Job
	log        *zap.Logger
	runTimeout time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewScheduler creates a scheduler. Jobs with a non-positive interval are
// skipped so a zero setting can disable them. A zero runTimeout uses
// timeouts.Long at run time.
func NewScheduler(logger *zap.Logger, runTimeout time.Duration, jobs ...tasks.Job) *Scheduler {
	active := make([]tasks.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Interval > 0 && j.Run != nil {
			active = append(active, j)
		}
	}
	return &Scheduler{
		jobs:       active,
		log:        logger,
		runTimeout: runTimeout,
		stopCh:     make(chan struct{}),
	}
}

// Start begins one loop per job.
func (s *Scheduler) Start() {
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(j)
		s.log.Info("background job started",
			zap.String("job", j.Name),
			zap.Duration("interval", j.Interval))
	}
}

// Stop signals every loop to exit and waits for in-flight runs. Safe to
// call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		s.log.Info("background jobs stopped")
	})
}

// Jobs returns the names of the scheduled jobs.
func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name
	}
	return names
}

func (s *Scheduler) loop(j tasks.Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runOnce(j)
		}
	}
}

func (s *Scheduler) runOnce(j tasks.Job) {
	d := s.runTimeout
	if d <= 0 {
		d = timeouts.Long()
	}
	ctx, cancel := timeouts.WithTimeout(context.Background(), d, s.log, j.Name)
	defer cancel()

	if err := j.Run(ctx); err != nil {
		s.log.Error("background job failed", zap.String("job", j.Name), zap.Error(err))
	}
}
