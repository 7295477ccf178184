package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
)

// Scheduler runs backup jobs on a cron spec with a seconds field.
type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
	}
}

// AddJob registers a job; the job reports its own failures, so errors
// are not propagated between runs.
func (s *Scheduler) AddJob(spec string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		_ = job(context.Background())
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
