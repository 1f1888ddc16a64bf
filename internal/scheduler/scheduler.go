// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"pdf-chat-backend/internal/logger"
)

// Scheduler wraps a gocron scheduler with unique job tags.
type Scheduler struct {
	scheduler *gocron.Scheduler
}

func New() *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Scheduler{scheduler: s}
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Every runs job at a fixed interval. Job errors are logged, never fatal.
func (s *Scheduler) Every(tag string, interval time.Duration, job func() error) error {
	_, err := s.scheduler.Every(interval).Tag(tag).Do(func() {
		if err := job(); err != nil {
			logger.Error("scheduled job failed", "job", tag, "error", err)
		}
	})
	return err
}

// Remove unschedules the job with tag.
func (s *Scheduler) Remove(tag string) error {
	return s.scheduler.RemoveByTag(tag)
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}
