package services

import (
	"time"

	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/scheduler"
)

// Sweeper drops idle sessions.
type Sweeper interface {
	Sweep(now time.Time) int
}

const sessionSweepJob = "session-sweep"

// SessionJanitor periodically expires idle in-memory sessions.
type SessionJanitor struct {
	sweeper   Sweeper
	scheduler *scheduler.Scheduler
	interval  time.Duration
}

func NewSessionJanitor(sweeper Sweeper, interval time.Duration) *SessionJanitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SessionJanitor{sweeper: sweeper, scheduler: scheduler.New(), interval: interval}
}

func (j *SessionJanitor) Start() error {
	if err := j.scheduler.Every(sessionSweepJob, j.interval, j.SweepNow); err != nil {
		return err
	}
	j.scheduler.Start()
	logger.Info("session janitor started", "interval", j.interval.String())
	return nil
}

func (j *SessionJanitor) Stop() {
	j.scheduler.Stop()
}

// SweepNow runs one sweep immediately.
func (j *SessionJanitor) SweepNow() error {
	if n := j.sweeper.Sweep(time.Now()); n > 0 {
		logger.Info("expired idle sessions", "count", n)
	}
	return nil
}
