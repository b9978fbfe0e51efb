// Package scheduler provides the engine's periodic task subsystem on top of
// robfig/cron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/gogine"
)

// Name is the name the scheduler registers under
const Name = "scheduler"

// Scheduler errors
var (
	ErrAlreadyStarted  = errors.New("scheduler already started")
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrShutdownTimeout = errors.New("scheduler shutdown timed out")
)

// Job is a named task run on a cron schedule
type Job struct {
	Name     string
	Schedule string
	Run      func()
}

// Scheduler runs a heartbeat job plus any jobs added before startup
type Scheduler struct {
	logger    gogine.Logger
	heartbeat string
	parser    cron.Parser

	mu      sync.Mutex
	cron    *cron.Cron
	jobs    []Job
	entries map[string]cron.EntryID
	started bool

	ticks atomic.Int64
}

// New creates a scheduler whose heartbeat fires on the heartbeat schedule,
// for example "@every 1s".
func New(heartbeat string, logger gogine.Logger) *Scheduler {
	return &Scheduler{
		logger:    logger,
		heartbeat: heartbeat,
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		entries:   make(map[string]cron.EntryID),
	}
}

// AddJob queues a job for the next Startup. The schedule is validated now.
func (s *Scheduler) AddJob(job Job) error {
	if _, err := s.parser.Parse(job.Schedule); err != nil {
		return fmt.Errorf("%w '%s': %w", ErrInvalidSchedule, job.Schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) Startup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	c := cron.New(cron.WithParser(s.parser), cron.WithChain(cron.Recover(cronLogger{s.logger})))

	jobs := append([]Job{{Name: "heartbeat", Schedule: s.heartbeat, Run: s.beat}}, s.jobs...)
	entries := make(map[string]cron.EntryID, len(jobs))
	for _, job := range jobs {
		id, err := c.AddFunc(job.Schedule, job.Run)
		if err != nil {
			return fmt.Errorf("%w '%s' for job %s: %w", ErrInvalidSchedule, job.Schedule, job.Name, err)
		}
		entries[job.Name] = id
	}

	s.logger.Info("Starting scheduler", "jobs", len(jobs), "heartbeat", s.heartbeat)
	c.Start()

	s.cron = c
	s.entries = entries
	s.started = true
	return nil
}

// Shutdown stops the cron loop and waits for running jobs or ctx
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info("Stopping scheduler")
	cronCtx := s.cron.Stop()
	s.started = false

	select {
	case <-cronCtx.Done():
		s.logger.Info("Scheduler stopped gracefully", "ticks", s.ticks.Load())
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

// Ticks returns how many times the heartbeat fired
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

// Running reports whether the cron loop is active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Entries returns the cron entry IDs by job name for the current run
func (s *Scheduler) Entries() map[string]cron.EntryID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]cron.EntryID, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

func (s *Scheduler) beat() {
	n := s.ticks.Add(1)
	s.logger.Debug("Scheduler heartbeat", "tick", n)
}

// cronLogger adapts the engine logger to cron.Logger
type cronLogger struct {
	logger gogine.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
