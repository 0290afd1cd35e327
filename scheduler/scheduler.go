// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const jobTimeout = 5 * time.Minute

// Job is one named task. Run gets a context bounded by jobTimeout.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	base context.Context
}

// cronLogger routes robfig/cron's own messages into zerolog.
type cronLogger struct {
	z zerolog.Logger
}

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.z.Debug().Fields(kv).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.z.Error().Err(err).Fields(kv).Msg(msg)
}

// New builds a scheduler whose job contexts derive from ctx. Overlapping runs
// of the same job are skipped and panics are recovered.
func New(ctx context.Context) *Scheduler {
	logger := cronLogger{z: log.With().Str("component", "scheduler").Logger()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		base: ctx,
	}
}

// Add registers j. An invalid spec is an error.
func (s *Scheduler) Add(j Job) error {
	_, err := s.cron.AddFunc(j.Spec, func() { s.run(j) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", j.Name, err)
	}
	log.Info().Str("job", j.Name).Str("spec", j.Spec).Msg("job scheduled")
	return nil
}

func (s *Scheduler) run(j Job) {
	ctx, cancel := context.WithTimeout(s.base, jobTimeout)
	defer cancel()

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		log.Error().Err(err).Str("job", j.Name).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	log.Debug().Str("job", j.Name).Dur("took", time.Since(start)).Msg("job finished")
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs, or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Msg("scheduler stop timed out with jobs still running")
	}
}
