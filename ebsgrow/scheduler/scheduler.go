// Package scheduler runs the workflow periodically on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mulgadc/ebsgrow/ebsgrow/workflow"
	"github.com/robfig/cron"
)

// cronParser uses the 6-field cron format (second, minute, hour, day of
// month, month, day of week) and accepts descriptors such as "@daily".
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Runner executes one workflow run
type Runner interface {
	Run(ctx context.Context, params workflow.Params) (*workflow.Report, error)
}

// ParseSchedule validates a cron spec
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// Scheduler triggers runs with fixed params. A tick that fires while the
// previous run is still going is skipped, so runs never overlap.
type Scheduler struct {
	Spec   string
	Params workflow.Params
	Runner Runner

	cron    *cron.Cron
	running sync.Mutex
	ctx     context.Context
}

func New(spec string, params workflow.Params, runner Runner) *Scheduler {
	return &Scheduler{Spec: spec, Params: params, Runner: runner}
}

// Start parses the spec and starts the cron loop. Runs use ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	schedule, err := ParseSchedule(s.Spec)
	if err != nil {
		return err
	}

	s.ctx = ctx
	s.cron = cron.New()
	s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.Tick(s.ctx)
	}))
	s.cron.Start()

	slog.Info("Schedule started", "spec", s.Spec, "next", schedule.Next(time.Now()))
	return nil
}

// Stop stops the cron loop; a run in progress is not interrupted
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Tick performs one scheduled run. It returns false when the run was
// skipped because another is in progress.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.running.TryLock() {
		slog.Warn("Previous scheduled run still in progress, skipping", "spec", s.Spec)
		return false
	}
	defer s.running.Unlock()

	params := s.Params
	params.RequestID = uuid.NewString()

	slog.Info("Scheduled run starting", "requestId", params.RequestID)
	report, err := s.Runner.Run(ctx, params)
	if err != nil {
		slog.Error("Scheduled run failed", "requestId", params.RequestID, "err", err)
		return true
	}

	slog.Info("Scheduled run completed", "requestId", params.RequestID, "volumes", len(report.Volumes))
	return true
}
