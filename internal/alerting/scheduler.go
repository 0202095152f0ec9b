package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alliancehq/alliance-manager/internal/errors"
	"github.com/alliancehq/alliance-manager/internal/logger"
	"github.com/alliancehq/alliance-manager/internal/observability/metrics"
	"github.com/alliancehq/alliance-manager/internal/observability/telemetry"
)

// DefaultIntervalMinutes is the check interval used when none is configured.
const DefaultIntervalMinutes = 2

// ErrInvalidInterval is returned for a non-positive interval.
var ErrInvalidInterval = errors.NewStd("interval must be at least one minute")

// Runner runs one full alert-check cycle.
type Runner interface {
	RunAlertChecks(ctx context.Context) (CycleResult, error)
}

// SchedulerState is the lifecycle state of the scheduler.
type SchedulerState int

const (
	StateStopped SchedulerState = iota
	StateRunning
)

func (s SchedulerState) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

type command int

const (
	cmdStart command = iota
	cmdStop
	cmdSetInterval
)

// effect is the side effect a transition asks for. Arming runs a cycle
// immediately and then on every tick; rearming disarms and arms again.
type effect int

const (
	effectNone effect = iota
	effectArm
	effectDisarm
	effectRearm
)

// transition is the scheduler state machine. It has no side effects.
func transition(state SchedulerState, cmd command) (SchedulerState, effect) {
	switch {
	case state == StateStopped && cmd == cmdStart:
		return StateRunning, effectArm
	case state == StateRunning && cmd == cmdStop:
		return StateStopped, effectDisarm
	case state == StateRunning && cmd == cmdSetInterval:
		return StateRunning, effectRearm
	default:
		return state, effectNone
	}
}

// Status is the scheduler snapshot shown to admins. NextRun is derived from
// LastRun and the interval.
type Status struct {
	IsRunning       bool       `json:"isRunning"`
	LastRun         *time.Time `json:"lastRun"`
	IntervalMinutes int        `json:"intervalMinutes"`
	NextRun         *time.Time `json:"nextRun"`
}

// SchedulerOptions wires a Scheduler.
type SchedulerOptions struct {
	Runner          Runner
	Clock           Clock
	IntervalMinutes int
	Metrics         *metrics.AlertingMetrics
	Reporter        telemetry.Reporter
	Logger          logger.Logger
	History         *RunHistory
}

// Scheduler runs the alert checks on a fixed interval.
type Scheduler struct {
	runner   Runner
	clock    Clock
	metrics  *metrics.AlertingMetrics
	reporter telemetry.Reporter
	log      logger.Logger
	history  *RunHistory

	mu       sync.Mutex
	state    SchedulerState
	interval int
	lastRun  *time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.IntervalMinutes <= 0 {
		opts.IntervalMinutes = DefaultIntervalMinutes
	}
	if opts.Reporter == nil {
		opts.Reporter = telemetry.NoopReporter{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoopLogger()
	}
	if opts.History == nil {
		opts.History = NewRunHistory(maxRunRecords)
	}
	return &Scheduler{
		runner:   opts.Runner,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		reporter: opts.Reporter,
		log:      opts.Logger.Module("scheduler"),
		history:  opts.History,
		interval: opts.IntervalMinutes,
	}
}

// Start runs a check immediately and then every interval. Starting a running
// scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, eff := transition(s.state, cmdStart)
	if eff == effectNone {
		s.log.Info("alert scheduler already running")
		return
	}
	s.state = next
	s.arm()
}

// Stop cancels the timer and waits for an in-flight cycle to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	next, eff := transition(s.state, cmdStop)
	s.state = next
	var done chan struct{}
	if eff == effectDisarm {
		done = s.disarm()
	}
	s.mu.Unlock()

	if done != nil {
		<-done
		s.log.Info("alert scheduler stopped")
	}
}

// SetInterval changes the interval. A running scheduler is restarted with
// the new interval; a stopped one keeps it for the next Start.
func (s *Scheduler) SetInterval(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, minutes)
	}

	s.mu.Lock()
	s.interval = minutes
	next, eff := transition(s.state, cmdSetInterval)
	s.state = next
	var done chan struct{}
	if eff == effectRearm {
		done = s.disarm()
	}
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning && s.cancel == nil {
		s.arm()
	}
	return nil
}

// Status returns a snapshot of the scheduler.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		IsRunning:       s.state == StateRunning,
		IntervalMinutes: s.interval,
	}
	if s.lastRun != nil {
		last := *s.lastRun
		next := last.Add(time.Duration(s.interval) * time.Minute)
		st.LastRun = &last
		st.NextRun = &next
	}
	return st
}

// RunNow runs one cycle on the caller's goroutine through the same path as
// a timer tick. It does not wait for or exclude a concurrent tick.
func (s *Scheduler) RunNow(ctx context.Context) (CycleResult, error) {
	return s.runCycle(ctx, TriggerManual)
}

// History returns up to n recent runs, newest first.
func (s *Scheduler) History(n int) []RunRecord {
	return s.history.Recent(n)
}

// arm starts the loop goroutine. Callers hold s.mu.
func (s *Scheduler) arm() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := s.clock.NewTicker(time.Duration(s.interval) * time.Minute)
	s.cancel = cancel
	s.done = done
	s.metrics.SetSchedulerRunning(true)

	s.log.Info("alert scheduler started", logger.Int("interval_minutes", s.interval))
	go s.loop(ctx, ticker, done)
}

// disarm cancels the loop and returns its done channel. Callers hold s.mu.
func (s *Scheduler) disarm() chan struct{} {
	if s.cancel != nil {
		s.cancel()
	}
	done := s.done
	s.cancel = nil
	s.done = nil
	s.metrics.SetSchedulerRunning(false)
	return done
}

func (s *Scheduler) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	_, _ = s.runCycle(ctx, TriggerTimer)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			_, _ = s.runCycle(ctx, TriggerTimer)
		}
	}
}

// runCycle runs the checks once. A panic or error is logged and recorded but
// never propagates to the loop.
func (s *Scheduler) runCycle(ctx context.Context, trigger Trigger) (result CycleResult, err error) {
	started := s.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("alert check cycle panicked: %v", r).
				Component("scheduler").
				Category(errors.CategoryAlerting).
				Build()
		}

		finished := s.clock.Now()
		s.mu.Lock()
		s.lastRun = &started
		s.mu.Unlock()

		rec := RunRecord{
			StartedAt: started,
			Duration:  finished.Sub(started),
			Trigger:   trigger,
			Result:    result,
		}
		if err != nil {
			rec.Error = err.Error()
			if ctx.Err() == nil {
				s.log.Error("alert check cycle failed",
					logger.String("trigger", string(trigger)),
					logger.Error(err))
				s.reporter.CaptureError(err, map[string]string{"trigger": string(trigger)})
			}
		}
		s.history.Record(rec)
	}()

	return s.runner.RunAlertChecks(ctx)
}
