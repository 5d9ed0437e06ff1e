// Package engine schedules the pipeline lanes: cooperative round-robin with
// per-lane intervals, jitter and a working-hours gate. One lane step runs at
// a time; there is no preemption.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/metrics"
)

// Step advances one lane by a single unit of work. It reports whether any
// work was done so the engine can tell idle rounds apart.
type Step func(ctx context.Context) (acted bool, err error)

// Lane couples a pipeline step with its scheduling cadence.
type Lane struct {
	Name     string
	Interval time.Duration
	Step     Step
}

// retryAfter is the wait before polling an idle lane again, well short of
// the full interval.
const retryAfter = time.Minute

type schedule struct {
	name     string
	interval time.Duration
	step     Step
	nextRun  time.Time
}

// Engine runs the lanes until its context is canceled.
type Engine struct {
	lanes  []*schedule
	hours  Hours
	rng    *rand.Rand
	logger *zap.Logger
}

// New creates an engine over the given lanes. Every lane fires immediately
// on the first pass inside working hours.
func New(lanes []Lane, hours Hours, logger *zap.Logger) *Engine {
	e := &Engine{
		hours:  hours,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
	now := time.Now()
	for _, l := range lanes {
		e.lanes = append(e.lanes, &schedule{
			name:     l.Name,
			interval: l.Interval,
			step:     l.Step,
			nextRun:  now,
		})
	}
	return e
}

// Run loops until ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	if len(e.lanes) == 0 {
		e.logger.Warn("Engine has no lanes")
		return
	}

	e.logger.Info("Engine started",
		zap.String("working_hours", e.hours.String()),
		zap.Int("lanes", len(e.lanes)),
	)

	for {
		if ctx.Err() != nil {
			e.logger.Info("Engine stopped")
			return
		}
		e.runOnce(ctx)
	}
}

func (e *Engine) runOnce(ctx context.Context) {
	now := time.Now()

	if !e.hours.Contains(now) {
		wait := e.hours.UntilStart(now)
		e.logger.Info("Outside working hours", zap.Duration("sleep", wait))
		if !sleepCtx(ctx, wait) {
			return
		}
		// Fire every lane immediately in the new window.
		now = time.Now()
		for _, s := range e.lanes {
			s.nextRun = now
		}
		return
	}

	s := e.nextDue()
	if gap := s.nextRun.Sub(now); gap > 0 {
		e.logger.Debug("Next lane", zap.String("lane", s.name), zap.Duration("in", gap))
		if !sleepCtx(ctx, gap) {
			return
		}
	}
	e.runStep(ctx, s)
}

// runStep executes one lane step and reschedules the lane. A failed step
// never stops the loop.
func (e *Engine) runStep(ctx context.Context, s *schedule) {
	runID := uuid.NewString()
	log := e.logger.With(zap.String("lane", s.name), zap.String("run_id", runID))

	acted, err := s.step(ctx)
	now := time.Now()

	switch {
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		log.Error("Lane step failed", zap.Error(err))
		metrics.LaneRunsTotal.WithLabelValues(s.name, "error").Inc()
		s.nextRun = now.Add(e.jittered(s.interval))
	case acted:
		log.Debug("Lane step done")
		metrics.LaneRunsTotal.WithLabelValues(s.name, "ok").Inc()
		s.nextRun = now.Add(e.jittered(s.interval))
	default:
		// Nothing to do — retry soon instead of waiting the full interval.
		metrics.LaneRunsTotal.WithLabelValues(s.name, "idle").Inc()
		s.nextRun = now.Add(retryAfter)
	}
}

func (e *Engine) nextDue() *schedule {
	next := e.lanes[0]
	for _, s := range e.lanes[1:] {
		if s.nextRun.Before(next.nextRun) {
			next = s
		}
	}
	return next
}

// jittered spreads an interval by ±20% so lane actions never fall into a
// fixed cadence.
func (e *Engine) jittered(d time.Duration) time.Duration {
	f := 0.8 + 0.4*e.rng.Float64()
	return time.Duration(float64(d) * f)
}

// sleepCtx waits for d or until ctx is done. Reports false when interrupted.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Hours is a daily working window in the process's local time zone.
type Hours struct {
	start int // minutes since midnight
	end   int
}

// AllDay returns a window that never gates.
func AllDay() Hours {
	return Hours{start: 0, end: 24 * 60}
}

// ParseHours parses "HH:MM" bounds into a daily window. The end bound is
// exclusive and must come after the start.
func ParseHours(start, end string) (Hours, error) {
	s, err := parseClock(start)
	if err != nil {
		return Hours{}, err
	}
	e, err := parseClock(end)
	if err != nil {
		return Hours{}, err
	}
	if e <= s {
		return Hours{}, fmt.Errorf("working hours end %q is not after start %q", end, start)
	}
	return Hours{start: s, end: e}, nil
}

func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h*60 + m, nil
}

// Contains reports whether t falls inside the window.
func (h Hours) Contains(t time.Time) bool {
	cur := t.Hour()*60 + t.Minute()
	return h.start <= cur && cur < h.end
}

// UntilStart returns the wait until the window next opens.
func (h Hours) UntilStart(t time.Time) time.Duration {
	target := time.Date(t.Year(), t.Month(), t.Day(), h.start/60, h.start%60, 0, 0, t.Location())
	if !target.After(t) {
		target = target.AddDate(0, 0, 1)
	}
	return target.Sub(t)
}

func (h Hours) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", h.start/60, h.start%60, h.end/60, h.end%60)
}
