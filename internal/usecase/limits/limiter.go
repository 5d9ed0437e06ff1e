// Package limits gates the action lanes with rolling daily and ISO-week caps.
package limits

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/metrics"
)

// CounterStore is the persistence interface for limiter counters.
// Implementations must be idempotent (IncrBy can be called repeatedly).
type CounterStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// Limiter is a per-lane action budget over a rolling day and ISO week.
// A zero limit means no cap for that window. Rollover is lazy: every call
// compares the stored day and ISO week against the wall clock, no timers.
type Limiter struct {
	mu          sync.Mutex
	lane        string
	dailyLimit  int
	weeklyLimit int
	dailyCount  int
	weeklyCount int
	currentDay  time.Time
	isoYear     int
	isoWeek     int
	exhausted   bool
	store       CounterStore
	logger      *zap.Logger
}

// New creates a limiter for one lane. Zero limits disable the cap.
func New(lane string, dailyLimit, weeklyLimit int, logger *zap.Logger) *Limiter {
	now := time.Now().UTC()
	year, week := now.ISOWeek()
	l := &Limiter{
		lane:        lane,
		dailyLimit:  dailyLimit,
		weeklyLimit: weeklyLimit,
		currentDay:  truncateToDay(now),
		isoYear:     year,
		isoWeek:     week,
		logger:      logger,
	}
	l.publishGaugesLocked()
	return l
}

// WithStore attaches a persistence store and loads the current counters.
func (l *Limiter) WithStore(ctx context.Context, store CounterStore) *Limiter {
	l.store = store
	l.loadFromStore(ctx)
	return l
}

func (l *Limiter) loadFromStore(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()
	year, week := now.ISOWeek()

	if val, err := l.store.Get(ctx, l.dailyKey(now)); err == nil {
		l.dailyCount = int(val)
	} else {
		l.logger.Warn("Failed to load daily limiter count", zap.Error(err))
	}
	if val, err := l.store.Get(ctx, l.weeklyKey(year, week)); err == nil {
		l.weeklyCount = int(val)
	} else {
		l.logger.Warn("Failed to load weekly limiter count", zap.Error(err))
	}

	l.publishGaugesLocked()

	l.logger.Info("Limiter counters loaded from store",
		zap.String("lane", l.lane),
		zap.Int("daily_count", l.dailyCount),
		zap.Int("weekly_count", l.weeklyCount),
	)
}

func (l *Limiter) dailyKey(t time.Time) string {
	return fmt.Sprintf("%slimits:%s:daily:%s", domain.KeyPrefix, l.lane, t.Format("2006-01-02"))
}

func (l *Limiter) weeklyKey(year, week int) string {
	return fmt.Sprintf("%slimits:%s:weekly:%04d-W%02d", domain.KeyPrefix, l.lane, year, week)
}

// CanExecute reports whether the lane may take another action right now.
func (l *Limiter) CanExecute() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeReset()

	if l.exhausted {
		return false
	}
	if l.dailyLimit > 0 && l.dailyCount >= l.dailyLimit {
		return false
	}
	if l.weeklyLimit > 0 && l.weeklyCount >= l.weeklyLimit {
		return false
	}
	return true
}

// Record counts one executed action against both windows.
// Updates in-memory counters, then write-behind to store (if attached).
func (l *Limiter) Record() {
	l.mu.Lock()
	l.maybeReset()
	l.dailyCount++
	l.weeklyCount++
	store := l.store
	now := time.Now().UTC()
	year, week := now.ISOWeek()
	dailyKey := l.dailyKey(now)
	weeklyKey := l.weeklyKey(year, week)
	l.publishGaugesLocked()
	l.mu.Unlock()

	if store == nil {
		return
	}

	// Write-behind: fire-and-forget INCRBY to store.
	// Uses background context so store writes don't block the lane.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.IncrBy(ctx, dailyKey, 1); err != nil {
		l.logger.Warn("Failed to persist daily limiter count", zap.String("key", dailyKey), zap.Error(err))
	}
	if err := store.IncrBy(ctx, weeklyKey, 1); err != nil {
		l.logger.Warn("Failed to persist weekly limiter count", zap.String("key", weeklyKey), zap.Error(err))
	}
}

// MarkExhausted latches the limiter closed after an upstream hard block,
// independent of the counters. The latch clears on the next day rollover.
func (l *Limiter) MarkExhausted() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exhausted = true
	l.logger.Warn("Daily limit externally exhausted", zap.String("lane", l.lane))
}

// Exhausted reports whether the external hard-block latch is set.
func (l *Limiter) Exhausted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeReset()
	return l.exhausted
}

// Remaining reports actions left in the daily and weekly windows (-1 = unlimited).
func (l *Limiter) Remaining() (daily, weekly int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeReset()
	return l.remainingLocked()
}

// Lane returns the lane this limiter guards.
func (l *Limiter) Lane() string { return l.lane }

// DailyLimit returns the daily action cap (0 = no cap).
func (l *Limiter) DailyLimit() int { return l.dailyLimit }

// WeeklyLimit returns the weekly action cap (0 = no cap).
func (l *Limiter) WeeklyLimit() int { return l.weeklyLimit }

// maybeReset rolls the windows over when the stored day or ISO week no
// longer matches the wall clock. The exhausted latch clears only with the
// day, never the week.
func (l *Limiter) maybeReset() {
	now := time.Now().UTC()
	today := truncateToDay(now)
	year, week := now.ISOWeek()

	changed := false
	if today.After(l.currentDay) {
		l.dailyCount = 0
		l.exhausted = false
		l.currentDay = today
		changed = true
	}
	if year != l.isoYear || week != l.isoWeek {
		l.weeklyCount = 0
		l.isoYear = year
		l.isoWeek = week
		changed = true
	}
	if changed {
		l.publishGaugesLocked()
	}
}

func (l *Limiter) remainingLocked() (daily, weekly int) {
	daily, weekly = -1, -1
	if l.dailyLimit > 0 {
		daily = l.dailyLimit - l.dailyCount
		if daily < 0 {
			daily = 0
		}
	}
	if l.weeklyLimit > 0 {
		weekly = l.weeklyLimit - l.weeklyCount
		if weekly < 0 {
			weekly = 0
		}
	}
	return daily, weekly
}

func (l *Limiter) publishGaugesLocked() {
	daily, weekly := l.remainingLocked()
	metrics.LimiterRemaining.WithLabelValues(l.lane, "daily").Set(float64(daily))
	metrics.LimiterRemaining.WithLabelValues(l.lane, "weekly").Set(float64(weekly))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
