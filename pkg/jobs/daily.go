package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DailyTask runs once per day at a fixed wall-clock time.
type DailyTask func(ctx context.Context, now time.Time) error

// Daily fires a task every day at Hour:Minute in the configured location.
type Daily struct {
	name     string
	hour     int
	minute   int
	location *time.Location
	task     DailyTask
	logger   *zap.Logger
	now      func() time.Time
}

// NewDaily constructs a daily trigger. A nil location means UTC.
func NewDaily(name string, hour, minute int, location *time.Location, task DailyTask, logger *zap.Logger) *Daily {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Daily{
		name:     name,
		hour:     hour,
		minute:   minute,
		location: location,
		task:     task,
		logger:   logger,
		now:      time.Now,
	}
}

// NextRun returns the first trigger instant strictly after from.
func (d *Daily) NextRun(from time.Time) time.Time {
	local := from.In(d.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start launches the trigger loop in a goroutine; it exits when ctx is cancelled.
func (d *Daily) Start(ctx context.Context) {
	go func() {
		for {
			wait := time.Until(d.NextRun(d.now()))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case fired := <-timer.C:
				if err := d.task(ctx, fired.UTC()); err != nil {
					d.logger.Sugar().Warnw("daily task failed", "task", d.name, "error", err)
				}
			}
		}
	}()
	d.logger.Sugar().Infow("daily task scheduled", "task", d.name, "hour", d.hour, "minute", d.minute)
}
