// Package scheduler drives recurring pipeline runs from a daily cron-style
// expression, resolved in the configured timezone.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"PriceScanner/internal/ports"
)

// CronScheduler fires a job once per day at the minute and hour taken from a
// five-field cron expression ("30 6 * * *"). Only daily schedules are
// supported; the day fields must be "*".
type CronScheduler struct {
	minute int
	hour   int
	loc    *time.Location
	stop   chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler parses the expression in the given location. An
// unparseable expression falls back to 05:00.
func NewCronScheduler(spec string, loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	minute, hour, err := parseDailySpec(spec)
	if err != nil {
		minute, hour = 0, 5
	}
	return &CronScheduler{minute: minute, hour: hour, loc: loc}
}

// Start launches the timer goroutine. The job does not fire immediately; the
// first run waits for the next scheduled instant.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if c.stop != nil {
		return nil
	}

	c.stop = make(chan struct{})
	go func() {
		for {
			timer := time.NewTimer(time.Until(c.nextRun(time.Now())))
			select {
			case t := <-timer.C:
				job(t)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-c.stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the timer goroutine.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.stop == nil {
		return nil
	}
	close(c.stop)
	c.stop = nil
	return nil
}

// nextRun computes the first scheduled instant strictly after now.
func (c *CronScheduler) nextRun(now time.Time) time.Time {
	local := now.In(c.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), c.hour, c.minute, 0, 0, c.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func parseDailySpec(spec string) (minute, hour int, err error) {
	fields := strings.Fields(spec)
	if len(fields) != 5 {
		return 0, 0, fmt.Errorf("expression %q must have 5 fields", spec)
	}
	for _, f := range fields[2:] {
		if f != "*" {
			return 0, 0, fmt.Errorf("only daily schedules are supported, got %q", spec)
		}
	}

	minute, err = strconv.Atoi(fields[0])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute field in %q", spec)
	}
	hour, err = strconv.Atoi(fields[1])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour field in %q", spec)
	}
	return minute, hour, nil
}
