// Package tasks ships ready-made scheduler collaborators.
package tasks

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/luciancaetano/sechat"
)

var (
	_ sechat.ScheduledTask = (*Cron)(nil)
	_ sechat.ScheduledTask = Every{}
)

// Cron adapts a cron expression to the ScheduledTask interface. The run
// callback executes on the scheduler goroutine at each tick of the
// expression.
type Cron struct {
	expr string
	run  func(bot sechat.Bot)
	now  func() time.Time
}

// NewCron validates expr ("*/5 * * * *" and friends, including @hourly
// style shorthands) and wraps run as a scheduled task.
func NewCron(expr string, run func(bot sechat.Bot)) (*Cron, error) {
	if !gronx.New().IsValid(expr) {
		return nil, fmt.Errorf("invalid cron expression %q", expr)
	}
	return &Cron{expr: expr, run: run, now: time.Now}, nil
}

// NextRun implements sechat.ScheduledTask.
func (c *Cron) NextRun() time.Duration {
	now := c.now()
	next, err := gronx.NextTickAfter(c.expr, now, false)
	if err != nil {
		// Validated at construction; a failure here means the clock is
		// outside the expression's representable range. Back off an hour.
		return time.Hour
	}
	return next.Sub(now)
}

// Run implements sechat.ScheduledTask.
func (c *Cron) Run(bot sechat.Bot) {
	c.run(bot)
}

// Every is a plain fixed-interval scheduled task for callers that do not
// need cron semantics.
type Every struct {
	Interval time.Duration
	Func     func(bot sechat.Bot)
}

// NextRun implements sechat.ScheduledTask.
func (e Every) NextRun() time.Duration {
	return e.Interval
}

// Run implements sechat.ScheduledTask.
func (e Every) Run(bot sechat.Bot) {
	e.Func(bot)
}
