package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-courier/logr"
	"github.com/innoai-tech/infra/pkg/configuration"
	"github.com/robfig/cron/v3"
)

type IntervalSchedule struct {
	Interval time.Duration
}

func (i IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(i.Interval)
}

// Job runs a named action on a cron schedule for as long as its Serve
// loop is alive.
type Job struct {
	Cron string `flag:",omitempty"`

	// Immediately fires the action once at startup, before the first
	// scheduled tick.
	Immediately bool `flag:",omitempty"`

	schedule cron.Schedule
	timer    *time.Timer

	name   string
	action func(ctx context.Context)
}

func (j *Job) SetDefaults() {
	if j.Cron == "" {
		j.Cron = "@every 10m"
	}
}

func (j *Job) ApplyAction(name string, action func(ctx context.Context)) {
	j.name = name
	j.action = action
}

func (j *Job) Init(ctx context.Context) error {
	schedule, err := cron.ParseStandard(j.Cron)
	if err != nil {
		return fmt.Errorf("parse cron %q failed: %w", j.Cron, err)
	}
	j.schedule = schedule
	return nil
}

var _ configuration.Server = (*Job)(nil)

func (j *Job) Serve(ctx context.Context) error {
	ci := configuration.ContextInjectorFromContext(ctx)

	logr.FromContext(ctx).WithValues(
		slog.String("name", j.name),
		slog.String("cron", j.Cron),
	).Info("waiting")

	j.timer = time.NewTimer(5 * time.Second)

	if j.Immediately && j.action != nil {
		go func() {
			j.action(ci.InjectContext(context.Background()))
		}()
	}

	for {
		now := time.Now()

		j.timer.Reset(j.schedule.Next(now).Sub(now))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case now = <-j.timer.C:
			if j.action != nil {
				go func() {
					j.action(ci.InjectContext(context.Background()))
				}()
			}
		}
	}
}

func (j *Job) Shutdown(context.Context) error {
	if j.timer != nil {
		j.timer.Stop()
	}
	return nil
}
