package uploadpurger

import (
	"context"
	"fmt"
	"time"

	"github.com/go-courier/logr"

	"github.com/ociworks/distkit/pkg/content/fs/driver"
	"github.com/ociworks/distkit/pkg/cron"
)

// Purger sweeps abandoned staged uploads on a schedule.
type Purger struct {
	cron.Job

	ExpiresIn time.Duration `flag:",omitempty"`
}

func (p *Purger) SetDefaults() {
	if p.ExpiresIn == 0 {
		p.ExpiresIn = 2 * time.Hour
	}

	if p.Cron == "" {
		p.Cron = "@every 10m"
	}

	p.Job.SetDefaults()
}

func (p *Purger) Init(ctx context.Context) error {
	p.ApplyAction("purge uploads", func(ctx context.Context) {
		if err := p.Purge(ctx); err != nil {
			logr.FromContext(ctx).Error(err)
		}
	})

	return p.Job.Init(ctx)
}

func (p *Purger) Purge(pctx context.Context) error {
	d, ok := driver.FromContext(pctx)
	if !ok {
		return fmt.Errorf("no storage driver configured")
	}

	ctx, l := logr.FromContext(pctx).Start(pctx, "purging")
	defer l.End()

	return Purge(ctx, d, p.ExpiresIn)
}
