package garbagecollector

import (
	"context"
	"fmt"
	"time"

	"github.com/go-courier/logr"

	"github.com/ociworks/distkit/pkg/content"
	"github.com/ociworks/distkit/pkg/content/fs/driver"
	"github.com/ociworks/distkit/pkg/cron"
)

// Executor runs mark-and-sweep on a schedule.
type Executor struct {
	cron.Job

	ExcludeModifiedIn time.Duration `flag:",omitempty"`
	DryRun            bool          `flag:",omitempty"`
}

func (e *Executor) SetDefaults() {
	if e.Cron == "" {
		e.Cron = "@midnight"
	}

	if e.ExcludeModifiedIn == 0 {
		e.ExcludeModifiedIn = time.Hour
	}

	e.Job.SetDefaults()
}

func (e *Executor) Init(ctx context.Context) error {
	e.ApplyAction("garbage collect", func(ctx context.Context) {
		if err := e.Run(ctx); err != nil {
			logr.FromContext(ctx).Error(err)
		}
	})

	return e.Job.Init(ctx)
}

func (e *Executor) Run(pctx context.Context) error {
	namespace, ok := content.NamespaceFromContext(pctx)
	if !ok {
		return fmt.Errorf("no namespace configured")
	}

	d, ok := driver.FromContext(pctx)
	if !ok {
		return fmt.Errorf("no storage driver configured")
	}

	ctx, l := logr.FromContext(pctx).Start(pctx, "removing untagged")
	defer l.End()

	return MarkAndSweepExcludeModifiedIn(ctx, namespace, d, e.ExcludeModifiedIn, e.DryRun)
}
