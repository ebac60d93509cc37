package boiler

import (
	"context"

	"github.com/arloliu/go-kotel/exchange"
)

// Run polls the status and the statistics at the configured intervals, passing the results to
// the handlers, until ctx is canceled. Failed polls go to the error handler and are retried on
// the next tick.
func (c *Controller) Run(ctx context.Context) error {
	taskMgr := exchange.NewTaskManager(ctx, c.logger)
	defer func() {
		taskMgr.Stop()
		taskMgr.Wait()
	}()

	taskCtx := taskMgr.Context()

	err := taskMgr.StartInterval("status", func() bool {
		c.refreshStatus(taskCtx)
		return true
	}, c.cfg.statusInterval, true)
	if err != nil {
		return err
	}

	err = taskMgr.StartInterval("stats", func() bool {
		c.refreshStats(taskCtx)
		return true
	}, c.cfg.statsInterval, true)
	if err != nil {
		return err
	}

	<-taskCtx.Done()

	return ctx.Err()
}
