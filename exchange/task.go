package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-kotel/logger"
)

// TaskFunc represents a function that performs a task within a goroutine managed by the TaskManager.
// It should return true to continue running the task, or false to stop the goroutine.
type TaskFunc func() bool

// TaskCancelFunc represents a function that will be called when a goroutine managed by the TaskManager exits.
type TaskCancelFunc func()

// ErrTaskManagerStopped is returned when a task is started on a stopped TaskManager.
var ErrTaskManagerStopped = errors.New("task manager already stopped")

// TaskManager manages the lifecycle of the goroutines of a client: the transport reader,
// dialers, hooks and polling intervals.
//
// The TaskManager uses a context.Context to manage the lifecycle of the goroutines. When Stop
// is called the context is canceled and every interval ticker is stopped; Wait blocks until all
// goroutines have returned.
//
// Example Usage:
//
//	taskMgr := exchange.NewTaskManager(ctx, logger)
//
//	_ = taskMgr.StartInterval("status", func() bool {
//	    // ... poll ...
//	    return true // Return true to continue running, false to stop
//	}, time.Second, true)
//
//	taskMgr.Stop()
//	taskMgr.Wait()
type TaskManager struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logger.Logger
	count   atomic.Int32
	tickers *xsync.MapOf[string, *time.Ticker]
}

// NewTaskManager creates a new TaskManager with the given context as the parent context and logger.
func NewTaskManager(ctx context.Context, l logger.Logger) *TaskManager {
	if l == nil {
		l = logger.GetLogger()
	}

	mgr := &TaskManager{
		logger:  l,
		tickers: xsync.NewMapOf[string, *time.Ticker](),
	}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// Context returns the context canceled by Stop.
func (mgr *TaskManager) Context() context.Context {
	return mgr.ctx
}

// Start starts a new goroutine running taskFunc in a loop until it returns false or the
// manager is stopped. cancelFunc, if not nil, is called when the goroutine exits.
func (mgr *TaskManager) Start(name string, taskFunc TaskFunc, cancelFunc TaskCancelFunc) error {
	mgr.logger.Debug("Start task", "name", name)

	return mgr.spawn(name, func() {
		if cancelFunc != nil {
			defer cancelFunc()
		}

		for {
			select {
			case <-mgr.ctx.Done():
				return
			default:
				if !mgr.callWithRecoverBool(name, taskFunc) {
					return
				}
			}
		}
	})
}

// Go starts a goroutine running fn once with the manager's context.
func (mgr *TaskManager) Go(name string, fn func(ctx context.Context)) error {
	return mgr.spawn(name, func() {
		mgr.callWithRecover(name, func() { fn(mgr.ctx) })
	})
}

// StartInterval starts a new goroutine that executes the given task function at the specified interval.
// If runNow is true, the task function is executed once inside the goroutine before the first tick.
// The goroutine stops when taskFunc returns false, on StopInterval or on Stop.
func (mgr *TaskManager) StartInterval(name string, taskFunc TaskFunc, interval time.Duration, runNow bool) error {
	mgr.logger.Debug("StartInterval task", "name", name, "interval", interval, "runNow", runNow)

	if interval <= 0 {
		return fmt.Errorf("invalid interval: %v", interval)
	}

	ticker := time.NewTicker(interval)
	if _, loaded := mgr.tickers.LoadOrStore(name, ticker); loaded {
		ticker.Stop()
		return fmt.Errorf("interval task %s already exists", name)
	}

	cleanup := func() {
		ticker.Stop()
		mgr.tickers.Compute(name, func(cur *time.Ticker, loaded bool) (*time.Ticker, bool) {
			// keep a ticker registered under the same name by a later StartInterval
			return cur, !loaded || cur == ticker
		})
	}

	err := mgr.spawn(name, func() {
		defer cleanup()

		if runNow && !mgr.callWithRecoverBool(name, taskFunc) {
			return
		}

		for {
			select {
			case <-mgr.ctx.Done():
				return
			case <-ticker.C:
				if !mgr.callWithRecoverBool(name, taskFunc) {
					return
				}
			}
		}
	})
	if err != nil {
		cleanup()
		return err
	}

	return nil
}

// StopInterval stops the interval task with the given name.
//
// The goroutine exits at the latest when the manager is stopped; a pending tick is not run.
func (mgr *TaskManager) StopInterval(name string) error {
	ticker, ok := mgr.tickers.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("ticker %s not found", name)
	}
	ticker.Stop()

	return nil
}

// Stop signals all running goroutines.
func (mgr *TaskManager) Stop() {
	mgr.tickers.Range(func(_ string, ticker *time.Ticker) bool {
		ticker.Stop()
		return true
	})

	mgr.cancel()
}

// Wait waits for all goroutines to terminate.
func (mgr *TaskManager) Wait() {
	mgr.wg.Wait()
}

// TaskCount returns the number of currently running goroutines.
func (mgr *TaskManager) TaskCount() int {
	return int(mgr.count.Load())
}

func (mgr *TaskManager) spawn(name string, body func()) error {
	if mgr.ctx.Err() != nil {
		return ErrTaskManagerStopped
	}

	mgr.wg.Add(1)
	mgr.count.Add(1)

	go func() {
		defer func() {
			mgr.count.Add(-1)
			mgr.wg.Done()
			mgr.logger.Debug(fmt.Sprintf("%s task terminated", name), "task_count", mgr.TaskCount())
		}()

		body()
	}()

	return nil
}

// callWithRecover calls a function with panic protection
func (mgr *TaskManager) callWithRecover(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
		}
	}()

	fn()
}

// callWithRecoverBool calls a function that returns bool with panic protection.
// A panic stops the task.
func (mgr *TaskManager) callWithRecoverBool(name string, fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
			ok = false
		}
	}()

	return fn()
}
