package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"unpod-notifier/internal/config"
	"unpod-notifier/internal/dispatch"
	"unpod-notifier/internal/logging"
	"unpod-notifier/internal/notify"
)

type Controller struct {
	rootCtx context.Context
	bridge  notify.Bridge
	mu      sync.Mutex
	cancel  context.CancelFunc
	service Service
	running bool
	wg      sync.WaitGroup
}

type StartHooks struct {
	OnStatus       func(string)
	OnUnread       func(int)
	OnNotification func(dispatch.Notification)
	OnExit         func(error)
}

func NewController(rootCtx context.Context, bridge notify.Bridge) *Controller {
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	if bridge == nil {
		panic("runtime.NewController: bridge must not be nil")
	}
	return &Controller{rootCtx: rootCtx, bridge: bridge}
}

func (c *Controller) Start(opts config.Options, logger *logging.Logger, hooks StartHooks) error {
	if logger == nil {
		panic("runtime.Controller.Start: logger must not be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("notifier is already running")
	}
	if err := config.ValidateRequired(opts); err != nil {
		return err
	}
	logger.Debug("runtime start requested",
		logging.Field("base_url", opts.BaseURL),
		logging.Field("poll_interval", opts.PollInterval),
	)

	service, err := NewServiceWithHooks(opts, c.bridge, logger, hooks)
	if err != nil {
		return err
	}

	parent := c.rootCtx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	c.cancel = cancel
	c.service = service
	c.running = true
	c.wg.Go(func() {
		defer cancel()
		runErr := service.RunContext(ctx)
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			logger.Debug("runtime service exited due to context cancellation", logging.Field("error", runErr))
		} else if runErr != nil {
			logger.Warn("runtime service exited with error", logging.Field("error", runErr))
		} else {
			logger.Info("runtime service exited")
		}
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.service = nil
		c.mu.Unlock()

		if hooks.OnExit != nil {
			hooks.OnExit(runErr)
		}
	})

	return nil
}

func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) Wait(timeout time.Duration) bool {
	waitDone := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(waitDone)
	}()
	if timeout <= 0 {
		<-waitDone
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-waitDone:
		return true
	case <-timer.C:
		return false
	}
}

func (c *Controller) StopAndWait(timeout time.Duration) bool {
	c.Stop()
	return c.Wait(timeout)
}

func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// MarkAllRead forwards the action to the running service.
func (c *Controller) MarkAllRead(ctx context.Context) error {
	c.mu.Lock()
	service := c.service
	c.mu.Unlock()
	if service == nil {
		return errors.New("notifier is not running")
	}
	return service.MarkAllRead(ctx)
}

// Recent returns the running service's delivery history, or nothing when
// stopped.
func (c *Controller) Recent() []dispatch.Notification {
	c.mu.Lock()
	service := c.service
	c.mu.Unlock()
	if service == nil {
		return nil
	}
	return service.Recent()
}

func (c *Controller) Unread() int {
	c.mu.Lock()
	service := c.service
	c.mu.Unlock()
	if service == nil {
		return 0
	}
	return service.Unread()
}
