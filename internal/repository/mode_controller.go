package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Mode identifies the active storage backend.
type Mode string

const (
	ModeDurable  Mode = "durable"
	ModeVolatile Mode = "volatile"
)

// ModeStatus is a consistent snapshot of the controller state, read by the
// health endpoint.
type ModeStatus struct {
	Mode        Mode
	WantDurable bool
	LastError   string
}

// ConnectFunc attempts a durable backend connection. It must respect the
// context deadline.
type ConnectFunc func(ctx context.Context) (MessageRepository, error)

// ModeController tracks which backend is active. It starts in volatile mode
// so the first request is never blocked on a pending durable connection, and
// promotes to durable at most once, from a background attempt bounded by a
// timeout. Requests capture the active repository once at dispatch time.
type ModeController struct {
	logger      *zap.Logger
	wantDurable bool

	mu       sync.RWMutex
	active   MessageRepository
	mode     Mode
	lastErr  string
	promoted bool
}

// NewModeController creates a controller serving the volatile fallback until
// a durable promotion happens.
func NewModeController(fallback MessageRepository, wantDurable bool, logger *zap.Logger) *ModeController {
	return &ModeController{
		logger:      logger,
		wantDurable: wantDurable,
		active:      fallback,
		mode:        ModeVolatile,
	}
}

// Active returns the repository requests should use. A single consistent
// read: callers never observe a half-switched mode.
func (c *ModeController) Active() MessageRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Status reports the current mode for diagnostics.
func (c *ModeController) Status() ModeStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ModeStatus{
		Mode:        c.mode,
		WantDurable: c.wantDurable,
		LastError:   c.lastErr,
	}
}

// AttemptDurable races one durable connection attempt against the timeout.
// Run it in its own goroutine; it never blocks request handling. On success
// the active backend switches to durable and the last error clears. On
// failure or timeout the controller stays volatile and records the error —
// backend unavailability is a diagnostic, never a request error.
func (c *ModeController) AttemptDurable(connect ConnectFunc, timeout time.Duration) {
	if !c.wantDurable {
		c.logger.Warn("Durable storage not configured, staying in volatile mode (no persistence)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	type result struct {
		repo MessageRepository
		err  error
	}

	resultCh := make(chan result, 1)
	go func() {
		repo, err := connect(ctx)
		resultCh <- result{repo: repo, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			c.recordFailure(res.err)
			return
		}
		c.promote(res.repo)
	case <-ctx.Done():
		c.recordFailure(fmt.Errorf("durable backend connection timed out after %s", timeout))
	}
}

func (c *ModeController) promote(repo MessageRepository) {
	c.mu.Lock()
	c.active = repo
	c.mode = ModeDurable
	c.lastErr = ""
	c.promoted = true
	c.mu.Unlock()

	c.logger.Info("Durable backend connected, switching to durable mode")
}

func (c *ModeController) recordFailure(err error) {
	c.mu.Lock()
	// A promotion that already happened wins over a late failure.
	if !c.promoted {
		c.mode = ModeVolatile
		c.lastErr = err.Error()
	}
	c.mu.Unlock()

	c.logger.Warn("Durable backend unavailable, staying in volatile mode", zap.Error(err))
}
