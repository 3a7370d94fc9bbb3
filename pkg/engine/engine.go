// Package engine drives the script manager at a fixed tick rate, in a window
// host's update loop or headlessly on a ticker, and decides when a run ends.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zurustar/jxscript/pkg/logger"
	"github.com/zurustar/jxscript/pkg/vm"
)

// ErrTerminated is returned by Update once the engine has been terminated.
var ErrTerminated = errors.New("engine terminated")

// DefaultTPS is the default number of ticks per second.
const DefaultTPS = 60

// Engine advances a vm.Manager by a fixed in-game interval per update.
type Engine struct {
	manager      *vm.Manager
	interval     time.Duration
	timeout      time.Duration
	exitWhenIdle bool
	headless     bool
	log          *slog.Logger

	terminated atomic.Bool
	startTime  time.Time
	frames     int
}

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithTickInterval sets the in-game time advanced per update.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithTimeout ends the run after d of wall-clock time. 0 means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithExitWhenIdle ends the run once no script is running or scheduled.
func WithExitWhenIdle(exit bool) Option {
	return func(e *Engine) {
		e.exitWhenIdle = exit
	}
}

// WithHeadless marks the engine as running without a window.
func WithHeadless(headless bool) Option {
	return func(e *Engine) {
		e.headless = headless
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// NewEngine creates an engine for manager.
func NewEngine(manager *vm.Manager, opts ...Option) *Engine {
	e := &Engine{
		manager:  manager,
		interval: time.Second / DefaultTPS,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Manager returns the driven script manager.
func (e *Engine) Manager() *vm.Manager {
	return e.manager
}

// IsHeadless returns whether headless mode is enabled.
func (e *Engine) IsHeadless() bool {
	return e.headless
}

// TickInterval returns the in-game time advanced per update.
func (e *Engine) TickInterval() time.Duration {
	return e.interval
}

// Frames returns the number of updates performed.
func (e *Engine) Frames() int {
	return e.frames
}

// Start records the start time used by the timeout.
func (e *Engine) Start() {
	e.startTime = time.Now()
	e.terminated.Store(false)
	e.log.Info("Engine started", "tickInterval", e.interval, "timeout", e.timeout, "headless", e.headless)
}

// Terminate sets the termination flag. It is safe to call from any goroutine.
func (e *Engine) Terminate() {
	if e.terminated.CompareAndSwap(false, true) {
		e.log.Info("Engine termination requested")
	}
}

// IsTerminated returns whether the engine has been terminated.
func (e *Engine) IsTerminated() bool {
	return e.terminated.Load()
}

// CheckTermination checks if the engine should terminate.
// Returns true if termination is requested or timeout exceeded.
func (e *Engine) CheckTermination() bool {
	if e.terminated.Load() {
		return true
	}

	if e.timeout > 0 && !e.startTime.IsZero() {
		elapsed := time.Since(e.startTime)
		if elapsed >= e.timeout {
			e.log.Info("Timeout exceeded", "elapsed", elapsed)
			e.Terminate()
			return true
		}
	}
	return false
}

// Update performs one engine tick.
func (e *Engine) Update() error {
	// Check termination before execution
	if e.CheckTermination() {
		return ErrTerminated
	}

	e.manager.Tick(e.interval)
	e.frames++

	if e.exitWhenIdle && e.manager.Idle() {
		e.log.Info("All scripts completed, terminating", "frames", e.frames, "clock", e.manager.Clock())
		e.Terminate()
		return ErrTerminated
	}

	// in case the timeout passed during the tick
	if e.CheckTermination() {
		return ErrTerminated
	}
	return nil
}

// RunFrames performs up to n updates back to back, without waiting between them.
// It returns the number of updates performed before the engine terminated.
func (e *Engine) RunFrames(n int) int {
	if e.startTime.IsZero() {
		e.Start()
	}
	done := 0
	for i := 0; i < n; i++ {
		if err := e.Update(); err != nil {
			break
		}
		done++
	}
	return done
}

// RunHeadless drives the engine on a wall-clock ticker until it terminates or
// ctx is cancelled. A cancelled context is not an error.
func (e *Engine) RunHeadless(ctx context.Context) error {
	e.Start()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("Headless run cancelled", "frames", e.frames)
			e.Terminate()
			return nil
		case <-ticker.C:
			if err := e.Update(); err != nil {
				if errors.Is(err, ErrTerminated) {
					return nil
				}
				return err
			}
		}
	}
}
