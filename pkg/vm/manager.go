// Package vm runs parsed scripts cooperatively, one tick at a time.
//
// A Manager owns every live script instance: one or more main instances plus any
// number of parallel instances. Each call to Tick advances the in-game clock, starts
// parallel scripts whose delay has elapsed, and steps every instance once in a fixed
// order (main instances first, then parallel instances, each in registration order).
// Instances suspend only when a command handler returns a pending Future from the
// instance's Resolver.
//
// Everything in this package runs on the goroutine that calls Tick. There are no
// locks; instances never share mutable state.
package vm

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zurustar/jxscript/pkg/fileutil"
	"github.com/zurustar/jxscript/pkg/logger"
	"github.com/zurustar/jxscript/pkg/script"
)

// DefaultMaxOpsPerTick bounds how many instructions one instance may execute in a
// single tick before it is aborted.
const DefaultMaxOpsPerTick = 1000

// Manager owns and schedules script instances.
type Manager struct {
	cache      *script.Cache
	dispatcher *Dispatcher
	condition  ConditionFunc
	observer   Observer
	env        any
	maxOps     int
	log        *slog.Logger

	clock     time.Duration
	nextID    int
	ticking   bool
	mains     []*Instance
	parallels []*Instance
	scheduled []*Instance
}

// Option is a functional option for configuring the Manager.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithMaxOpsPerTick sets the per-instance instruction cap for one tick.
// Values below 1 keep the default.
func WithMaxOpsPerTick(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxOps = n
		}
	}
}

// WithConditionEvaluator sets the evaluator used by If instructions.
func WithConditionEvaluator(fn ConditionFunc) Option {
	return func(m *Manager) {
		m.condition = fn
	}
}

// WithObserver installs a debug observer.
func WithObserver(obs Observer) Option {
	return func(m *Manager) {
		if obs != nil {
			m.observer = obs
		}
	}
}

// WithEnv sets the game-data context handed to handlers as Context.Env.
func WithEnv(env any) Option {
	return func(m *Manager) {
		m.env = env
	}
}

// NewManager creates a manager that loads programs through cache and dispatches
// commands through dispatcher.
func NewManager(cache *script.Cache, dispatcher *Dispatcher, opts ...Option) *Manager {
	m := &Manager{
		cache:      cache,
		dispatcher: dispatcher,
		observer:   noopObserver{},
		maxOps:     DefaultMaxOpsPerTick,
		log:        logger.GetLogger(),
		nextID:     1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dispatcher returns the command registry.
func (m *Manager) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// Clock returns the accumulated in-game time.
func (m *Manager) Clock() time.Duration {
	return m.clock
}

// MaxOpsPerTick returns the runaway guard limit.
func (m *Manager) MaxOpsPerTick() int {
	return m.maxOps
}

// RunScript starts a main instance of the script at path, bound to owner.
// An instance started while a tick is in progress is first stepped on the next tick.
func (m *Manager) RunScript(path, owner string) (*Instance, error) {
	inst, err := m.newInstance(path, owner)
	if err != nil {
		return nil, err
	}
	m.mains = append(m.mains, inst)
	m.start(inst)
	return inst, nil
}

// RunParallelScript schedules an independent instance of the script at path to
// start once delay of in-game time has elapsed.
func (m *Manager) RunParallelScript(path string, delay time.Duration, owner string) (*Instance, error) {
	inst, err := m.newInstance(path, owner)
	if err != nil {
		return nil, err
	}
	if delay < 0 {
		delay = 0
	}
	inst.parallel = true
	inst.startAt = m.clock + delay
	m.scheduled = append(m.scheduled, inst)
	m.log.Debug("Parallel script scheduled", "id", inst.id, "path", inst.path, "startAt", inst.startAt)
	return inst, nil
}

func (m *Manager) newInstance(path, owner string) (*Instance, error) {
	prog, err := m.cache.Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load script %s: %w", path, err)
	}
	inst := newInstance(m.nextID, fileutil.NormalizePath(path), prog, owner)
	m.nextID++
	return inst, nil
}

func (m *Manager) start(inst *Instance) {
	m.log.Debug("Script started", "id", inst.id, "path", inst.path, "owner", inst.owner, "parallel", inst.parallel)
	m.observer.OnScriptStart(inst.path, inst.program.Len(), inst.program.Literals())
}

// Tick advances the clock by dt and steps every live instance once.
// No script error escapes Tick; failing instances are cancelled and logged.
func (m *Manager) Tick(dt time.Duration) {
	if dt > 0 {
		m.clock += dt
	}

	m.ticking = true
	m.activateDue()

	order := make([]*Instance, 0, len(m.mains)+len(m.parallels))
	order = append(order, m.mains...)
	order = append(order, m.parallels...)

	for _, inst := range order {
		if inst.status.Terminal() {
			continue
		}
		m.tickInstance(inst)
	}

	m.ticking = false
	m.sweep()
}

// tickInstance polls the instance's waiters and steps it. A panic raised by a
// predicate or continuation cancels this instance only.
func (m *Manager) tickInstance(inst *Instance) {
	defer m.recoverInstance(inst)
	inst.resolver.Tick()
	m.step(inst)
}

// activateDue moves scheduled parallel instances whose start time has come into
// the live set, preserving registration order.
func (m *Manager) activateDue() {
	if len(m.scheduled) == 0 {
		return
	}
	var waiting []*Instance
	for _, inst := range m.scheduled {
		if inst.status.Terminal() {
			continue
		}
		if inst.startAt <= m.clock {
			m.parallels = append(m.parallels, inst)
			m.start(inst)
		} else {
			waiting = append(waiting, inst)
		}
	}
	m.scheduled = waiting
}

// sweep removes terminal instances.
func (m *Manager) sweep() {
	m.mains = m.removeTerminal(m.mains)
	m.parallels = m.removeTerminal(m.parallels)
	m.scheduled = m.removeTerminal(m.scheduled)
}

func (m *Manager) removeTerminal(list []*Instance) []*Instance {
	kept := list[:0]
	for _, inst := range list {
		if inst.status.Terminal() {
			m.log.Debug("Script removed", "id", inst.id, "path", inst.path, "status", inst.status.String())
			continue
		}
		kept = append(kept, inst)
	}
	for i := len(kept); i < len(list); i++ {
		list[i] = nil
	}
	return kept
}

// Cancel cancels one instance.
func (m *Manager) Cancel(inst *Instance) {
	inst.cancel(ErrCancelled)
	if !m.ticking {
		m.sweep()
	}
}

// CancelOwner cancels every live or scheduled instance bound to owner and returns
// how many were cancelled. Each cancelled instance's resolver is cleared, so no
// pending continuation keeps a reference to the owner.
func (m *Manager) CancelOwner(owner string) int {
	n := 0
	m.each(func(inst *Instance) {
		if inst.owner == owner && !inst.status.Terminal() {
			inst.cancel(ErrCancelled)
			n++
		}
	})
	if n > 0 {
		m.log.Debug("Owner scripts cancelled", "owner", owner, "count", n)
	}
	if !m.ticking {
		m.sweep()
	}
	return n
}

// StopParallel cancels every live or scheduled parallel instance of path.
func (m *Manager) StopParallel(path string) int {
	target := fileutil.NormalizePath(path)
	n := 0
	m.each(func(inst *Instance) {
		if inst.parallel && !inst.status.Terminal() && strings.EqualFold(inst.path, target) {
			inst.cancel(ErrCancelled)
			n++
		}
	})
	if !m.ticking {
		m.sweep()
	}
	return n
}

// BroadcastEvent resolves the oldest waiter for name in every live instance, in
// stepping order, and returns the number of waiters resolved.
func (m *Manager) BroadcastEvent(name string, data any) int {
	n := 0
	for _, inst := range m.live() {
		if inst.status.Terminal() {
			continue
		}
		if m.resolveEvent(inst, name, data) {
			n++
		}
	}
	if !m.ticking {
		m.sweep()
	}
	return n
}

func (m *Manager) resolveEvent(inst *Instance, name string, data any) (resolved bool) {
	defer m.recoverInstance(inst)
	return inst.resolver.ResolveEvent(name, data)
}

// Reset cancels every instance and empties the program cache.
func (m *Manager) Reset() {
	m.each(func(inst *Instance) {
		inst.cancel(ErrCancelled)
	})
	m.mains = nil
	m.parallels = nil
	m.scheduled = nil
	m.cache.Purge()
	m.log.Debug("Script manager reset")
}

// Idle reports whether nothing is running or scheduled.
func (m *Manager) Idle() bool {
	idle := true
	m.each(func(inst *Instance) {
		if !inst.status.Terminal() {
			idle = false
		}
	})
	return idle
}

// Instances returns the live instances in stepping order.
func (m *Manager) Instances() []*Instance {
	return m.live()
}

// Scheduled returns parallel instances that have not started yet.
func (m *Manager) Scheduled() []*Instance {
	out := make([]*Instance, len(m.scheduled))
	copy(out, m.scheduled)
	return out
}

func (m *Manager) live() []*Instance {
	out := make([]*Instance, 0, len(m.mains)+len(m.parallels))
	out = append(out, m.mains...)
	return append(out, m.parallels...)
}

func (m *Manager) each(fn func(*Instance)) {
	for _, inst := range m.mains {
		fn(inst)
	}
	for _, inst := range m.parallels {
		fn(inst)
	}
	for _, inst := range m.scheduled {
		fn(inst)
	}
}
