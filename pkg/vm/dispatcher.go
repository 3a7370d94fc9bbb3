package vm

import (
	"log/slog"
	"sort"
	"strings"
)

// Handler implements one script command.
//
// A handler that completes synchronously returns a nil (or already resolved) future.
// A handler that must suspend its script returns a pending future obtained from
// ctx.Resolver(); the script stays Blocked until that future resolves. A returned
// error aborts the calling script only.
type Handler func(ctx *Context, args []string) (*Future, error)

// ConditionFunc evaluates the condition text of an If instruction.
type ConditionFunc func(ctx *Context, expr string) (bool, error)

// Context is passed to every handler and condition evaluation.
type Context struct {
	// Instance is the script instance executing the instruction.
	Instance *Instance

	// Manager owns the instance; handlers use it to start or cancel scripts.
	Manager *Manager

	// Line is the source line of the instruction being executed.
	Line int

	// Env is the game-data context supplied with WithEnv.
	Env any
}

// Resolver returns the executing instance's resolver.
func (c *Context) Resolver() *Resolver {
	return c.Instance.resolver
}

// Log returns the manager's logger annotated with the script location.
func (c *Context) Log() *slog.Logger {
	return c.Manager.log.With("file", c.Instance.Path(), "line", c.Line)
}

// Dispatcher is the registry that maps instruction names to handlers.
// Names are matched case-insensitively.
type Dispatcher struct {
	handlers map[string]Handler
	names    map[string]string
}

// NewDispatcher creates an empty registry.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		names:    make(map[string]string),
	}
}

// Register adds or replaces the handler for name.
func (d *Dispatcher) Register(name string, h Handler) {
	key := strings.ToLower(name)
	d.handlers[key] = h
	d.names[key] = name
}

// Unregister removes the handler for name.
func (d *Dispatcher) Unregister(name string) {
	key := strings.ToLower(name)
	delete(d.handlers, key)
	delete(d.names, key)
}

// Lookup returns the handler registered for name.
func (d *Dispatcher) Lookup(name string) (Handler, bool) {
	h, ok := d.handlers[strings.ToLower(name)]
	return h, ok
}

// Names returns the registered command names in sorted order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.names))
	for _, n := range d.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
