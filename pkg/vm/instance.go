package vm

import (
	"time"

	"github.com/zurustar/jxscript/pkg/script"
)

// Status is the lifecycle state of a script instance.
type Status int

const (
	// StatusRunning instances are stepped on every tick.
	StatusRunning Status = iota
	// StatusBlocked instances wait for a future returned by a command handler.
	StatusBlocked
	// StatusCompleted instances ran past their last instruction.
	StatusCompleted
	// StatusCancelled instances were cancelled or aborted by a fatal script error.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusBlocked:
		return "blocked"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition out of s exists.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Instance is one running execution of a program. Its program counter, resolver and
// status are private to it; the program itself is shared.
type Instance struct {
	id       int
	path     string
	program  *script.Program
	pc       int
	resolver *Resolver
	status   Status
	owner    string
	parallel bool
	startAt  time.Duration
	pending  *Future
	err      error
}

func newInstance(id int, path string, program *script.Program, owner string) *Instance {
	return &Instance{
		id:       id,
		path:     path,
		program:  program,
		resolver: NewResolver(),
		status:   StatusRunning,
		owner:    owner,
	}
}

// ID returns the manager-assigned instance number.
func (i *Instance) ID() int { return i.id }

// Path returns the script path the instance was started with.
func (i *Instance) Path() string { return i.path }

// Program returns the shared program.
func (i *Instance) Program() *script.Program { return i.program }

// PC returns the current program counter.
func (i *Instance) PC() int { return i.pc }

// Status returns the lifecycle state.
func (i *Instance) Status() Status { return i.status }

// Owner returns the invocation context key ("" for global scripts).
func (i *Instance) Owner() string { return i.owner }

// IsParallel reports whether the instance was started by RunParallelScript.
func (i *Instance) IsParallel() bool { return i.parallel }

// Resolver returns the instance's suspension primitive.
func (i *Instance) Resolver() *Resolver { return i.resolver }

// Err returns the fatal error that cancelled the instance, if any.
func (i *Instance) Err() error { return i.err }

// Done reports whether the instance reached a terminal state.
func (i *Instance) Done() bool { return i.status.Terminal() }

// CurrentLine returns the source line at the program counter, or 0 past the end.
func (i *Instance) CurrentLine() int {
	if i.pc < 0 || i.pc >= i.program.Len() {
		return 0
	}
	return i.program.At(i.pc).LineNumber
}

// Finish completes the instance immediately. Handlers use it to implement an
// early return from a script.
func (i *Instance) Finish() {
	if i.status.Terminal() {
		return
	}
	i.resolver.Clear()
	i.pending = nil
	i.status = StatusCompleted
}

// cancel clears the resolver so no continuation outlives the instance.
func (i *Instance) cancel(err error) {
	if i.status.Terminal() {
		return
	}
	i.resolver.Clear()
	i.pending = nil
	i.status = StatusCancelled
	i.err = err
}
