package vm

// pollWaiter is re-evaluated on every Tick until its predicate holds.
type pollWaiter struct {
	predicate func() bool
	future    *Future
}

// Resolver is the suspension primitive of a script instance.
//
// It holds two kinds of waiters: poll waiters, re-evaluated in registration order on
// every Tick, and event waiters, queued FIFO per event name and resolved one at a
// time by ResolveEvent. The resolver has no timers and does no work except inside
// Tick and ResolveEvent; time-based waits are expressed as predicates.
type Resolver struct {
	polls  []*pollWaiter
	events map[string][]*Future

	// epoch changes on Clear so that a Tick in progress drops waiters it was
	// about to keep.
	epoch int
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		events: make(map[string][]*Future),
	}
}

// WaitForCondition returns a future that resolves once predicate returns true.
// If the predicate already holds, the returned future is resolved before the call
// returns and nothing is queued.
func (r *Resolver) WaitForCondition(predicate func() bool) *Future {
	if predicate() {
		return Resolved(nil)
	}
	f := newFuture()
	r.polls = append(r.polls, &pollWaiter{predicate: predicate, future: f})
	return f
}

// WaitForEvent queues a waiter for the named event.
func (r *Resolver) WaitForEvent(name string) *Future {
	f := newFuture()
	r.events[name] = append(r.events[name], f)
	return f
}

// Tick evaluates every queued poll waiter in registration order and resolves
// (and removes) each one whose predicate now holds.
func (r *Resolver) Tick() {
	if len(r.polls) == 0 {
		return
	}

	epoch := r.epoch
	current := r.polls
	r.polls = nil

	var kept []*pollWaiter
	for _, w := range current {
		if r.epoch != epoch {
			// cleared by a continuation
			return
		}
		if w.predicate() {
			w.future.resolve(nil)
		} else {
			kept = append(kept, w)
		}
	}
	if r.epoch != epoch {
		return
	}
	// waiters registered by continuations during this tick go after the survivors
	r.polls = append(kept, r.polls...)
}

// ResolveEvent resolves the oldest waiter queued under name with data.
// It returns false, doing nothing, when no waiter is queued.
func (r *Resolver) ResolveEvent(name string, data any) bool {
	queue := r.events[name]
	if len(queue) == 0 {
		return false
	}
	f := queue[0]
	if len(queue) == 1 {
		delete(r.events, name)
	} else {
		r.events[name] = queue[1:]
	}
	f.resolve(data)
	return true
}

// HasPending reports whether any poll or event waiter is queued.
func (r *Resolver) HasPending() bool {
	return r.Pending() > 0
}

// Pending returns the number of queued waiters.
func (r *Resolver) Pending() int {
	n := len(r.polls)
	for _, q := range r.events {
		n += len(q)
	}
	return n
}

// Clear drops every queued waiter without resolving it.
func (r *Resolver) Clear() {
	r.polls = nil
	r.events = make(map[string][]*Future)
	r.epoch++
}
