package vm

// Future is the result of a suspension point. It is resolved at most once, either
// synchronously by the call that created it or later by Resolver.Tick or
// Resolver.ResolveEvent. Futures are not safe for concurrent use; they belong to
// the single goroutine that drives the Manager.
type Future struct {
	done      bool
	value     any
	callbacks []func(any)
}

func newFuture() *Future {
	return &Future{}
}

// Resolved returns a future that is already complete with value.
func Resolved(value any) *Future {
	return &Future{done: true, value: value}
}

// Done reports whether the future has been resolved.
func (f *Future) Done() bool {
	return f.done
}

// Value returns the resolution value, or nil while the future is pending.
func (f *Future) Value() any {
	return f.value
}

// Then registers fn to run with the resolution value. If the future is already
// resolved, fn runs immediately.
func (f *Future) Then(fn func(any)) *Future {
	if f.done {
		fn(f.value)
		return f
	}
	f.callbacks = append(f.callbacks, fn)
	return f
}

func (f *Future) resolve(value any) {
	if f.done {
		return
	}
	f.done = true
	f.value = value
	callbacks := f.callbacks
	f.callbacks = nil
	for _, fn := range callbacks {
		fn(value)
	}
}
