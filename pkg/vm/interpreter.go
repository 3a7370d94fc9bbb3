package vm

import (
	"fmt"

	"github.com/zurustar/jxscript/pkg/script"
)

// step advances one instance for the current tick.
//
// Labels, jumps and synchronous commands do not end the step; the instance keeps
// executing until a handler returns a pending future, the program ends, or the
// per-tick instruction cap is reached.
func (m *Manager) step(inst *Instance) {
	if inst.status == StatusBlocked {
		if inst.pending != nil && !inst.pending.Done() {
			return
		}
		inst.pending = nil
		inst.pc++
		inst.status = StatusRunning
	}
	if inst.status != StatusRunning {
		return
	}

	prog := inst.program
	for ops := 0; ; ops++ {
		if inst.pc >= prog.Len() {
			inst.status = StatusCompleted
			m.log.Debug("Script completed", "id", inst.id, "path", inst.path)
			return
		}

		ins := prog.At(inst.pc)
		code := &ins
		if ops >= m.maxOps {
			m.abort(inst, code, fmt.Errorf("%w (%d)", ErrRunaway, m.maxOps))
			return
		}

		m.observer.OnLineExecuted(inst.path, code.LineNumber)

		switch {
		case code.IsLabel:
			inst.pc++

		case code.IsGoto || code.Name == "Goto":
			target := ""
			if len(code.Parameters) > 0 {
				target = code.Parameters[0]
			}
			if !m.jump(inst, code, target) {
				return
			}

		case code.Name == "If":
			ok, err := m.evaluate(inst, code)
			if err != nil {
				m.abort(inst, code, err)
				return
			}
			if !ok {
				inst.pc++
				continue
			}
			if !m.jump(inst, code, code.Result) {
				return
			}

		default:
			future, err := m.dispatch(inst, code)
			if err != nil {
				m.abort(inst, code, err)
				return
			}
			if inst.status.Terminal() {
				// the handler finished or cancelled its own script
				return
			}
			if future != nil && !future.Done() {
				inst.status = StatusBlocked
				inst.pending = future
				return
			}
			inst.pc++
		}
	}
}

// jump moves the program counter to target. An unknown label is fatal for the
// instance and jump reports false.
func (m *Manager) jump(inst *Instance, code *script.Instruction, target string) bool {
	idx, ok := inst.program.Label(target)
	if !ok {
		m.abort(inst, code, fmt.Errorf("%w: %q", ErrUnknownLabel, target))
		return false
	}
	inst.pc = idx
	return true
}

func (m *Manager) evaluate(inst *Instance, code *script.Instruction) (result bool, err error) {
	if m.condition == nil {
		return false, ErrNoCondition
	}
	expr := ""
	if len(code.Parameters) > 0 {
		expr = code.Parameters[0]
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()

	ctx := &Context{Instance: inst, Manager: m, Line: code.LineNumber, Env: m.env}
	result, err = m.condition(ctx, expr)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition %q: %w", expr, err)
	}
	return result, nil
}

// dispatch calls the handler registered for the instruction. Unknown commands are
// logged and skipped. Panics are converted to errors so that only the calling
// instance fails.
func (m *Manager) dispatch(inst *Instance, code *script.Instruction) (future *Future, err error) {
	h, ok := m.dispatcher.Lookup(code.Name)
	if !ok {
		m.log.Warn("Unknown command, skipping", "command", code.Name, "file", inst.path, "line", code.LineNumber)
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			future = nil
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, code.Name, r)
		}
	}()

	// code is a copy, handlers may keep or modify the arguments
	ctx := &Context{Instance: inst, Manager: m, Line: code.LineNumber, Env: m.env}
	future, err = h(ctx, code.Parameters)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", code.Name, err)
	}
	return future, nil
}

// abort cancels the instance with a located script error.
func (m *Manager) abort(inst *Instance, code *script.Instruction, err error) {
	serr := &ScriptError{
		File:    inst.path,
		Line:    code.LineNumber,
		Literal: code.Literal,
		Err:     err,
	}
	m.log.Error("Script aborted", "id", inst.id, "file", serr.File, "line", serr.Line, "literal", serr.Literal, "error", err)
	inst.cancel(serr)
}

// recoverInstance aborts inst when a wait predicate or a future continuation
// panics outside of dispatch. It must be deferred directly.
func (m *Manager) recoverInstance(inst *Instance) {
	r := recover()
	if r == nil {
		return
	}
	var code script.Instruction
	if inst.pc >= 0 && inst.pc < inst.program.Len() {
		code = inst.program.At(inst.pc)
	}
	m.abort(inst, &code, fmt.Errorf("%w: %v", ErrHandlerPanic, r))
}
