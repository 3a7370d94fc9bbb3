package gameapi

import (
	"fmt"
	"time"

	"github.com/zurustar/jxscript/pkg/vm"
)

// Register installs the reference command set on d.
func Register(d *vm.Dispatcher, w *World) {
	w.registerVariables(d)
	w.registerMessages(d)
	w.registerFlow(d)
	w.registerScripts(d)
}

func requireArgs(name string, args []string, n int) error {
	if len(args) < n {
		return fmt.Errorf("%s expects at least %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func (w *World) registerVariables(d *vm.Dispatcher) {
	// Assign(name, value): value may reference another variable
	d.Register("Assign", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		if err := requireArgs("Assign", args, 2); err != nil {
			return nil, err
		}
		w.Set(args[0], w.operand(args[1]))
		return nil, nil
	})

	// Add(name, n) / Sub(name, n)
	arith := func(name string, sign int) vm.Handler {
		return func(ctx *vm.Context, args []string) (*vm.Future, error) {
			if err := requireArgs(name, args, 2); err != nil {
				return nil, err
			}
			n, ok := toInt(w.operand(args[1]))
			if !ok {
				return nil, fmt.Errorf("%s: not an integer: %q", name, args[1])
			}
			cur, ok := toInt(w.operand("$" + varKey(args[0])))
			if !ok {
				return nil, fmt.Errorf("%s: variable %s is not an integer", name, varKey(args[0]))
			}
			w.SetInt(args[0], cur+sign*n)
			return nil, nil
		}
	}
	d.Register("Add", arith("Add", 1))
	d.Register("Sub", arith("Sub", -1))
}

func (w *World) registerMessages(d *vm.Dispatcher) {
	say := func(ctx *vm.Context, args []string) (*vm.Future, error) {
		if err := requireArgs("Say", args, 1); err != nil {
			return nil, err
		}
		w.Say(Message{Text: w.Expand(args[0]), File: ctx.Instance.Path(), Line: ctx.Line})
		return nil, nil
	}
	d.Register("Say", say)
	d.Register("ShowMessage", say)

	// Talk(who, text): blocks on EventDialogClosed when BlockOnDialog is set
	d.Register("Talk", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		if err := requireArgs("Talk", args, 2); err != nil {
			return nil, err
		}
		w.Say(Message{
			Speaker: w.Expand(args[0]),
			Text:    w.Expand(args[1]),
			File:    ctx.Instance.Path(),
			Line:    ctx.Line,
		})
		if !w.BlockOnDialog {
			return nil, nil
		}
		return ctx.Resolver().WaitForEvent(EventDialogClosed), nil
	})
}

func (w *World) registerFlow(d *vm.Dispatcher) {
	// Sleep(ms): waits for in-game time, not wall-clock time
	d.Register("Sleep", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		if err := requireArgs("Sleep", args, 1); err != nil {
			return nil, err
		}
		ms, ok := toInt(w.operand(args[0]))
		if !ok {
			return nil, fmt.Errorf("Sleep: not an integer: %q", args[0])
		}
		m := ctx.Manager
		until := m.Clock() + time.Duration(ms)*time.Millisecond
		return ctx.Resolver().WaitForCondition(func() bool {
			return m.Clock() >= until
		}), nil
	})

	// WaitEvent(name)
	d.Register("WaitEvent", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		if err := requireArgs("WaitEvent", args, 1); err != nil {
			return nil, err
		}
		return ctx.Resolver().WaitForEvent(args[0]), nil
	})

	// FireEvent(name[, data]): wakes the oldest waiter in every script
	d.Register("FireEvent", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		if err := requireArgs("FireEvent", args, 1); err != nil {
			return nil, err
		}
		var data any
		if len(args) > 1 {
			data = w.operand(args[1])
		}
		n := ctx.Manager.BroadcastEvent(args[0], data)
		ctx.Log().Debug("Event fired", "event", args[0], "resolved", n)
		return nil, nil
	})

	// Return: ends the current script
	d.Register("Return", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		ctx.Instance.Finish()
		return nil, nil
	})
}

func (w *World) registerScripts(d *vm.Dispatcher) {
	// RunScript(path): runs a script to completion before continuing
	d.Register("RunScript", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		if err := requireArgs("RunScript", args, 1); err != nil {
			return nil, err
		}
		child, err := ctx.Manager.RunScript(args[0], ctx.Instance.Owner())
		if err != nil {
			return nil, err
		}
		return ctx.Resolver().WaitForCondition(child.Done), nil
	})

	// RunParallelScript(path[, delayMs])
	d.Register("RunParallelScript", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		if err := requireArgs("RunParallelScript", args, 1); err != nil {
			return nil, err
		}
		delay := 0
		if len(args) > 1 {
			n, ok := toInt(w.operand(args[1]))
			if !ok {
				return nil, fmt.Errorf("RunParallelScript: not an integer: %q", args[1])
			}
			delay = n
		}
		_, err := ctx.Manager.RunParallelScript(args[0], time.Duration(delay)*time.Millisecond, ctx.Instance.Owner())
		return nil, err
	})

	// StopParallelScript(path)
	d.Register("StopParallelScript", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		if err := requireArgs("StopParallelScript", args, 1); err != nil {
			return nil, err
		}
		ctx.Manager.StopParallel(args[0])
		return nil, nil
	})
}
