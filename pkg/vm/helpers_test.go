package vm

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/zurustar/jxscript/pkg/script"
)

// memLoader serves script sources from memory.
type memLoader map[string]string

func (l memLoader) Load(path string) (*script.Program, error) {
	src, ok := l[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, script.ErrNotFound)
	}
	return script.ParseProgram(src, path), nil
}

// testEnv bundles a manager with a recording command set.
type testEnv struct {
	m        *Manager
	d        *Dispatcher
	logs     *bytes.Buffer
	messages []string
}

// newTestEnv creates a manager over files with these commands registered:
//
//	ShowMessage(text) / Mark(text)  record text
//	OpenDialog(id)                  blocks until DIALOG_CLOSED
//	Yield                           blocks until the next tick
//	Fail                            returns an error
//	Boom                            panics
//	Return                          finishes the script
func newTestEnv(t *testing.T, files map[string]string, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{logs: &bytes.Buffer{}}
	log := slog.New(slog.NewTextHandler(env.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	env.d = NewDispatcher()
	record := func(ctx *Context, args []string) (*Future, error) {
		if len(args) > 0 {
			env.messages = append(env.messages, args[0])
		}
		return nil, nil
	}
	env.d.Register("ShowMessage", record)
	env.d.Register("Mark", record)
	env.d.Register("OpenDialog", func(ctx *Context, args []string) (*Future, error) {
		return ctx.Resolver().WaitForEvent("DIALOG_CLOSED"), nil
	})
	env.d.Register("Yield", func(ctx *Context, args []string) (*Future, error) {
		polls := 0
		return ctx.Resolver().WaitForCondition(func() bool {
			polls++
			return polls > 1
		}), nil
	})
	env.d.Register("Fail", func(ctx *Context, args []string) (*Future, error) {
		return nil, errors.New("handler failed")
	})
	env.d.Register("Boom", func(ctx *Context, args []string) (*Future, error) {
		panic("boom")
	})
	env.d.Register("Return", func(ctx *Context, args []string) (*Future, error) {
		ctx.Instance.Finish()
		return nil, nil
	})

	all := append([]Option{WithLogger(log)}, opts...)
	env.m = NewManager(script.NewCache(memLoader(files)), env.d, all...)
	return env
}

func (e *testEnv) run(t *testing.T, path string) *Instance {
	t.Helper()
	inst, err := e.m.RunScript(path, "")
	if err != nil {
		t.Fatalf("RunScript(%s) failed: %v", path, err)
	}
	return inst
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
