package audio

import (
	"fmt"

	"github.com/zurustar/jxscript/pkg/vm"
)

// Register installs the music commands on d.
func Register(d *vm.Dispatcher, m *Music) {
	// PlayMusic(path)
	d.Register("PlayMusic", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("PlayMusic expects a file name")
		}
		return nil, m.Play(args[0])
	})

	// StopMusic
	d.Register("StopMusic", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		m.Stop()
		return nil, nil
	})

	// WaitMusic: blocks until the current track ends
	d.Register("WaitMusic", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		return ctx.Resolver().WaitForCondition(func() bool {
			return !m.Playing()
		}), nil
	})
}
