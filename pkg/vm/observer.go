package vm

// Observer receives debug notifications from the manager. Observers are read-only:
// nothing they do affects script control flow.
type Observer interface {
	// OnScriptStart is called when an instance starts running.
	OnScriptStart(path string, totalInstructions int, literals []string)

	// OnLineExecuted is called for every instruction an instance executes.
	OnLineExecuted(path string, lineNumber int)
}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) OnScriptStart(path string, totalInstructions int, literals []string) {
	for _, obs := range o {
		obs.OnScriptStart(path, totalInstructions, literals)
	}
}

func (o Observers) OnLineExecuted(path string, lineNumber int) {
	for _, obs := range o {
		obs.OnLineExecuted(path, lineNumber)
	}
}

type noopObserver struct{}

func (noopObserver) OnScriptStart(string, int, []string) {}
func (noopObserver) OnLineExecuted(string, int)          {}
