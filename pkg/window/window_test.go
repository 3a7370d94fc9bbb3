package window

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/zurustar/jxscript/pkg/engine"
	"github.com/zurustar/jxscript/pkg/fileutil"
	"github.com/zurustar/jxscript/pkg/gameapi"
	"github.com/zurustar/jxscript/pkg/script"
	"github.com/zurustar/jxscript/pkg/vm"
)

type fakeMusic struct {
	current string
	playing bool
}

func (f *fakeMusic) Current() string { return f.current }
func (f *fakeMusic) Playing() bool   { return f.playing }

func newTestGame(t *testing.T, files map[string]string, opts ...Option) (*Game, *gameapi.World) {
	t.Helper()

	mfs := fstest.MapFS{}
	for name, src := range files {
		mfs[name] = &fstest.MapFile{Data: []byte(src)}
	}
	fsys, err := fileutil.NewEmbedFS(mfs, ".")
	if err != nil {
		t.Fatal(err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := gameapi.NewWorld()
	w.BlockOnDialog = true
	d := vm.NewDispatcher()
	gameapi.Register(d, w)

	loader := script.NewLoader(fsys, script.WithEncoding("utf-8"), script.WithLogger(log))
	m := vm.NewManager(script.NewCache(loader), d,
		vm.WithConditionEvaluator(w.Condition),
		vm.WithEnv(w),
		vm.WithLogger(log),
	)
	e := engine.NewEngine(m, engine.WithTickInterval(50*time.Millisecond), engine.WithLogger(log))
	e.Start()

	opts = append([]Option{WithWorld(w)}, opts...)
	return NewGame(e, opts...), w
}

func TestLayout(t *testing.T) {
	game, _ := newTestGame(t, nil)

	width, height := game.Layout(0, 0)
	if width != 800 || height != 600 {
		t.Errorf("expected 800x600, got %dx%d", width, height)
	}

	game, _ = newTestGame(t, nil, WithSize(1024, 768))
	width, height = game.Layout(320, 240)
	if width != 1024 || height != 768 {
		t.Errorf("expected 1024x768, got %dx%d", width, height)
	}
}

func TestHandleInput_ConfirmClosesDialog(t *testing.T) {
	game, w := newTestGame(t, map[string]string{
		"main.txt": "Talk(\"Bob\", \"hello\");\nSay(\"after\");",
	})
	m := game.engine.Manager()
	inst, err := m.RunScript("main.txt", "")
	if err != nil {
		t.Fatal(err)
	}

	game.engine.Update()
	game.engine.Update()
	if inst.Status() != vm.StatusBlocked {
		t.Fatalf("expected blocked on dialog, got %s", inst.Status())
	}

	game.HandleInput(Input{Confirm: true})
	game.engine.Update()

	if inst.Status() != vm.StatusCompleted {
		t.Errorf("expected completed after confirm, got %s", inst.Status())
	}
	msgs := w.Messages()
	if len(msgs) != 2 || msgs[1].Text != "after" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
}

func TestHandleInput_Click(t *testing.T) {
	game, _ := newTestGame(t, map[string]string{
		"main.txt": "WaitEvent(CLICK);",
	})
	inst, _ := game.engine.Manager().RunScript("main.txt", "")
	game.engine.Update()

	// no input, no event
	game.HandleInput(Input{})
	game.engine.Update()
	if inst.Status() != vm.StatusBlocked {
		t.Fatalf("expected blocked, got %s", inst.Status())
	}

	game.HandleInput(Input{Click: true})
	game.engine.Update()
	if inst.Status() != vm.StatusCompleted {
		t.Errorf("expected completed after click, got %s", inst.Status())
	}
}

func TestHandleInput_EscapeTerminates(t *testing.T) {
	game, _ := newTestGame(t, nil)

	game.HandleInput(Input{Escape: true})

	if !game.engine.IsTerminated() {
		t.Error("expected engine terminated after Escape")
	}
	if err := game.engine.Update(); err != engine.ErrTerminated {
		t.Errorf("expected ErrTerminated, got %v", err)
	}
}

func TestStatusLines(t *testing.T) {
	music := &fakeMusic{current: "bgm/town.mid", playing: true}
	game, _ := newTestGame(t, map[string]string{
		"main.txt": "Say(\"one\");\nTalk(\"Ann\", \"two\");",
		"bg.txt":   "WaitEvent(NEVER);",
	}, WithMusic(music))

	lines := game.StatusLines()
	if !strings.HasPrefix(lines[0].Text, "clock 0s") {
		t.Errorf("unexpected header %q", lines[0].Text)
	}
	if lines[1].Text != "no running scripts" {
		t.Errorf("expected idle line, got %q", lines[1].Text)
	}

	m := game.engine.Manager()
	m.RunScript("main.txt", "")
	m.RunParallelScript("bg.txt", time.Second, "")
	game.engine.Update()

	var all []string
	highlighted := 0
	for _, l := range game.StatusLines() {
		all = append(all, l.Text)
		if l.Highlight {
			highlighted++
		}
	}
	joined := strings.Join(all, "\n")

	for _, want := range []string{
		"clock 50ms  frames 1",
		"main main.txt pc=1 line=2 blocked",
		"1 parallel script(s) scheduled",
		"music bgm/town.mid (playing)",
		"one",
		"Ann: two",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("status lines missing %q:\n%s", want, joined)
		}
	}
	if highlighted != 1 {
		t.Errorf("expected 1 highlighted line, got %d", highlighted)
	}
}

func TestStatusLines_MessageHistoryIsBounded(t *testing.T) {
	game, w := newTestGame(t, nil)
	for i := 0; i < 20; i++ {
		w.Say(gameapi.Message{Text: "msg"})
	}

	count := 0
	for _, l := range game.StatusLines() {
		if l.Text == "msg" {
			count++
		}
	}
	if count != shownMessage {
		t.Errorf("expected %d messages shown, got %d", shownMessage, count)
	}
}
