package audio

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/zurustar/jxscript/pkg/fileutil"
	"github.com/zurustar/jxscript/pkg/script"
	"github.com/zurustar/jxscript/pkg/vm"
)

// oneNoteMIDI is a format-0 file with one 960-tick note at 480 PPQ (one second at 120 BPM).
var oneNoteMIDI = []byte{
	'M', 'T', 'h', 'd', 0x00, 0x00, 0x00, 0x06,
	0x00, 0x00, // format 0
	0x00, 0x01, // one track
	0x01, 0xE0, // 480 PPQ
	'M', 'T', 'r', 'k', 0x00, 0x00, 0x00, 0x0D,
	0x00, 0x90, 0x3C, 0x40, // note on
	0x87, 0x40, 0x80, 0x3C, 0x40, // +960 note off
	0x00, 0xFF, 0x2F, 0x00, // end of track
}

type fakeClock struct{ now time.Duration }

func (c *fakeClock) Now() time.Duration { return c.now }

func newTestFS(t *testing.T) fileutil.FileSystem {
	t.Helper()
	fsys, err := fileutil.NewEmbedFS(fstest.MapFS{
		"bgm/Town.mid": &fstest.MapFile{Data: oneNoteMIDI},
		"bgm/bad.mid":  &fstest.MapFile{Data: []byte("not midi")},
		"scene.txt":    &fstest.MapFile{Data: []byte("PlayMusic(\"bgm\\town.mid\");\nWaitMusic;\nShowMessage(\"after\");")},
	}, ".")
	if err != nil {
		t.Fatal(err)
	}
	return fsys
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMusic_PlayKeepsTime(t *testing.T) {
	clock := &fakeClock{}
	m := NewMusic(newTestFS(t), clock.Now, WithLogger(discard()))

	if err := m.Play("BGM/town.MID"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if m.Length() <= 0 {
		t.Fatalf("expected a positive length, got %s", m.Length())
	}
	if !m.Playing() || m.Current() != "BGM/town.MID" {
		t.Errorf("expected playing BGM/town.MID, got %v %q", m.Playing(), m.Current())
	}

	clock.now = m.Length() - time.Millisecond
	if !m.Playing() {
		t.Error("expected still playing just before the end")
	}
	clock.now = m.Length()
	if m.Playing() || m.Current() != "" {
		t.Error("expected playback finished at the track length")
	}
}

func TestMusic_Stop(t *testing.T) {
	clock := &fakeClock{}
	m := NewMusic(newTestFS(t), clock.Now, WithLogger(discard()))

	if err := m.Play("bgm/town.mid"); err != nil {
		t.Fatal(err)
	}
	m.Stop()
	if m.Playing() {
		t.Error("expected stopped")
	}
}

func TestMusic_PlayErrors(t *testing.T) {
	m := NewMusic(newTestFS(t), (&fakeClock{}).Now, WithLogger(discard()))

	if err := m.Play("bgm/missing.mid"); !errors.Is(err, ErrMIDIFileNotFound) {
		t.Errorf("expected ErrMIDIFileNotFound, got %v", err)
	}
	if err := m.Play("bgm/bad.mid"); !errors.Is(err, ErrMIDIInvalidFormat) {
		t.Errorf("expected ErrMIDIInvalidFormat, got %v", err)
	}
}

func TestFindSoundFont(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
		found bool
	}{
		{"none", fstest.MapFS{"a.txt": &fstest.MapFile{}}, "", false},
		{"root", fstest.MapFS{DefaultSoundFontName: &fstest.MapFile{}}, DefaultSoundFontName, true},
		{"soundfonts directory wins", fstest.MapFS{
			DefaultSoundFontName:                 &fstest.MapFile{},
			"soundfonts/" + DefaultSoundFontName: &fstest.MapFile{},
		}, "soundfonts/" + DefaultSoundFontName, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys, err := fileutil.NewEmbedFS(tt.files, ".")
			if err != nil {
				t.Fatal(err)
			}
			got, ok := FindSoundFont(fsys)
			if got != tt.want || ok != tt.found {
				t.Errorf("FindSoundFont() = %q, %v; want %q, %v", got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestLoadSoundFontFS_Errors(t *testing.T) {
	fsys := newTestFS(t)
	if _, err := LoadSoundFontFS(fsys, "missing.sf2"); !errors.Is(err, ErrSoundFontNotFound) {
		t.Errorf("expected ErrSoundFontNotFound, got %v", err)
	}
	if _, err := LoadSoundFontFS(fsys, "bgm/bad.mid"); err == nil {
		t.Error("expected a parse error")
	}
}

func TestWaitMusicBlocksScript(t *testing.T) {
	fsys := newTestFS(t)
	log := discard()

	d := vm.NewDispatcher()
	var messages []string
	d.Register("ShowMessage", func(ctx *vm.Context, args []string) (*vm.Future, error) {
		messages = append(messages, args[0])
		return nil, nil
	})

	cache := script.NewCache(script.NewLoader(fsys, script.WithEncoding("utf-8"), script.WithLogger(log)))
	mgr := vm.NewManager(cache, d, vm.WithLogger(log))
	music := NewMusic(fsys, mgr.Clock, WithLogger(log))
	Register(d, music)

	inst, err := mgr.RunScript("scene.txt", "")
	if err != nil {
		t.Fatal(err)
	}

	const tick = 100 * time.Millisecond
	mgr.Tick(tick)
	if inst.Status() != vm.StatusBlocked {
		t.Fatalf("expected blocked on WaitMusic, got %s (%v)", inst.Status(), inst.Err())
	}

	for i := 0; i < 100 && !inst.Done(); i++ {
		mgr.Tick(tick)
	}

	if len(messages) != 1 || messages[0] != "after" {
		t.Fatalf("expected the script to resume after the track, got %v", messages)
	}
	if mgr.Clock() < tick+music.Length() {
		t.Errorf("resumed at %s, before the track ended at %s", mgr.Clock(), tick+music.Length())
	}
}
