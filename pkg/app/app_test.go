package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/zurustar/jxscript/pkg/audio"
	"github.com/zurustar/jxscript/pkg/cli"
	"github.com/zurustar/jxscript/pkg/config"
	"github.com/zurustar/jxscript/pkg/fileutil"
)

func newTestFS(t *testing.T, files map[string]string) fileutil.FileSystem {
	t.Helper()
	mfs := fstest.MapFS{}
	for name, src := range files {
		mfs[name] = &fstest.MapFile{Data: []byte(src)}
	}
	fsys, err := fileutil.NewEmbedFS(mfs, ".")
	if err != nil {
		t.Fatal(err)
	}
	return fsys
}

func headlessConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Headless = true
	cfg.Encoding = "utf-8"
	cfg.TPS = 1000
	cfg.Timeout = 5 * time.Second
	return cfg
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestApplication_RunHeadless(t *testing.T) {
	fsys := newTestFS(t, map[string]string{
		"main.txt": "Assign(A, 1);\nSleep(10);\nAdd(A, 2);\nSay(\"A is $A\");\nTalk(\"Bob\", \"no wait in headless\");",
		"bg.txt":   "Say(\"background\");",
	})
	cfg := headlessConfig()
	cfg.TraceDB = ":memory:"

	app, err := New(cfg, WithFileSystem(fsys), WithLogger(discard()))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer app.Close()

	parallels := []cli.ParallelSpec{{Path: "bg.txt", Delay: 5 * time.Millisecond}}
	if err := app.Run(context.Background(), "main.txt", parallels); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if got := app.World().Int("A"); got != 3 {
		t.Errorf("expected A=3, got %d", got)
	}

	var texts []string
	for _, m := range app.World().Messages() {
		texts = append(texts, m.Text)
	}
	want := []string{"background", "A is 3", "no wait in headless"}
	if len(texts) != len(want) {
		t.Fatalf("expected messages %v, got %v", want, texts)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("message %d: expected %q, got %q", i, want[i], texts[i])
		}
	}

	if !app.Manager().Idle() {
		t.Error("expected manager idle after run")
	}
	if app.Manager().Clock() < 10*time.Millisecond {
		t.Errorf("expected at least 10ms of game time, got %s", app.Manager().Clock())
	}

	runs, err := app.Trace().Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 recorded runs, got %d", len(runs))
	}
	lines, err := app.Trace().Lines("main.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 5 {
		t.Errorf("expected 5 executed lines, got %v", lines)
	}
}

func TestApplication_RunMissingScript(t *testing.T) {
	app, err := New(headlessConfig(), WithFileSystem(newTestFS(t, nil)), WithLogger(discard()))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	if err := app.Run(context.Background(), "missing.txt", nil); err == nil {
		t.Error("expected error for missing entry script")
	}
}

func TestApplication_Check(t *testing.T) {
	fsys := newTestFS(t, map[string]string{
		"ok.txt":  "@Start:\nSay(\"hi\");\nGoto @Start;",
		"bad.txt": "Say(\"hi\");\n??? what\n",
	})
	app, err := New(headlessConfig(), WithFileSystem(fsys), WithLogger(discard()))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	results := app.Check([]string{"ok.txt", "bad.txt", "none.txt"})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if r := results[0]; r.Err != nil || r.Instructions != 3 || r.Labels != 1 || len(r.Warnings) != 0 {
		t.Errorf("unexpected result for ok.txt: %+v", r)
	}
	if r := results[1]; r.Err != nil || len(r.Warnings) != 1 || r.Warnings[0].Line != 2 {
		t.Errorf("unexpected result for bad.txt: %+v", r)
	}
	if r := results[2]; r.Err == nil {
		t.Error("expected error for none.txt")
	}

	prog, err := app.Parse("ok.txt")
	if err != nil {
		t.Fatal(err)
	}
	if prog.Len() != 3 {
		t.Errorf("expected 3 instructions, got %d", prog.Len())
	}
}

func TestFindSoundFont(t *testing.T) {
	t.Run("soundfonts directory under script root", func(t *testing.T) {
		root := newTestFS(t, map[string]string{
			"soundfonts/" + audio.DefaultSoundFontName: "RIFF....sfbk",
		})
		loc := findSoundFont(root, "")
		if loc == nil {
			t.Fatal("expected to find SoundFont under the script root")
		}
		if loc.Path != "soundfonts/"+audio.DefaultSoundFontName {
			t.Errorf("unexpected path %s", loc.Path)
		}
		if !loc.FileSystem.IsEmbedded() {
			t.Error("expected the script root file system")
		}
	})

	t.Run("falls back to working directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, audio.DefaultSoundFontName), []byte("RIFF....sfbk"), 0644); err != nil {
			t.Fatal(err)
		}
		loc := findSoundFont(newTestFS(t, nil), dir)
		if loc == nil {
			t.Fatal("expected to find SoundFont in the working directory")
		}
		if loc.FileSystem.IsEmbedded() || loc.Path != audio.DefaultSoundFontName {
			t.Errorf("unexpected location %+v", loc)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if loc := findSoundFont(newTestFS(t, nil), t.TempDir()); loc != nil {
			t.Errorf("expected nil, got %+v", loc)
		}
		_, _, err := loadSoundFont(newTestFS(t, nil), "")
		if !errors.Is(err, audio.ErrSoundFontNotFound) {
			t.Errorf("expected ErrSoundFontNotFound, got %v", err)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		root := newTestFS(t, map[string]string{audio.DefaultSoundFontName: "not a soundfont"})
		_, loc, err := loadSoundFont(root, "")
		if err == nil {
			t.Fatal("expected parse error")
		}
		if loc == nil || loc.Path != audio.DefaultSoundFontName {
			t.Errorf("expected location of the broken file, got %+v", loc)
		}
	})
}
