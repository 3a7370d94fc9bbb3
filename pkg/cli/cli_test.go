package cli

import (
	"os"
	"testing"
	"time"

	"github.com/zurustar/jxscript/pkg/config"
)

func envMap(m map[string]string) Getenv {
	return func(key string) string { return m[key] }
}

func boolPtr(b bool) *bool { return &b }

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg config.Config)
	}{
		{
			name: "環境変数なし",
			env:  map[string]string{},
			check: func(t *testing.T, cfg config.Config) {
				if cfg != config.DefaultConfig() {
					t.Errorf("expected defaults, got %+v", cfg)
				}
			},
		},
		{
			name: "HEADLESS=1",
			env:  map[string]string{"HEADLESS": "1"},
			check: func(t *testing.T, cfg config.Config) {
				if !cfg.Headless {
					t.Error("expected headless")
				}
			},
		},
		{
			name: "HEADLESS=TRUE",
			env:  map[string]string{"HEADLESS": "TRUE"},
			check: func(t *testing.T, cfg config.Config) {
				if !cfg.Headless {
					t.Error("expected headless")
				}
			},
		},
		{
			name: "TIMEOUTは秒数",
			env:  map[string]string{"TIMEOUT": "15"},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Timeout != 15*time.Second {
					t.Errorf("expected 15s, got %s", cfg.Timeout)
				}
			},
		},
		{
			name: "LOG_LEVELは小文字化",
			env:  map[string]string{"LOG_LEVEL": "DEBUG"},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Log.Level != "debug" {
					t.Errorf("expected debug, got %s", cfg.Log.Level)
				}
			},
		},
		{
			name: "JXSCRIPT_ROOT",
			env:  map[string]string{"JXSCRIPT_ROOT": "/data/script"},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.ScriptRoot != "/data/script" {
					t.Errorf("expected /data/script, got %s", cfg.ScriptRoot)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			if err := ApplyEnv(&cfg, envMap(tt.env)); err != nil {
				t.Fatalf("ApplyEnv failed: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestApplyEnv_InvalidTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := ApplyEnv(&cfg, envMap(map[string]string{"TIMEOUT": "soon"})); err == nil {
		t.Error("expected an error for a non-numeric TIMEOUT")
	}
}

func TestResolve_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	testChdir(t, t.TempDir())

	env := envMap(map[string]string{
		"HEADLESS":  "1",
		"TIMEOUT":   "30",
		"LOG_LEVEL": "warn",
	})
	flags := Flags{
		LogLevel:      "error",
		Encoding:      "utf-8",
		MaxOpsPerTick: 50,
		Headless:      boolPtr(false),
		Timeout:       durationPtr(2 * time.Second),
		Strict:        boolPtr(true),
	}

	cfg, err := Resolve(flags, env)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if cfg.Log.Level != "error" {
		t.Errorf("expected flag log level, got %s", cfg.Log.Level)
	}
	if cfg.Headless {
		t.Error("expected flag to disable headless")
	}
	if cfg.Timeout != 2*time.Second {
		t.Errorf("expected flag timeout, got %s", cfg.Timeout)
	}
	if cfg.Encoding != "utf-8" || cfg.MaxOpsPerTick != 50 || !cfg.Strict {
		t.Errorf("expected flags applied, got %+v", cfg)
	}
}

func TestResolve_EnvWithoutFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	testChdir(t, t.TempDir())

	cfg, err := Resolve(Flags{}, envMap(map[string]string{"HEADLESS": "true", "TIMEOUT": "3"}))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !cfg.Headless || cfg.Timeout != 3*time.Second {
		t.Errorf("expected env values, got headless=%v timeout=%s", cfg.Headless, cfg.Timeout)
	}
}

func TestResolve_Invalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	testChdir(t, t.TempDir())

	tests := []struct {
		name  string
		flags Flags
		env   map[string]string
	}{
		{"無効なログレベル", Flags{LogLevel: "verbose"}, nil},
		{"無効なログ形式", Flags{LogFormat: "json"}, nil},
		{"無効な文字コード", Flags{Encoding: "latin9"}, nil},
		{"負のタイムアウト", Flags{Timeout: durationPtr(-time.Second)}, nil},
		{"無効な環境変数", Flags{}, map[string]string{"LOG_LEVEL": "loud"}},
		{"存在しない設定ファイル", Flags{ConfigPath: "/nonexistent/jxscript.yaml"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Resolve(tt.flags, envMap(tt.env)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseParallel(t *testing.T) {
	tests := []struct {
		input    string
		expected ParallelSpec
		wantErr  bool
	}{
		{"npc/guard.txt", ParallelSpec{Path: "npc/guard.txt"}, false},
		{"npc/guard.txt@500", ParallelSpec{Path: "npc/guard.txt", Delay: 500 * time.Millisecond}, false},
		{"trap.txt@2s", ParallelSpec{Path: "trap.txt", Delay: 2 * time.Second}, false},
		{" trap.txt @ 150ms ", ParallelSpec{Path: "trap.txt", Delay: 150 * time.Millisecond}, false},
		{"@100", ParallelSpec{}, true},
		{"trap.txt@soon", ParallelSpec{}, true},
		{"trap.txt@-5", ParallelSpec{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseParallel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseParallel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParseParallel(%q) = %+v, want %+v", tt.input, got, tt.expected)
			}
		})
	}
}

// testChdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func testChdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
