package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestRealFS_ResolveCaseInsensitive(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(tmpDir, "Script", "Map"), 0755); err != nil {
		t.Fatalf("Failed to create test dir: %v", err)
	}
	files := []string{
		filepath.Join("Script", "Map", "Trap01.TXT"),
		filepath.Join("Script", "common.txt"),
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, f), []byte("Say(1);"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	fsys := NewRealFS(tmpDir)

	tests := []struct {
		name     string
		search   string
		expected string
		found    bool
	}{
		{"exact match", "Script/common.txt", "Script/common.txt", true},
		{"uppercase search", "SCRIPT/COMMON.TXT", "Script/common.txt", true},
		{"backslash separators", `script\map\trap01.txt`, "Script/Map/Trap01.TXT", true},
		{"leading slash", "/script/map/TRAP01.txt", "Script/Map/Trap01.TXT", true},
		{"missing file", "script/none.txt", "", false},
		{"missing directory", "nowhere/common.txt", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fsys.Resolve(tt.search)
			if !tt.found {
				if !errors.Is(err, ErrNotExist) {
					t.Errorf("expected ErrNotExist, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestEmbedFS_ReadFile(t *testing.T) {
	mem := fstest.MapFS{
		"titles/demo/SCRIPT/Begin.txt": {Data: []byte("@Start:\n")},
	}

	fsys, err := NewEmbedFS(mem, "titles/demo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fsys.IsEmbedded() {
		t.Error("EmbedFS should report IsEmbedded")
	}

	data, err := fsys.ReadFile("script/begin.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "@Start:\n" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		`script\a.txt`:   "script/a.txt",
		"./script/a.txt": "script/a.txt",
		"/a.txt":         "a.txt",
		"":               ".",
		"a/../b.txt":     "b.txt",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
