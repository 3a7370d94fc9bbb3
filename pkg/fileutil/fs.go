// Package fileutil provides unified, case-insensitive access to script files on disk
// or in an embedded file system.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// ErrNotExist はファイルが見つからない場合に返される
var ErrNotExist = fs.ErrNotExist

// FileSystem は実ファイルシステムと埋め込みファイルシステムを統一的に扱うインターフェース
type FileSystem interface {
	// ReadFile はファイルの内容を読み込む（大文字小文字を無視）
	ReadFile(name string) ([]byte, error)
	// Resolve は大文字小文字を無視してファイルを検索し、実際のパスを返す
	Resolve(name string) (string, error)
	// WalkDir はroot以下を再帰的に走査する
	WalkDir(root string, fn fs.WalkDirFunc) error
	// BasePath はベースパスを返す
	BasePath() string
	// IsEmbedded は埋め込みファイルシステムかどうかを返す
	IsEmbedded() bool
}

// dirFS はfs.FSの上に大文字小文字を無視したアクセスを提供する
type dirFS struct {
	fsys     fs.FS
	basePath string
	embedded bool
}

// RealFS は実ファイルシステムへのアクセスを提供する
type RealFS struct{ dirFS }

// NewRealFS は実ファイルシステム用のFileSystemを作成する
func NewRealFS(basePath string) *RealFS {
	if basePath == "" {
		basePath = "."
	}
	return &RealFS{dirFS{fsys: os.DirFS(basePath), basePath: basePath}}
}

// EmbedFS は埋め込みファイルシステムへのアクセスを提供する
type EmbedFS struct{ dirFS }

// NewEmbedFS は埋め込みファイルシステム用のFileSystemを作成する
func NewEmbedFS(fsys fs.FS, basePath string) (*EmbedFS, error) {
	sub := fsys
	if basePath != "" && basePath != "." {
		var err error
		sub, err = fs.Sub(fsys, basePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded base %s: %w", basePath, err)
		}
	}
	return &EmbedFS{dirFS{fsys: sub, basePath: basePath, embedded: true}}, nil
}

func (d *dirFS) ReadFile(name string) ([]byte, error) {
	actual, err := d.Resolve(name)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(d.fsys, actual)
}

// Resolve はパスの各要素を大文字小文字を無視して解決する
func (d *dirFS) Resolve(name string) (string, error) {
	clean := NormalizePath(name)
	if clean == "." {
		return "", fmt.Errorf("empty path: %w", ErrNotExist)
	}

	// まず直接アクセスを試みる
	if _, err := fs.Stat(d.fsys, clean); err == nil {
		return clean, nil
	}

	dir := "."
	for _, part := range strings.Split(clean, "/") {
		found, err := FindFileCaseInsensitiveFS(d.fsys, dir, part)
		if err != nil {
			return "", err
		}
		dir = found
	}
	return dir, nil
}

func (d *dirFS) WalkDir(root string, fn fs.WalkDirFunc) error {
	return fs.WalkDir(d.fsys, NormalizePath(root), fn)
}

func (d *dirFS) BasePath() string {
	return d.basePath
}

func (d *dirFS) IsEmbedded() bool {
	return d.embedded
}

// NormalizePath はスクリプト内のパス表記をfs.FS形式に揃える
// "\" 区切り、先頭の "/" や "./" を除去する
func NormalizePath(name string) string {
	p := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "."
	}
	return path.Clean(p)
}

// FindFileCaseInsensitiveFS searches dir for an entry whose name matches filename,
// ignoring case. Script data written on case-insensitive file systems routinely
// refers to "Map\NPC.TXT" while the file on disk is "map/npc.txt".
//
// Returns the matched path in fs.FS form ("dir/Name") or an error wrapping
// ErrNotExist when nothing matches.
func FindFileCaseInsensitiveFS(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("directory not found: %s: %w", dir, ErrNotExist)
		}
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if strings.EqualFold(entry.Name(), filename) {
			if dir == "." {
				return entry.Name(), nil
			}
			return dir + "/" + entry.Name(), nil
		}
	}

	return "", fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, ErrNotExist)
}
