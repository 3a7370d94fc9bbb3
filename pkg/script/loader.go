// Package script parses line-oriented game-event scripts into immutable programs
// and loads them from a file system with the configured text encoding.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zurustar/jxscript/pkg/fileutil"
	"github.com/zurustar/jxscript/pkg/logger"
)

// ErrNotFound はスクリプトファイルが存在しない場合に返される
var ErrNotFound = errors.New("script not found")

// Loader はスクリプトファイルの読み込みと解析を行う
type Loader struct {
	fs       fileutil.FileSystem
	encoding string
	strict   bool
	log      *slog.Logger
}

// LoaderOption はLoaderの設定オプション
type LoaderOption func(*Loader)

// WithEncoding スクリプトファイルの文字コードを指定する（utf-8, gbk, gb18030, shift-jis）
func WithEncoding(name string) LoaderOption {
	return func(l *Loader) {
		l.encoding = strings.ToLower(name)
	}
}

// WithStrict 解析できない行をWARNで報告する
func WithStrict(strict bool) LoaderOption {
	return func(l *Loader) {
		l.strict = strict
	}
}

// WithLogger ロガーを指定する
func WithLogger(log *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.log = log
	}
}

// NewLoader Loaderを作成
func NewLoader(fsys fileutil.FileSystem, opts ...LoaderOption) *Loader {
	l := &Loader{
		fs:       fsys,
		encoding: "utf-8",
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load スクリプトを読み込んでProgramを返す
func (l *Loader) Load(path string) (*Program, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fileutil.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}

	content, err := Decode(data, l.encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to decode script %s: %w", path, err)
	}

	prog := ParseProgram(content, fileutil.NormalizePath(path))
	for _, w := range prog.Warnings() {
		if l.strict {
			l.log.Warn("Unrecognized script line", "file", prog.FileName, "line", w.Line, "text", w.Text)
		} else {
			l.log.Debug("Unrecognized script line", "file", prog.FileName, "line", w.Line, "text", w.Text)
		}
	}
	l.log.Debug("Script parsed", "file", prog.FileName, "instructions", prog.Len(), "labels", len(prog.labels))

	return prog, nil
}

// Decode 指定された文字コードからUTF-8に変換する
// BOM付きのUTF-8/UTF-16は文字コード指定よりBOMを優先する
func Decode(data []byte, name string) (string, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return "", err
	}

	decoder := unicode.BOMOverride(enc.NewDecoder())
	reader := transform.NewReader(bytes.NewReader(data), decoder)
	utf8Data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return string(utf8Data), nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "gbk", "gb2312", "cp936":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	case "shift-jis", "shiftjis", "sjis":
		return japanese.ShiftJIS, nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", name)
	}
}

// ValidEncoding reports whether name is an encoding the loader understands.
func ValidEncoding(name string) bool {
	_, err := lookupEncoding(name)
	return err == nil
}
