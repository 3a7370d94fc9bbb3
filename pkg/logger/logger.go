package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

var globalLogger *slog.Logger

// ログ出力形式
const (
	FormatText   = "text"   // slog標準のkey=value形式（stdout）
	FormatPretty = "pretty" // charmbracelet/logによる色付き形式（stderr）
)

// ParseLevel ログレベル文字列をslog.Levelに変換
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// New 指定したWriterに出力するロガーを作成
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	switch format {
	case "", FormatText:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slogLevel,
		})), nil
	case FormatPretty:
		handler := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(slogLevel),
			ReportTimestamp: true,
			Prefix:          "jxscript",
		})
		return slog.New(handler), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
}

// InitLogger ログレベルと出力形式に応じてslogを初期化
func InitLogger(level, format string) error {
	var w io.Writer = os.Stdout
	if format == FormatPretty {
		w = os.Stderr
	}

	l, err := New(w, level, format)
	if err != nil {
		return err
	}

	globalLogger = l
	slog.SetDefault(globalLogger)

	return nil
}

// GetLogger グローバルロガーを取得
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		// デフォルトロガーを返す
		return slog.Default()
	}
	return globalLogger
}
