// Package cli はコマンドライン引数・環境変数・設定ファイルを統合して
// 実行時の設定を決定する
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/jxscript/pkg/config"
	"github.com/zurustar/jxscript/pkg/logger"
	"github.com/zurustar/jxscript/pkg/script"
)

// Flags はコマンドラインで明示的に指定された値を保持する
// ゼロ値（空文字列・nil）は「未指定」を意味する
type Flags struct {
	ConfigPath    string         // 設定ファイルのパス
	ScriptRoot    string         // スクリプトのルートディレクトリ
	Encoding      string         // スクリプトの文字コード
	LogLevel      string         // ログレベル（debug, info, warn, error）
	LogFormat     string         // ログ形式（text, pretty）
	TraceDB       string         // 実行トレースを保存するSQLiteファイル
	MaxOpsPerTick int            // 1ティックあたりの命令数上限
	Headless      *bool          // ヘッドレスモード
	Strict        *bool          // 解析できない行をWARNで報告する
	Timeout       *time.Duration // タイムアウト時間（0は無制限）
}

// Getenv は環境変数の取得関数（テストで差し替える）
type Getenv func(string) string

// Resolve 設定ファイル → 環境変数 → コマンドラインフラグの順に適用して設定を決定する
func Resolve(flags Flags, getenv Getenv) (config.Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return cfg, err
	}

	if err := ApplyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	ApplyFlags(&cfg, flags)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv 環境変数からの設定を適用する
// HEADLESS=1|true, TIMEOUT=<秒>, LOG_LEVEL=<level>, JXSCRIPT_ROOT=<dir>
func ApplyEnv(cfg *config.Config, getenv Getenv) error {
	if headlessEnv := getenv("HEADLESS"); headlessEnv != "" {
		cfg.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
	}

	if timeoutEnv := getenv("TIMEOUT"); timeoutEnv != "" {
		t, err := strconv.Atoi(timeoutEnv)
		if err != nil {
			return fmt.Errorf("invalid TIMEOUT: %s", timeoutEnv)
		}
		cfg.Timeout = time.Duration(t) * time.Second
	}

	if logLevelEnv := getenv("LOG_LEVEL"); logLevelEnv != "" {
		cfg.Log.Level = strings.ToLower(logLevelEnv)
	}

	if root := getenv("JXSCRIPT_ROOT"); root != "" {
		cfg.ScriptRoot = root
	}
	return nil
}

// ApplyFlags 明示的に指定されたフラグで設定を上書きする
func ApplyFlags(cfg *config.Config, flags Flags) {
	if flags.ScriptRoot != "" {
		cfg.ScriptRoot = flags.ScriptRoot
	}
	if flags.Encoding != "" {
		cfg.Encoding = flags.Encoding
	}
	if flags.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(flags.LogLevel)
	}
	if flags.LogFormat != "" {
		cfg.Log.Format = strings.ToLower(flags.LogFormat)
	}
	if flags.TraceDB != "" {
		cfg.TraceDB = flags.TraceDB
	}
	if flags.MaxOpsPerTick != 0 {
		cfg.MaxOpsPerTick = flags.MaxOpsPerTick
	}
	if flags.Headless != nil {
		cfg.Headless = *flags.Headless
	}
	if flags.Strict != nil {
		cfg.Strict = *flags.Strict
	}
	if flags.Timeout != nil {
		cfg.Timeout = *flags.Timeout
	}
}

// Validate 設定値を検証する
func Validate(cfg config.Config) error {
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}
	if cfg.Log.Format != logger.FormatText && cfg.Log.Format != logger.FormatPretty {
		return fmt.Errorf("invalid log format: %s (must be text or pretty)", cfg.Log.Format)
	}
	if !script.ValidEncoding(cfg.Encoding) {
		return fmt.Errorf("invalid encoding: %s (must be utf-8, gbk, gb18030, or shift-jis)", cfg.Encoding)
	}
	return cfg.Validate()
}

// ParallelSpec は --parallel で指定された並列スクリプト
type ParallelSpec struct {
	Path  string
	Delay time.Duration
}

// ParseParallel "path@delay" 形式を解析する
// delayは "500ms" や "2s" のほか、単位なしの整数をミリ秒として受け付ける
func ParseParallel(s string) (ParallelSpec, error) {
	path, delay, found := strings.Cut(s, "@")
	path = strings.TrimSpace(path)
	if path == "" {
		return ParallelSpec{}, fmt.Errorf("invalid parallel script %q: empty path", s)
	}
	spec := ParallelSpec{Path: path}
	if !found {
		return spec, nil
	}

	delay = strings.TrimSpace(delay)
	if ms, err := strconv.Atoi(delay); err == nil {
		spec.Delay = time.Duration(ms) * time.Millisecond
	} else {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return ParallelSpec{}, fmt.Errorf("invalid parallel delay %q: %w", delay, err)
		}
		spec.Delay = d
	}
	if spec.Delay < 0 {
		return ParallelSpec{}, fmt.Errorf("parallel delay must be non-negative, got %s", spec.Delay)
	}
	return spec, nil
}
