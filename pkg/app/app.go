// Package app はスクリプトランタイムの各部品を組み立てて実行する
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	ebaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/zurustar/jxscript/pkg/audio"
	"github.com/zurustar/jxscript/pkg/cli"
	"github.com/zurustar/jxscript/pkg/config"
	"github.com/zurustar/jxscript/pkg/engine"
	"github.com/zurustar/jxscript/pkg/fileutil"
	"github.com/zurustar/jxscript/pkg/gameapi"
	"github.com/zurustar/jxscript/pkg/logger"
	"github.com/zurustar/jxscript/pkg/script"
	"github.com/zurustar/jxscript/pkg/tracestore"
	"github.com/zurustar/jxscript/pkg/vm"
	"github.com/zurustar/jxscript/pkg/window"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	cfg config.Config
	log *slog.Logger
	fs  fileutil.FileSystem

	loader  *script.Loader
	world   *gameapi.World
	music   *audio.Music
	manager *vm.Manager
	engine  *engine.Engine
	trace   *tracestore.Store
}

// Option はApplicationの設定を行う関数
type Option func(*Application)

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(app *Application) {
		app.log = log
	}
}

// WithFileSystem はスクリプトを読み込むファイルシステムを設定する
// 指定しない場合は設定のscript_rootを使う
func WithFileSystem(fsys fileutil.FileSystem) Option {
	return func(app *Application) {
		app.fs = fsys
	}
}

// New 設定に従ってApplicationを組み立てる
func New(cfg config.Config, opts ...Option) (*Application, error) {
	app := &Application{
		cfg: cfg,
		log: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.fs == nil {
		app.fs = fileutil.NewRealFS(cfg.ScriptRoot)
	}

	// 1. スクリプトの読み込み
	app.loader = script.NewLoader(app.fs,
		script.WithEncoding(cfg.Encoding),
		script.WithStrict(cfg.Strict),
		script.WithLogger(app.log),
	)

	// 2. ゲームデータ（ヘッドレスではダイアログを待たない）
	app.world = gameapi.NewWorld()
	app.world.BlockOnDialog = !cfg.Headless
	app.world.OnMessage = app.logMessage

	// 3. 実行トレース
	managerOpts := []vm.Option{
		vm.WithLogger(app.log),
		vm.WithMaxOpsPerTick(cfg.MaxOpsPerTick),
		vm.WithConditionEvaluator(app.world.Condition),
		vm.WithEnv(app.world),
	}
	if cfg.TraceDB != "" {
		store, err := tracestore.Open(cfg.TraceDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace database: %w", err)
		}
		app.trace = store
		managerOpts = append(managerOpts, vm.WithObserver(store))
	}

	// 4. コマンドとスクリプトマネージャ
	dispatcher := vm.NewDispatcher()
	gameapi.Register(dispatcher, app.world)
	app.manager = vm.NewManager(script.NewCache(app.loader), dispatcher, managerOpts...)

	// 5. BGM（ヘッドレスモードでは無音で時間だけ進める）
	musicOpts := []audio.Option{audio.WithLogger(app.log)}
	if !cfg.Headless {
		musicOpts = append(musicOpts, app.audioOptions()...)
	}
	app.music = audio.NewMusic(app.fs, app.manager.Clock, musicOpts...)
	audio.Register(dispatcher, app.music)

	// 6. エンジン
	app.engine = engine.NewEngine(app.manager,
		engine.WithTickInterval(cfg.TickInterval()),
		engine.WithTimeout(cfg.Timeout),
		engine.WithExitWhenIdle(cfg.ExitWhenIdle),
		engine.WithHeadless(cfg.Headless),
		engine.WithLogger(app.log),
	)
	return app, nil
}

// audioOptions はオーディオコンテキストとSoundFontを準備する
// SoundFontが見つからない場合は無音で続行する
func (app *Application) audioOptions() []audio.Option {
	workDir, _ := os.Getwd()
	sf, loc, err := loadSoundFont(app.fs, workDir)
	if err != nil {
		if errors.Is(err, audio.ErrSoundFontNotFound) {
			app.log.Warn("SoundFont not found, music will be silent", "name", audio.DefaultSoundFontName)
		} else {
			app.log.Warn("Failed to load SoundFont, music will be silent", "path", loc.Path, "error", err)
		}
		return nil
	}
	app.log.Info("SoundFont loaded", "path", loc.Path, "base", loc.FileSystem.BasePath())

	return []audio.Option{
		audio.WithAudioContext(ebaudio.NewContext(audio.SampleRate)),
		audio.WithSoundFont(sf),
	}
}

func (app *Application) logMessage(m gameapi.Message) {
	app.log.Info("Message", "speaker", m.Speaker, "text", m.Text, "file", m.File, "line", m.Line)
}

// Manager はスクリプトマネージャを返す
func (app *Application) Manager() *vm.Manager {
	return app.manager
}

// Engine はエンジンを返す
func (app *Application) Engine() *engine.Engine {
	return app.engine
}

// World はゲームデータを返す
func (app *Application) World() *gameapi.World {
	return app.world
}

// Trace は実行トレースを返す（無効な場合はnil）
func (app *Application) Trace() *tracestore.Store {
	return app.trace
}

// Start エントリースクリプトと並列スクリプトを起動する
func (app *Application) Start(entry string, parallels []cli.ParallelSpec) error {
	if _, err := app.manager.RunScript(entry, ""); err != nil {
		return fmt.Errorf("failed to start script: %w", err)
	}
	for _, p := range parallels {
		if _, err := app.manager.RunParallelScript(p.Path, p.Delay, ""); err != nil {
			return fmt.Errorf("failed to schedule parallel script: %w", err)
		}
	}
	return nil
}

// Run エントリースクリプトを実行し、終了するまで待つ
func (app *Application) Run(ctx context.Context, entry string, parallels []cli.ParallelSpec) error {
	app.log.Info("Application started", "entry", entry, "root", app.fs.BasePath(), "headless", app.cfg.Headless)

	if err := app.Start(entry, parallels); err != nil {
		return err
	}

	if app.cfg.Headless {
		if err := app.engine.RunHeadless(ctx); err != nil {
			return fmt.Errorf("failed to run headless: %w", err)
		}
	} else {
		game := window.NewGame(app.engine,
			window.WithWorld(app.world),
			window.WithMusic(app.music),
			window.WithSize(app.cfg.Window.Width, app.cfg.Window.Height),
		)
		if err := window.Run(game, app.cfg.Window.Title); err != nil {
			return err
		}
	}

	app.log.Info("Application terminated normally", "frames", app.engine.Frames(), "clock", app.manager.Clock())
	return nil
}

// CheckResult は1つのスクリプトの構文チェック結果
type CheckResult struct {
	Path         string
	Instructions int
	Labels       int
	Warnings     []script.Warning
	Err          error
}

// Check スクリプトを実行せずに解析し、解析できない行を報告する
func (app *Application) Check(paths []string) []CheckResult {
	results := make([]CheckResult, 0, len(paths))
	for _, p := range paths {
		r := CheckResult{Path: p}
		prog, err := app.loader.Load(p)
		if err != nil {
			r.Err = err
		} else {
			r.Instructions = prog.Len()
			r.Labels = len(prog.Labels())
			r.Warnings = prog.Warnings()
		}
		results = append(results, r)
	}
	return results
}

// Parse スクリプトを解析して返す
func (app *Application) Parse(path string) (*script.Program, error) {
	return app.loader.Load(path)
}

// Close 再生を止め、トレースを書き出して閉じる
func (app *Application) Close() error {
	app.music.Stop()
	if app.trace == nil {
		return nil
	}
	if err := app.trace.Close(); err != nil {
		return fmt.Errorf("failed to close trace database: %w", err)
	}
	return nil
}
