// Package window はスクリプトランタイムをEbitengineのゲームループで駆動し、
// 実行中のスクリプトの状態をデバッグ表示する。
package window

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/zurustar/jxscript/pkg/engine"
	"github.com/zurustar/jxscript/pkg/gameapi"
	"github.com/zurustar/jxscript/pkg/vm"
	"golang.org/x/image/font/basicfont"
)

var (
	// 背景色 #0087C8
	backgroundColor = color.RGBA{0x00, 0x87, 0xC8, 0xFF}
	// テキスト色（白）
	textColor = color.White
	// ブロック中のスクリプトの色（黄色）
	blockedTextColor = color.RGBA{0xFF, 0xFF, 0x00, 0xFF}
	// デフォルトフォント
	defaultFace = text.NewGoXFace(basicfont.Face7x13)
)

const (
	lineHeight   = 16
	marginX      = 20
	marginY      = 20
	shownMessage = 8
)

// MusicStatus はBGMの再生状態を参照するためのインターフェース
type MusicStatus interface {
	Current() string
	Playing() bool
}

// Input は1フレーム分の入力
type Input struct {
	Confirm bool // Enter / Space
	Click   bool // 左クリック
	Escape  bool
}

// Game はEbitengineのゲームインターフェースを実装する
type Game struct {
	engine *engine.Engine
	world  *gameapi.World
	music  MusicStatus

	width  int
	height int
}

// Option はGameの設定を行う関数
type Option func(*Game)

// WithWorld はメッセージ表示に使うWorldを設定する
func WithWorld(w *gameapi.World) Option {
	return func(g *Game) {
		g.world = w
	}
}

// WithMusic はBGMの状態表示を有効にする
func WithMusic(m MusicStatus) Option {
	return func(g *Game) {
		g.music = m
	}
}

// WithSize は論理画面サイズを設定する
func WithSize(width, height int) Option {
	return func(g *Game) {
		if width > 0 && height > 0 {
			g.width = width
			g.height = height
		}
	}
}

// NewGame Gameを作成
func NewGame(e *engine.Engine, opts ...Option) *Game {
	g := &Game{
		engine: e,
		width:  800,
		height: 600,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Update ゲームロジックの更新（Ebitengineが毎フレーム呼び出す）
func (g *Game) Update() error {
	g.HandleInput(readInput())

	if err := g.engine.Update(); err != nil {
		if errors.Is(err, engine.ErrTerminated) {
			return ebiten.Termination
		}
		return err
	}
	return nil
}

// readInput 今フレームで押されたキーを取得する（1回だけ反応）
func readInput() Input {
	return Input{
		Confirm: inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeySpace),
		Click:   inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		Escape:  inpututil.IsKeyJustPressed(ebiten.KeyEscape),
	}
}

// HandleInput は入力をスクリプトへのイベントに変換する
// Escキーはエンジンを終了させ、次のUpdateでウィンドウが閉じる
func (g *Game) HandleInput(in Input) {
	m := g.engine.Manager()
	if in.Escape {
		g.engine.Terminate()
		return
	}
	if in.Confirm || in.Click {
		m.BroadcastEvent(gameapi.EventDialogClosed, nil)
	}
	if in.Click {
		m.BroadcastEvent(gameapi.EventClick, nil)
	}
}

// Draw 画面描画（Ebitengineが毎フレーム呼び出す）
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	for i, l := range g.StatusLines() {
		op := &text.DrawOptions{}
		op.GeoM.Translate(marginX, float64(marginY+i*lineHeight))
		if l.Highlight {
			op.ColorScale.ScaleWithColor(blockedTextColor)
		} else {
			op.ColorScale.ScaleWithColor(textColor)
		}
		text.Draw(screen, l.Text, defaultFace, op)
	}
}

// Line は画面に表示する1行
type Line struct {
	Text      string
	Highlight bool
}

// StatusLines はデバッグ表示の内容を組み立てる
func (g *Game) StatusLines() []Line {
	m := g.engine.Manager()
	lines := []Line{
		{Text: fmt.Sprintf("clock %s  frames %d", m.Clock().Truncate(time.Millisecond), g.engine.Frames())},
	}

	instances := m.Instances()
	if len(instances) == 0 {
		lines = append(lines, Line{Text: "no running scripts"})
	}
	for _, inst := range instances {
		kind := "main"
		if inst.IsParallel() {
			kind = "parallel"
		}
		lines = append(lines, Line{
			Text: fmt.Sprintf("#%d %s %s pc=%d line=%d %s",
				inst.ID(), kind, inst.Path(), inst.PC(), inst.CurrentLine(), inst.Status()),
			Highlight: inst.Status() == vm.StatusBlocked,
		})
	}
	if n := len(m.Scheduled()); n > 0 {
		lines = append(lines, Line{Text: fmt.Sprintf("%d parallel script(s) scheduled", n)})
	}

	if g.music != nil && g.music.Current() != "" {
		state := "stopped"
		if g.music.Playing() {
			state = "playing"
		}
		lines = append(lines, Line{Text: fmt.Sprintf("music %s (%s)", g.music.Current(), state)})
	}

	if g.world != nil {
		msgs := g.world.Messages()
		if len(msgs) > shownMessage {
			msgs = msgs[len(msgs)-shownMessage:]
		}
		if len(msgs) > 0 {
			lines = append(lines, Line{Text: ""})
		}
		for _, msg := range msgs {
			if msg.Speaker != "" {
				lines = append(lines, Line{Text: msg.Speaker + ": " + msg.Text})
			} else {
				lines = append(lines, Line{Text: msg.Text})
			}
		}
	}
	return lines
}

// Layout 画面サイズを返す
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}

// Run GUIモードでウィンドウを実行
func Run(g *Game, title string) error {
	ebiten.SetWindowSize(g.width, g.height)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(int(time.Second / g.engine.TickInterval()))

	g.engine.Start()
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("failed to run game: %w", err)
	}
	return nil
}
