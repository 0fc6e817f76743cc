// Package desktop hosts a player in a native window.
//
// The window is a player.Viewport: it forwards resize, wheel, touch and
// keyboard input to the player and shows the composited frame each tick.
// In scroll-pin mode the window stands in for the page, so wheel and touch
// move a virtual scroll offset that is reported as progress.
package desktop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/heyharoon/vpo/pkg/player"
	"github.com/heyharoon/vpo/pkg/render"
)

const (
	DefaultWidth  = 1280
	DefaultHeight = 720

	// keyStep is the pixel delta of one arrow key press.
	keyStep = WheelLine / 2
)

// Options configures the window.
type Options struct {
	Title  string
	Width  int
	Height int
}

// Window is an ebiten game that hosts one player.
type Window struct {
	p      *player.Player
	opts   Options
	logger *log.Logger
	canvas *Canvas

	mu       sync.Mutex
	handlers player.Handlers
	attached bool
	status   player.Status
	w, h     int

	scroller *pageScroller
	touch    touchTracker
	released bool
	last     time.Time
	ctx      context.Context
}

// New creates a window for p. Zero options select the defaults.
func New(p *player.Player, opts Options, logger *log.Logger) *Window {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Title == "" {
		opts.Title = p.Config().Scene
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Window{
		p:        p,
		opts:     opts,
		logger:   logger,
		canvas:   NewCanvas(opts.Width, opts.Height),
		w:        opts.Width,
		h:        opts.Height,
		scroller: newPageScroller(p.Config().ScrollRange()),
		ctx:      context.Background(),
	}
}

// Run mounts the player, opens the window and blocks until the window is
// closed, Escape is pressed or ctx is cancelled. It must be called from the
// main goroutine.
func (win *Window) Run(ctx context.Context) error {
	win.ctx = ctx
	if err := win.p.Mount(ctx, win); err != nil {
		return err
	}
	defer win.p.Unmount()

	ebiten.SetWindowTitle(win.opts.Title)
	ebiten.SetWindowSize(win.opts.Width, win.opts.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	win.logger.Info("window opened", "scene", win.p.Config().Scene, "mode", win.p.Config().DrivingMode)
	err := ebiten.RunGame(win)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// ===== player.Viewport =====

func (win *Window) Size() (int, int) {
	win.mu.Lock()
	defer win.mu.Unlock()
	return win.w, win.h
}

func (win *Window) Canvas() render.Canvas { return win.canvas }

func (win *Window) Attach(h player.Handlers) func() {
	win.mu.Lock()
	defer win.mu.Unlock()
	win.handlers, win.attached = h, true
	return func() {
		win.mu.Lock()
		defer win.mu.Unlock()
		win.handlers, win.attached = player.Handlers{}, false
	}
}

func (win *Window) Present(s player.Status) {
	win.mu.Lock()
	defer win.mu.Unlock()
	win.status = s
}

// PresentFrame flips the finished frame to the screen buffer.
func (win *Window) PresentFrame(render.Blend) {
	win.canvas.Flip()
}

// ===== ebiten.Game =====

func (win *Window) Update() error {
	if win.ctx.Err() != nil || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	now := time.Now()
	if !win.last.IsZero() {
		win.p.Tick(now.Sub(win.last))
	}
	win.last = now

	h, ok := win.currentHandlers()
	if !ok {
		return nil
	}

	if _, yoff := ebiten.Wheel(); yoff != 0 {
		win.scroll(h, wheelPixels(yoff), inputWheel)
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		win.scroll(h, keyStep, inputWheel)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		win.scroll(h, -keyStep, inputWheel)
	case inpututil.IsKeyJustPressed(ebiten.KeyHome):
		win.pin(h, player.EdgeStart)
	case inpututil.IsKeyJustPressed(ebiten.KeyEnd):
		win.pin(h, player.EdgeEnd)
	}

	for _, id := range inpututil.AppendJustReleasedTouchIDs(nil) {
		win.touch.release(int(id))
	}
	if ids := ebiten.AppendTouchIDs(nil); len(ids) > 0 {
		_, y := ebiten.TouchPosition(ids[0])
		if dy := win.touch.move(int(ids[0]), y); dy != 0 {
			win.scroll(h, dy, inputTouch)
		}
	}
	return nil
}

func (win *Window) Draw(screen *ebiten.Image) {
	win.canvas.DrawTo(screen)

	win.mu.Lock()
	s, released := win.status, win.released
	win.mu.Unlock()
	switch {
	case s.State != player.StateReady:
		ebitenutil.DebugPrint(screen, s.Message())
	case released:
		ebitenutil.DebugPrint(screen, "end of sequence")
	}
}

// Layout reports the window size to the player whenever it changes.
func (win *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	win.mu.Lock()
	changed := outsideWidth != win.w || outsideHeight != win.h
	win.w, win.h = outsideWidth, outsideHeight
	h, attached := win.handlers, win.attached
	win.mu.Unlock()

	if changed && attached && h.OnResize != nil {
		h.OnResize(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}

// ===== Input =====

func (win *Window) currentHandlers() (player.Handlers, bool) {
	win.mu.Lock()
	defer win.mu.Unlock()
	return win.handlers, win.attached
}

// scroll routes a forward pixel delta. Scroll-pin players see page
// progress; capturing players get the delta through the matching handler.
// Input the driving mode ignores leaves the capture state alone.
func (win *Window) scroll(h player.Handlers, dy float64, kind inputKind) {
	mode := win.p.Config().DrivingMode
	if !drives(mode, kind) {
		return
	}
	if mode == player.ScrollPin {
		progress, edge := win.scroller.scroll(dy)
		h.OnScrollProgress(progress)
		if edge != nil {
			h.OnPin(*edge)
		}
		return
	}
	capture := h.OnWheel
	if kind == inputTouch {
		capture = h.OnTouchDrag
	}
	captured := capture(dy)
	win.mu.Lock()
	if win.released != !captured {
		win.logger.Debug("capture changed", "captured", captured)
	}
	win.released = !captured
	win.mu.Unlock()
}

func (win *Window) pin(h player.Handlers, edge player.Edge) {
	win.scroller.jump(edge)
	h.OnPin(edge)
}

var (
	_ ebiten.Game           = (*Window)(nil)
	_ player.Viewport       = (*Window)(nil)
	_ player.FramePresenter = (*Window)(nil)
)
