// Package player mounts a scroll-scrubbed frame sequence into a viewport.
//
// A Player is the one component every host uses. Its Config picks the
// frames, the batch size, how input drives playback and how gaps between
// loaded frames are painted. Mount starts loading and attaches input
// handlers; Unmount detaches everything and turns late results into no-ops.
//
//	p := player.New(cfg, loader.NewSource(cfg.Spec.BaseURL, client), logger)
//	if err := p.Mount(ctx, vp); err != nil { ... }
//	defer p.Unmount()
//
// The player renders progressively: every settled batch repaints the frames
// loaded so far, so priority frames appear before the full load completes.
// A load in which no frame succeeded leaves the player StateUnavailable.
package player

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/frames"
	"github.com/heyharoon/vpo/pkg/loader"
	"github.com/heyharoon/vpo/pkg/metrics"
	"github.com/heyharoon/vpo/pkg/playback"
	"github.com/heyharoon/vpo/pkg/render"
)

// Option configures a Player.
type Option func(*Player)

// WithMetrics registers fn to receive the load metrics once a load completes.
func WithMetrics(fn func(metrics.LoadMetrics)) Option {
	return func(p *Player) { p.onMetrics = fn }
}

// WithFrameCallback registers fn to receive every settled frame slot.
func WithFrameCallback(fn func(frames.Slot)) Option {
	return func(p *Player) { p.onFrame = fn }
}

// Player plays one frame sequence. All methods are safe for concurrent use.
type Player struct {
	cfg    Config
	src    loader.Source
	logger *log.Logger

	onMetrics func(metrics.LoadMetrics)
	onFrame   func(frames.Slot)

	mu       sync.Mutex
	mounted  bool
	vp       Viewport
	canvas   render.Canvas
	detach   func()
	cancel   context.CancelFunc
	done     chan struct{}
	ctrl     *playback.Controller
	scrub    *playback.Scrubber
	renderer *render.Renderer
	seq      *frames.Sequence
	status   Status
	blend    render.Blend

	mountedAt  time.Time
	firstPaint time.Duration
}

// New creates an unmounted player. A nil logger uses log.Default().
func New(cfg Config, src loader.Source, logger *log.Logger, opts ...Option) *Player {
	if logger == nil {
		logger = log.Default()
	}
	cfg = cfg.withDefaults()
	p := &Player{
		cfg:      cfg,
		src:      src,
		logger:   logger.With("scene", cfg.Scene),
		renderer: render.New(cfg.Interpolation),
		ctrl: playback.NewController(cfg.Spec.VirtualCount(),
			playback.WithWheelSensitivity(cfg.WheelSensitivity),
			playback.WithTouchSensitivity(cfg.TouchSensitivity)),
		done: make(chan struct{}),
	}
	close(p.done)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the effective configuration, defaults applied.
func (p *Player) Config() Config { return p.cfg }

// Mount sizes the viewport canvas, attaches input handlers and starts
// loading in the background. A player can be mounted again after Unmount;
// every mount loads afresh.
func (p *Player) Mount(ctx context.Context, vp Viewport) error {
	if err := p.cfg.Validate(); err != nil {
		return err
	}
	if vp == nil || vp.Canvas() == nil {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "viewport has no canvas")
	}
	if p.src == nil {
		return vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "player has no frame source")
	}

	p.mu.Lock()
	if p.mounted {
		p.mu.Unlock()
		return vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "player already mounted")
	}
	loadCtx, cancel := context.WithCancel(ctx)
	p.mounted = true
	p.vp = vp
	p.canvas = vp.Canvas()
	p.cancel = cancel
	p.done = make(chan struct{})
	p.seq = nil
	p.blend = render.Blend{}
	p.firstPaint = 0
	p.mountedAt = time.Now()
	p.ctrl.Jump(0)
	p.scrub = nil
	if p.cfg.DrivingMode == ScrollPin && p.cfg.ScrubLag > 0 {
		p.scrub = playback.NewScrubber(p.ctrl, p.cfg.ScrubLag)
	}

	w, h := vp.Size()
	p.canvas.Resize(w, h)
	p.status = Status{State: StateLoading, Total: p.cfg.Spec.Count()}
	vp.Present(p.status)
	done := p.done
	p.mu.Unlock()

	// Attach outside the lock: hosts may deliver an initial resize synchronously.
	detach := vp.Attach(p.handlers())
	p.mu.Lock()
	if p.mounted && p.vp == vp {
		p.detach = detach
		detach = nil
	}
	p.mu.Unlock()
	if detach != nil {
		detach()
	}

	p.logger.Debug("mounted", "frames", p.cfg.Spec.Count(), "mode", p.cfg.DrivingMode, "interpolation", p.cfg.Interpolation)
	go p.load(loadCtx, done)
	return nil
}

// Unmount detaches input, cancels the load, stops easing and releases the
// canvas. Later renders and load completions are no-ops. It is safe to call
// more than once.
func (p *Player) Unmount() {
	p.mu.Lock()
	if !p.mounted {
		p.mu.Unlock()
		return
	}
	p.mounted = false
	p.cancel()
	if p.scrub != nil {
		p.scrub.Stop()
	}
	detach := p.detach
	canvas := p.canvas
	p.detach = nil
	p.canvas = nil
	p.vp = nil
	p.seq = nil
	p.status.State = StateUnmounted
	p.mu.Unlock()

	if detach != nil {
		detach()
	}
	if r, ok := canvas.(interface{ Release() }); ok {
		r.Release()
	}
	p.logger.Debug("unmounted")
}

// Done is closed when the current mount's load goroutine has exited.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Wait blocks until the current load finishes or ctx is done.
func (p *Player) Wait(ctx context.Context) error {
	select {
	case <-p.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current status.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Loading reports whether frames are still being fetched.
func (p *Player) Loading() bool { return p.Status().Loading() }

// Position returns the current playback position.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl.Value()
}

// Progress returns the playback position normalized to [0, 1].
func (p *Player) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl.Progress()
}

// Blend returns the frames used by the last render.
func (p *Player) Blend() render.Blend {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blend
}

// Sequence returns the frames loaded so far, or nil.
func (p *Player) Sequence() *frames.Sequence {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq
}

// Render repaints the current position.
func (p *Player) Render() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renderLocked()
}

// Tick advances scroll easing by dt and repaints when the position moved.
// Hosts call it once per animation frame.
func (p *Player) Tick(dt time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted || p.scrub == nil {
		return false
	}
	if !p.scrub.Step(dt) {
		return false
	}
	p.renderLocked()
	return true
}

// ===== Input =====

func (p *Player) handlers() Handlers {
	return Handlers{
		OnResize:         p.Resize,
		OnScrollProgress: p.SetProgress,
		OnWheel:          p.Wheel,
		OnTouchDrag:      p.TouchDrag,
		OnPin:            p.Pin,
	}
}

// Resize resizes the canvas and repaints at the current position.
func (p *Player) Resize(w, h int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted {
		return
	}
	p.canvas.Resize(w, h)
	p.renderLocked()
}

// SetProgress drives the position from a scroll progress in [0, 1]. With a
// scrub lag the position eases toward it over subsequent Ticks.
func (p *Player) SetProgress(progress float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted {
		return
	}
	if p.scrub != nil {
		p.scrub.SetTarget(progress)
		return
	}
	p.ctrl.SetFromNormalizedProgress(progress)
	p.renderLocked()
}

// ScrollTo drives scroll-pin playback from a pixel offset into the pinned
// section, using Config.ScrollPerFrame.
func (p *Player) ScrollTo(offset float64) {
	p.SetProgress(offset / p.cfg.ScrollRange())
}

// Wheel advances by a wheel delta. It returns false when the input should
// pass through to the page.
func (p *Player) Wheel(dy float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.capturing() || p.cfg.DrivingMode != WheelCapture {
		return false
	}
	return p.advanceLocked(p.ctrl.Advance(dy))
}

// TouchDrag advances by a touch drag delta. It returns false when the input
// should pass through to the page.
func (p *Player) TouchDrag(dy float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.capturing() || p.cfg.DrivingMode == ScrollPin {
		return false
	}
	return p.advanceLocked(p.ctrl.AdvanceTouch(dy))
}

// capturing reports whether wheel and touch input can be consumed: a
// mounted player with at least one loaded frame.
func (p *Player) capturing() bool {
	return p.mounted && !p.seq.Empty()
}

func (p *Player) advanceLocked(b playback.Boundary) bool {
	if b != playback.BoundaryNone {
		p.logger.Debug("boundary reached, releasing capture", "boundary", b)
		return false
	}
	p.renderLocked()
	return true
}

// Pin forces the first or last frame when a pinned section is left or
// re-entered, regardless of where easing has settled.
func (p *Player) Pin(edge Edge) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted {
		return
	}
	target := 0.0
	if edge == EdgeEnd {
		target = 1
	}
	if p.scrub != nil {
		p.scrub.SetTarget(target)
		p.scrub.Snap()
	} else {
		p.ctrl.SetFromNormalizedProgress(target)
	}
	p.renderLocked()
}

// ===== Loading =====

func (p *Player) load(ctx context.Context, done chan struct{}) {
	defer close(done)

	l := loader.New(p.src,
		loader.WithBatchSize(p.cfg.BatchSize),
		loader.WithPriority(p.cfg.Priority...),
		loader.WithRetries(p.cfg.Retries, p.cfg.RetryDelay),
		loader.WithLogger(p.logger),
	)
	res, err := l.Load(ctx, p.cfg.Spec, loader.Callbacks{
		OnProgress: func(loaded, total int) { p.onProgress(ctx, loaded, total) },
		OnFrame:    p.onFrame,
		OnBatch:    func(snapshot *frames.Sequence) { p.onBatch(ctx, snapshot) },
	})
	switch {
	case ctx.Err() != nil:
		p.abandon(done)
	case err != nil:
		p.logger.Error("load failed", "err", err)
		p.finish(ctx, nil)
	default:
		p.finish(ctx, res)
	}
}

// abandon settles a mount whose context was cancelled by the caller rather
// than by Unmount, so Status does not report loading forever.
func (p *Player) abandon(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted || p.done != done {
		return
	}
	if p.seq.Empty() {
		p.status.State = StateUnavailable
	} else {
		p.status.State = StateReady
	}
	p.logger.Debug("load cancelled", "state", p.status.State)
	p.vp.Present(p.status)
}

// Load callbacks check ctx under the lock: Unmount cancels it while holding
// the lock, so a stale load can never touch a later mount.

func (p *Player) onProgress(ctx context.Context, loaded, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted || ctx.Err() != nil {
		return
	}
	p.status.Loaded = loaded
	p.status.Total = total
	p.status.Percent = percent(loaded, total)
	p.vp.Present(p.status)
}

func (p *Player) onBatch(ctx context.Context, snapshot *frames.Sequence) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted || ctx.Err() != nil || snapshot.Empty() {
		return
	}
	p.seq = snapshot
	p.renderLocked()
}

func (p *Player) finish(ctx context.Context, res *loader.Result) {
	p.mu.Lock()
	if !p.mounted || ctx.Err() != nil {
		p.mu.Unlock()
		return
	}

	var m metrics.LoadMetrics
	if res != nil {
		p.seq = res.Sequence
		p.status.Failed = len(res.Failed)
		p.status.Loaded = res.Stats.Requested
		p.status.Percent = 100
		m = metrics.LoadMetrics{
			Scene:           p.cfg.Scene,
			Host:            p.cfg.Host,
			InitialLoadTime: res.Stats.FirstBatch,
			TotalLoadTime:   res.Stats.Total,
			FramesLoaded:    res.Stats.Loaded,
			FramesFailed:    res.Stats.Failed,
			TotalFrames:     res.Stats.Requested,
		}
	}

	if p.seq.Empty() {
		p.status.State = StateUnavailable
		p.logger.Warn("scene unavailable", "failed", p.status.Failed, "total", p.status.Total)
	} else {
		p.status.State = StateReady
		p.renderLocked()
	}
	m.FirstPaintTime = p.firstPaint
	p.vp.Present(p.status)
	onMetrics := p.onMetrics
	p.mu.Unlock()

	if res != nil && onMetrics != nil {
		onMetrics(m)
	}
}

func (p *Player) renderLocked() {
	if !p.mounted || p.canvas == nil || p.seq.Empty() {
		return
	}
	p.blend = p.renderer.RenderFrame(p.ctrl.Value(), p.seq, p.canvas)
	if p.firstPaint == 0 {
		p.firstPaint = time.Since(p.mountedAt)
	}
	if fp, ok := p.vp.(FramePresenter); ok {
		fp.PresentFrame(p.blend)
	}
}

func percent(loaded, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(loaded) / float64(total) * 100
}
