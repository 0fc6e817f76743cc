package server

import (
	"context"
	"image"
	"reflect"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/heyharoon/vpo/pkg/cache"
	"github.com/heyharoon/vpo/pkg/config"
	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/frames"
	"github.com/heyharoon/vpo/pkg/loader"
	"github.com/heyharoon/vpo/pkg/metrics"
	"github.com/heyharoon/vpo/pkg/pipeline"
	"github.com/heyharoon/vpo/pkg/player"
)

// metricsTimeout bounds a single metrics write.
const metricsTimeout = 5 * time.Second

// Registry holds the configured scenes and their shared frame loads. Each
// scene loads at most once per configuration; HTTP renders and WebSocket
// players read from that load.
type Registry struct {
	runner *pipeline.Runner
	store  metrics.Store
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	scenes map[string]*Scene
	order  []string
}

// NewRegistry creates an empty registry. A nil store discards metrics.
func NewRegistry(runner *pipeline.Runner, store metrics.Store, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	if store == nil {
		store = metrics.NullStore{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		runner: runner,
		store:  store,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		scenes: make(map[string]*Scene),
	}
}

// Apply replaces the scene set. Scenes whose configuration is unchanged keep
// their loaded frames; changed and removed scenes are cancelled.
func (r *Registry) Apply(scenes []config.Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]*Scene, len(scenes))
	order := make([]string, 0, len(scenes))
	for _, sc := range scenes {
		if old, ok := r.scenes[sc.Name]; ok && reflect.DeepEqual(old.cfg, sc) {
			next[sc.Name] = old
		} else {
			next[sc.Name] = newScene(r, sc)
			if ok {
				r.logger.Info("scene changed, reloading", "scene", sc.Name)
			}
		}
		order = append(order, sc.Name)
	}
	for name, old := range r.scenes {
		if next[name] != old {
			old.stop()
		}
	}
	r.scenes = next
	r.order = order
}

// Preload starts loading every scene.
func (r *Registry) Preload() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		r.scenes[name].start()
	}
}

// Get returns the named scene and starts loading it if it is idle.
func (r *Registry) Get(name string) (*Scene, error) {
	r.mu.RLock()
	s, ok := r.scenes[name]
	r.mu.RUnlock()
	if !ok {
		return nil, vpoerrors.New(vpoerrors.ErrCodeSceneNotFound, "scene %q not found", name)
	}
	s.start()
	return s, nil
}

// SceneInfo is a scene's listing entry.
type SceneInfo struct {
	Name   string        `json:"name"`
	Title  string        `json:"title"`
	Frames int           `json:"frames"`
	Skip   int           `json:"skip"`
	Mode   string        `json:"mode"`
	Status player.Status `json:"status"`
}

// List returns every scene in configuration order.
func (r *Registry) List() []SceneInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SceneInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.scenes[name].Info())
	}
	return out
}

// Close cancels all loads.
func (r *Registry) Close() {
	r.cancel()
}

func (r *Registry) record(m metrics.LoadMetrics) {
	ctx, cancel := context.WithTimeout(context.Background(), metricsTimeout)
	defer cancel()
	if err := r.store.Record(ctx, m); err != nil {
		r.logger.Warn("record metrics failed", "scene", m.Scene, "err", err)
	}
}

// ===== Scene =====

// Scene is one configured scene and its shared load.
type Scene struct {
	reg     *Registry
	cfg     config.Scene
	player  player.Config
	renders *pipeline.Runner // shares the registry cache, keys scoped to this scene

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.RWMutex
	started bool
	status  player.Status
	seq     *frames.Sequence
	byURL   map[string]image.Image
	failed  map[string]bool
}

func newScene(r *Registry, sc config.Scene) *Scene {
	ctx, cancel := context.WithCancel(r.ctx)
	pc := sc.PlayerConfig("server")
	renders := *r.runner
	renders.Keyer = cache.NewScopedKeyer(r.runner.Keyer, sceneKeyPrefix(sc.Name))
	return &Scene{
		reg:     r,
		cfg:     sc,
		player:  pc,
		renders: &renders,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		status: player.Status{State: player.StateIdle, Total: pc.Spec.Count()},
	}
}

// sceneKeyPrefix namespaces a scene's render keys in a shared cache.
func sceneKeyPrefix(name string) string { return "scene:" + name + ":" }

// Name returns the scene name.
func (s *Scene) Name() string { return s.cfg.Name }

// Render encodes one position of the loaded sequence, caching under the
// scene's key scope.
func (s *Scene) Render(ctx context.Context, opts pipeline.Options) (map[string][]byte, error) {
	seq, err := s.Sequence()
	if err != nil {
		return nil, err
	}
	return s.renders.Render(ctx, s.cfg.Name, seq, opts)
}

// Config returns the scene's player configuration.
func (s *Scene) Config() player.Config { return s.player }

// Status returns the scene's load status.
func (s *Scene) Status() player.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Info returns the scene's listing entry.
func (s *Scene) Info() SceneInfo {
	return SceneInfo{
		Name:   s.cfg.Name,
		Title:  s.cfg.DisplayTitle(),
		Frames: s.player.Spec.VirtualCount(),
		Skip:   s.player.Spec.Skip,
		Mode:   s.player.DrivingMode.String(),
		Status: s.Status(),
	}
}

// Done is closed when the scene's load has finished or was cancelled.
func (s *Scene) Done() <-chan struct{} { return s.done }

// Sequence returns the loaded frames. It fails with SCENE_LOADING while the
// load runs and SCENE_UNAVAILABLE when no frame loaded.
func (s *Scene) Sequence() (*frames.Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.status.State {
	case player.StateReady:
		return s.seq, nil
	case player.StateUnavailable:
		return nil, vpoerrors.New(vpoerrors.ErrCodeSceneUnavailable, "Experience unavailable")
	default:
		return nil, vpoerrors.New(vpoerrors.ErrCodeSceneLoading, "scene %q is loading (%.0f%%)", s.cfg.Name, s.status.Percent)
	}
}

// Source returns a frame source for per-connection players. Frames the
// shared load already settled are served from memory; anything else falls
// through to the runner.
func (s *Scene) Source() loader.Source {
	fallback := s.reg.runner.SourceFor(s.player.Spec)
	return loader.SourceFunc(func(ctx context.Context, url string) (image.Image, error) {
		s.mu.RLock()
		img, ok := s.byURL[url]
		failed := s.failed[url]
		s.mu.RUnlock()
		switch {
		case ok:
			return img, nil
		case failed:
			return nil, vpoerrors.New(vpoerrors.ErrCodeFrameNotFound, "frame %s failed to load", url)
		default:
			return fallback.Load(ctx, url)
		}
	})
}

func (s *Scene) start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.status.State = player.StateLoading
	s.mu.Unlock()

	go s.load()
}

func (s *Scene) stop() {
	s.cancel()
}

func (s *Scene) load() {
	defer close(s.done)
	logger := s.reg.logger.With("scene", s.cfg.Name)
	start := time.Now()

	res, err := s.reg.runner.Load(s.ctx, s.player, loader.Callbacks{
		OnProgress: func(loaded, total int) {
			s.mu.Lock()
			s.status.Loaded = loaded
			s.status.Total = total
			s.status.Percent = float64(loaded) / float64(total) * 100
			s.mu.Unlock()
		},
	})
	if err != nil {
		if s.ctx.Err() == nil {
			logger.Error("scene load failed", "err", err)
		}
		s.mu.Lock()
		s.status.State = player.StateUnavailable
		s.mu.Unlock()
		return
	}

	byURL := make(map[string]image.Image, len(res.Slots))
	failed := make(map[string]bool)
	for _, slot := range res.Slots {
		url := s.player.Spec.URL(slot.Number)
		if slot.State == frames.SlotLoaded {
			byURL[url] = slot.Image
		} else {
			failed[url] = true
		}
	}

	s.mu.Lock()
	s.seq = res.Sequence
	s.byURL = byURL
	s.failed = failed
	s.status.Failed = len(res.Failed)
	s.status.Percent = 100
	if res.Sequence.Empty() {
		s.status.State = player.StateUnavailable
	} else {
		s.status.State = player.StateReady
	}
	state := s.status.State
	s.mu.Unlock()

	if state == player.StateUnavailable {
		logger.Warn("scene unavailable", "failed", len(res.Failed))
	} else {
		logger.Info("scene ready", "loaded", res.Stats.Loaded, "failed", res.Stats.Failed, "duration", time.Since(start).Round(time.Millisecond))
	}

	s.reg.record(metrics.LoadMetrics{
		Scene:           s.cfg.Name,
		Host:            "server",
		InitialLoadTime: res.Stats.FirstBatch,
		FirstPaintTime:  res.Stats.FirstBatch,
		TotalLoadTime:   res.Stats.Total,
		FramesLoaded:    res.Stats.Loaded,
		FramesFailed:    res.Stats.Failed,
		TotalFrames:     res.Stats.Requested,
	})
}
