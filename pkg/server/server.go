// Package server serves scenes over HTTP and WebSocket.
//
// Routes:
//
//	GET /healthz
//	GET /api/scenes                      scene list with load status
//	GET /api/scenes/{scene}              one scene's status
//	GET /api/scenes/{scene}/frame        rendered frame (?p= or ?position=, w, h, format)
//	GET /api/scenes/{scene}/ws           WebSocket viewport
//	GET /api/metrics                     recent load metrics (?scene=, limit)
//
// Every WebSocket connection mounts its own player. The browser acts as the
// viewport: it sends resize, scroll, wheel, touch and pin messages and
// receives status messages and JPEG frames.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/heyharoon/vpo/pkg/config"
	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/metrics"
	"github.com/heyharoon/vpo/pkg/pipeline"
	"github.com/heyharoon/vpo/pkg/player"
	"github.com/heyharoon/vpo/pkg/render"
)

const (
	maxDimension       = pipeline.MaxDimension
	defaultMetricLimit = 20
	maxMetricLimit     = 500
)

// Server is the vpo HTTP server.
type Server struct {
	registry *Registry
	store    metrics.Store
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	cfg      config.Server
	sessions map[string]*session
}

// New creates a server for cfg. Scenes are registered but not loaded; call
// Preload or let requests load them on demand.
func New(cfg *config.Config, runner *pipeline.Runner, store metrics.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if store == nil {
		store = metrics.NullStore{}
	}
	s := &Server{
		registry: NewRegistry(runner, store, logger),
		store:    store,
		logger:   logger,
		cfg:      cfg.Server,
		sessions: make(map[string]*session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 << 10,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.registry.Apply(cfg.Scenes)
	return s
}

// Registry returns the scene registry.
func (s *Server) Registry() *Registry { return s.registry }

// Reload applies a new configuration. Server timeouts and address only take
// effect on restart.
func (s *Server) Reload(cfg *config.Config) {
	s.mu.Lock()
	s.cfg.FrameWidth = cfg.Server.FrameWidth
	s.cfg.FrameHeight = cfg.Server.FrameHeight
	s.cfg.JPEGQuality = cfg.Server.JPEGQuality
	preload := cfg.Server.Preload
	s.mu.Unlock()

	s.registry.Apply(cfg.Scenes)
	if preload {
		s.registry.Preload()
	}
}

// Sessions returns the number of connected WebSocket viewports.
func (s *Server) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) settings() config.Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		// WebSocket connections outlive any request timeout.
		r.Get("/scenes/{scene}/ws", s.handleWS)

		r.Group(func(r chi.Router) {
			if d := s.settings().RequestTimeout.Duration; d > 0 {
				r.Use(middleware.Timeout(d))
			}
			r.Get("/scenes", s.handleScenes)
			r.Get("/scenes/{scene}", s.handleScene)
			r.Get("/scenes/{scene}/frame", s.handleFrame)
			r.Get("/metrics", s.handleMetrics)
		})
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	cfg := s.settings()
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout.Duration,
		WriteTimeout:      cfg.WriteTimeout.Duration,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.registry.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.registry.Close()
	return err
}

// ===== Handlers =====

func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scenes": s.registry.List()})
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	sc, err := s.registry.Get(chi.URLParam(r, "scene"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc.Info())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	sc, err := s.registry.Get(chi.URLParam(r, "scene"))
	if err != nil {
		writeError(w, err)
		return
	}
	seq, err := sc.Sequence()
	if err != nil {
		writeError(w, err)
		return
	}

	cfg := s.settings()
	q := r.URL.Query()
	opts := pipeline.Options{
		Width:         cfg.FrameWidth,
		Height:        cfg.FrameHeight,
		Quality:       cfg.JPEGQuality,
		Formats:       []string{render.FormatJPEG},
		Interpolation: sc.Config().Interpolation,
	}

	switch {
	case q.Has("position"):
		v, err := parseFloat(q, "position")
		if err != nil {
			writeError(w, err)
			return
		}
		opts.Position = v
	case q.Has("p"):
		v, err := parseFloat(q, "p")
		if err != nil {
			writeError(w, err)
			return
		}
		opts.Position = pipeline.PositionForProgress(seq.Spec(), v)
	}
	if q.Has("w") {
		if opts.Width, err = parseInt(q, "w"); err != nil {
			writeError(w, err)
			return
		}
	}
	if q.Has("h") {
		if opts.Height, err = parseInt(q, "h"); err != nil {
			writeError(w, err)
			return
		}
	}
	if opts.Width < 1 || opts.Height < 1 {
		writeError(w, vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "size %dx%d out of range", opts.Width, opts.Height))
		return
	}
	if f := q.Get("format"); f != "" {
		opts.Formats = []string{f}
	}
	if v := q.Get("interpolation"); v != "" {
		mode, err := render.ParseInterpolation(v)
		if err != nil {
			writeError(w, vpoerrors.Wrap(vpoerrors.ErrCodeInvalidInput, err, "bad interpolation"))
			return
		}
		opts.Interpolation = mode
	}

	artifacts, err := sc.Render(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	format := opts.Formats[0]
	w.Header().Set("Content-Type", "image/"+format)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultMetricLimit
	if q.Has("limit") {
		n, err := parseInt(q, "limit")
		if err != nil || n < 1 {
			writeError(w, vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxMetricLimit)
	}
	scene := q.Get("scene")
	if scene != "" {
		if err := vpoerrors.ValidateSceneName(scene); err != nil {
			writeError(w, err)
			return
		}
	}
	records, err := s.store.Recent(r.Context(), scene, limit)
	if err != nil {
		writeError(w, vpoerrors.Wrap(vpoerrors.ErrCodeInternal, err, "read metrics"))
		return
	}
	if records == nil {
		records = []metrics.LoadMetrics{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": records})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sc, err := s.registry.Get(chi.URLParam(r, "scene"))
	if err != nil {
		writeError(w, err)
		return
	}
	cfg := s.settings()
	width, height := cfg.FrameWidth, cfg.FrameHeight
	q := r.URL.Query()
	if q.Has("w") {
		if width, err = parseInt(q, "w"); err != nil {
			writeError(w, err)
			return
		}
	}
	if q.Has("h") {
		if height, err = parseInt(q, "h"); err != nil {
			writeError(w, err)
			return
		}
	}
	if width < 1 || height < 1 || width > maxDimension || height > maxDimension {
		writeError(w, vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "size %dx%d out of range", width, height))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sess := newSession(conn, width, height, cfg.JPEGQuality, s.logger)
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
	}()

	pcfg := sc.Config()
	pcfg.Host = "websocket"
	p := player.New(pcfg, sc.Source(), sess.logger, player.WithMetrics(s.registry.record))

	sess.logger.Info("viewport connected", "scene", sc.Name())
	sess.run(r.Context(), p)
	sess.logger.Info("viewport disconnected", "scene", sc.Name())
}

// ===== Helpers =====

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

type errorBody struct {
	Error string         `json:"error"`
	Code  vpoerrors.Code `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	status := vpoerrors.HTTPStatus(err)
	writeJSON(w, status, errorBody{Error: vpoerrors.UserMessage(err), Code: vpoerrors.GetCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseFloat(q url.Values, key string) (float64, error) {
	v, err := strconv.ParseFloat(q.Get(key), 64)
	if err != nil {
		return 0, vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "%s must be a number", key)
	}
	return v, nil
}

func parseInt(q url.Values, key string) (int, error) {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return 0, vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "%s must be an integer", key)
	}
	return v, nil
}
