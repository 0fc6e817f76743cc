package server

import (
	"context"
	"encoding/json"
	"image"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/heyharoon/vpo/pkg/player"
	"github.com/heyharoon/vpo/pkg/render"
)

// tickInterval drives scroll easing for sessions with a scrub lag.
const tickInterval = 16 * time.Millisecond

const writeWait = 10 * time.Second

// Client messages are JSON text frames:
//
//	{"type":"resize","width":1280,"height":720}
//	{"type":"scroll","progress":0.42}     // or {"type":"scroll","offset":380}
//	{"type":"wheel","delta":120}
//	{"type":"touch","delta":-40}
//	{"type":"pin","edge":"end"}
//	{"type":"ping"}
type clientMessage struct {
	Type     string   `json:"type"`
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
	Offset   *float64 `json:"offset,omitempty"`
	Delta    float64  `json:"delta,omitempty"`
	Edge     string   `json:"edge,omitempty"`
}

// Server messages are JSON text frames plus binary JPEG frames.
type serverMessage struct {
	Type     string         `json:"type"`
	Session  string         `json:"session,omitempty"`
	Status   *player.Status `json:"status,omitempty"`
	Captured *bool          `json:"captured,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// session is one WebSocket connection. It is the player's viewport: the
// browser reports input and size, the session sends status and frames back.
type session struct {
	id      string
	conn    *websocket.Conn
	logger  *log.Logger
	quality int

	writeMu sync.Mutex // gorilla/websocket allows one concurrent writer

	mu       sync.Mutex
	w, h     int
	handlers player.Handlers

	canvas   *render.RasterCanvas
	statusCh chan player.Status
	frameCh  chan *image.RGBA
}

func newSession(conn *websocket.Conn, w, h, quality int, logger *log.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:       id,
		conn:     conn,
		logger:   logger.With("session", id),
		quality:  quality,
		w:        w,
		h:        h,
		canvas:   render.NewRasterCanvas(w, h),
		statusCh: make(chan player.Status, 1),
		frameCh:  make(chan *image.RGBA, 1),
	}
}

// ===== player.Viewport =====

func (s *session) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

func (s *session) Canvas() render.Canvas { return s.canvas }

func (s *session) Attach(h player.Handlers) func() {
	s.mu.Lock()
	s.handlers = h
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.handlers = player.Handlers{}
		s.mu.Unlock()
	}
}

// Present keeps only the latest status; the writer may lag behind.
func (s *session) Present(st player.Status) {
	latest(s.statusCh, st)
}

// PresentFrame copies the finished canvas for the writer.
func (s *session) PresentFrame(render.Blend) {
	latest(s.frameCh, s.canvas.Snapshot())
}

// latest replaces any unsent value in ch with v. Callers are serialized by
// the player lock, so there is a single producer.
func latest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// ===== Connection loops =====

func (s *session) run(ctx context.Context, p *player.Player) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := p.Mount(ctx, s); err != nil {
		s.writeJSON(serverMessage{Type: "error", Message: err.Error()})
		return
	}
	defer p.Unmount()

	s.writeJSON(serverMessage{Type: "hello", Session: s.id})
	go s.writeLoop(ctx)
	if cfg := p.Config(); cfg.DrivingMode == player.ScrollPin && cfg.ScrubLag > 0 {
		go tickLoop(ctx, p)
	}

	s.readLoop(ctx, p)
}

func (s *session) readLoop(ctx context.Context, p *player.Player) {
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", "err", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("invalid message", "err", err)
			continue
		}
		s.dispatch(p, msg)
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *session) dispatch(p *player.Player, msg clientMessage) {
	s.mu.Lock()
	h := s.handlers
	s.mu.Unlock()

	switch msg.Type {
	case "resize":
		if msg.Width < 1 || msg.Height < 1 || msg.Width > maxDimension || msg.Height > maxDimension {
			s.writeJSON(serverMessage{Type: "error", Message: "invalid size"})
			return
		}
		s.mu.Lock()
		s.w, s.h = msg.Width, msg.Height
		s.mu.Unlock()
		if h.OnResize != nil {
			h.OnResize(msg.Width, msg.Height)
		}
	case "scroll":
		switch {
		case msg.Progress != nil && h.OnScrollProgress != nil:
			h.OnScrollProgress(*msg.Progress)
		case msg.Offset != nil:
			p.ScrollTo(*msg.Offset)
		}
	case "wheel":
		if h.OnWheel != nil {
			s.sendCapture(h.OnWheel(msg.Delta))
		}
	case "touch":
		if h.OnTouchDrag != nil {
			s.sendCapture(h.OnTouchDrag(msg.Delta))
		}
	case "pin":
		if h.OnPin == nil {
			return
		}
		if msg.Edge == "end" {
			h.OnPin(player.EdgeEnd)
		} else {
			h.OnPin(player.EdgeStart)
		}
	case "ping":
		s.writeJSON(serverMessage{Type: "pong"})
	default:
		s.logger.Debug("unknown message type", "type", msg.Type)
	}
}

func (s *session) sendCapture(captured bool) {
	s.writeJSON(serverMessage{Type: "capture", Captured: &captured})
}

func (s *session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-s.statusCh:
			if err := s.writeJSON(serverMessage{Type: "status", Session: s.id, Status: &st}); err != nil {
				return
			}
		case img := <-s.frameCh:
			data, err := render.Encode(img, render.FormatJPEG, s.quality)
			if err != nil {
				s.logger.Warn("encode frame failed", "err", err)
				continue
			}
			if err := s.write(websocket.BinaryMessage, data); err != nil {
				return
			}
		}
	}
}

func tickLoop(ctx context.Context, p *player.Player) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.Tick(now.Sub(last))
			last = now
		}
	}
}

func (s *session) writeJSON(msg serverMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.write(websocket.TextMessage, data)
}

func (s *session) write(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

var _ player.FramePresenter = (*session)(nil)
