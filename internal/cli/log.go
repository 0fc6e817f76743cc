package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/heyharoon/vpo/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, e.g. "Loaded 226 frames (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// =============================================================================
// Debug Hooks
// =============================================================================

// logHooks reports loader, cache and HTTP events at debug level.
type logHooks struct {
	logger *log.Logger
}

// registerLogHooks installs logHooks as the process-wide observability hooks.
func registerLogHooks(l *log.Logger) {
	h := logHooks{logger: l}
	observability.SetLoaderHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h logHooks) OnLoadStart(_ context.Context, total, batchSize int) {
	h.logger.Debug("load started", "frames", total, "batch", batchSize)
}

func (h logHooks) OnFrameLoaded(_ context.Context, url string, number int, d time.Duration) {
	h.logger.Debug("frame loaded", "frame", number, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnFrameFailed(_ context.Context, url string, number int, err error) {
	h.logger.Debug("frame failed", "frame", number, "url", url, "error", err)
}

func (h logHooks) OnBatchComplete(_ context.Context, batch, loaded, total int) {
	h.logger.Debug("batch complete", "batch", batch, "loaded", loaded, "total", total)
}

func (h logHooks) OnLoadComplete(_ context.Context, loaded, failed int, d time.Duration) {
	h.logger.Debug("load complete", "loaded", loaded, "failed", failed, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string)  { h.logger.Debug("cache hit", "type", keyType) }
func (h logHooks) OnCacheMiss(_ context.Context, keyType string) { h.logger.Debug("cache miss", "type", keyType) }

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("request", "method", method, "host", host, "path", path)
}

func (h logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("response", "host", host, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("request failed", "host", host, "path", path, "error", err)
}
