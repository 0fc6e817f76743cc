// Package metrics records how long scenes take to load and first paint.
//
// Each mounted player produces one [LoadMetrics] record when its load
// completes. Records go to a [Store]: a JSON-lines file for the CLI and
// desktop player, MongoDB for a server fleet, or nowhere.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LoadMetrics describes one load of a scene.
type LoadMetrics struct {
	RunID string `json:"run_id" bson:"run_id"`
	Scene string `json:"scene" bson:"scene"`
	Host  string `json:"host,omitempty" bson:"host,omitempty"` // cli, server or desktop

	InitialLoadTime time.Duration `json:"initial_load_time" bson:"initial_load_time"` // first batch settled
	FirstPaintTime  time.Duration `json:"first_paint_time" bson:"first_paint_time"`
	TotalLoadTime   time.Duration `json:"total_load_time" bson:"total_load_time"`

	FramesLoaded int `json:"frames_loaded" bson:"frames_loaded"`
	FramesFailed int `json:"frames_failed" bson:"frames_failed"`
	TotalFrames  int `json:"total_frames" bson:"total_frames"`

	RecordedAt time.Time `json:"recorded_at" bson:"recorded_at"`
}

// SuccessRate is the fraction of requested frames that loaded.
func (m LoadMetrics) SuccessRate() float64 {
	if m.TotalFrames == 0 {
		return 0
	}
	return float64(m.FramesLoaded) / float64(m.TotalFrames)
}

// NewRunID returns a random identifier for a load.
func NewRunID() string {
	return uuid.NewString()
}

// Store persists load metrics.
type Store interface {
	Record(ctx context.Context, m LoadMetrics) error
	// Recent returns up to limit records, newest first. An empty scene
	// matches every scene.
	Recent(ctx context.Context, scene string, limit int) ([]LoadMetrics, error)
	Close(ctx context.Context) error
}

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Options selects a Store backend.
type Options struct {
	Backend    string // file, mongo or none; empty means file
	Path       string // FileStore path
	MongoURI   string
	Database   string
	Collection string
}

// Open creates the store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("metrics: file path is required")
		}
		return NewFileStore(opts.Path), nil
	case BackendMongo:
		s, err := NewMongoStore(ctx, opts.MongoURI, opts.Database, opts.Collection)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendNone:
		return NullStore{}, nil
	default:
		return nil, fmt.Errorf("metrics: unknown backend %q", opts.Backend)
	}
}

// stamp fills RunID and RecordedAt when unset.
func stamp(m LoadMetrics) LoadMetrics {
	if m.RunID == "" {
		m.RunID = NewRunID()
	}
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now().UTC()
	}
	return m
}

// NullStore discards everything.
type NullStore struct{}

func (NullStore) Record(context.Context, LoadMetrics) error                  { return nil }
func (NullStore) Recent(context.Context, string, int) ([]LoadMetrics, error) { return nil, nil }
func (NullStore) Close(context.Context) error                                { return nil }
