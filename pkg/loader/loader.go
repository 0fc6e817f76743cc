// Package loader fetches the frames of a [frames.Spec] in bounded batches.
//
// Frames are requested BatchSize at a time. A batch is joined completely,
// successes and failures alike, before the next one starts, which caps the
// number of requests in flight. A failed frame never fails the load: it is
// recorded and progress still advances, so progress always ends at 100%.
//
//	l := loader.New(src, loader.WithBatchSize(15))
//	res, err := l.Load(ctx, spec, loader.Callbacks{
//	    OnProgress: func(loaded, total int) { ... },
//	})
//
// The only errors Load returns are misuse (an invalid spec or batch size)
// and cancellation of ctx.
package loader

import (
	"context"
	"image"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	vpoerrors "github.com/heyharoon/vpo/pkg/errors"
	"github.com/heyharoon/vpo/pkg/frames"
	"github.com/heyharoon/vpo/pkg/httputil"
	"github.com/heyharoon/vpo/pkg/observability"
)

// DefaultBatchSize is the number of concurrent requests per batch.
const DefaultBatchSize = 15

// Callbacks are invoked during a load. All callbacks are serialized: no two
// run at the same time. None fire once ctx is done.
type Callbacks struct {
	// OnProgress runs after every settled frame with a strictly increasing
	// loaded count. The last call has loaded == total.
	OnProgress func(loaded, total int)

	// OnFrame runs after every settled frame with its final slot.
	OnFrame func(slot frames.Slot)

	// OnBatch runs after each batch with the frames loaded so far.
	OnBatch func(snapshot *frames.Sequence)

	// OnComplete runs once after the last batch. valid and failed are both
	// ascending by frame number.
	OnComplete func(valid []frames.Frame, failed []int)
}

// Stats summarizes a load.
type Stats struct {
	Requested  int
	Loaded     int
	Failed     int
	Batches    int
	FirstBatch time.Duration // time until the first batch settled
	Total      time.Duration
}

// Result is the outcome of a completed load.
type Result struct {
	Sequence *frames.Sequence
	Slots    []frames.Slot // one per requested frame, ascending
	Failed   []int
	Stats    Stats
}

// Option configures a Loader.
type Option func(*Loader)

// WithBatchSize sets the number of concurrent requests per batch.
func WithBatchSize(n int) Option {
	return func(l *Loader) { l.batchSize = n }
}

// WithPriority loads the given frame numbers ahead of the ascending
// batches, so a first image can be shown early. They are split into batches
// of the configured size like every other frame. Numbers the spec does not
// request are ignored.
func WithPriority(numbers ...int) Option {
	return func(l *Loader) { l.priority = append([]int(nil), numbers...) }
}

// WithRetries retries transient per-frame failures up to attempts times in
// total, starting with delay between tries. The default is a single attempt.
func WithRetries(attempts int, delay time.Duration) Option {
	return func(l *Loader) {
		l.attempts = attempts
		l.delay = delay
	}
}

// WithLogger sets the logger. Per-frame failures are logged at debug level.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader fetches frames from a Source.
type Loader struct {
	src       Source
	batchSize int
	priority  []int
	attempts  int
	delay     time.Duration
	logger    *log.Logger
}

// New creates a Loader reading from src.
func New(src Source, opts ...Option) *Loader {
	l := &Loader{
		src:       src,
		batchSize: DefaultBatchSize,
		attempts:  1,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int { return l.batchSize }

// Load fetches every frame of spec and returns the loaded sequence. A load
// where every frame failed returns an empty sequence and a nil error.
func (l *Loader) Load(ctx context.Context, spec frames.Spec, cb Callbacks) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if l.batchSize < 1 {
		return nil, vpoerrors.New(vpoerrors.ErrCodeInvalidSpec, "batch size must be >= 1, got %d", l.batchSize)
	}
	if l.src == nil {
		return nil, vpoerrors.New(vpoerrors.ErrCodeInvalidInput, "loader has no frame source")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	numbers := spec.Numbers()
	st := newLoadState(spec, numbers, cb)
	batches := l.plan(spec, numbers)
	hooks := observability.Loader()
	start := time.Now()

	hooks.OnLoadStart(ctx, len(numbers), l.batchSize)
	l.logger.Debug("loading frames", "frames", len(numbers), "batches", len(batches), "batch_size", l.batchSize)

	var firstBatch time.Duration
	for i, batch := range batches {
		var g errgroup.Group
		for _, n := range batch {
			g.Go(func() error {
				url := spec.URL(n)
				t0 := time.Now()
				img, err := l.fetch(ctx, url)
				if ctx.Err() != nil {
					return nil
				}
				if err != nil {
					hooks.OnFrameFailed(ctx, url, n, err)
					l.logger.Debug("frame failed", "frame", n, "url", url, "err", err)
				} else {
					hooks.OnFrameLoaded(ctx, url, n, time.Since(t0))
				}
				st.settle(ctx, n, img, err)
				return nil
			})
		}
		_ = g.Wait() // workers never return errors

		if err := ctx.Err(); err != nil {
			l.logger.Debug("load cancelled", "batch", i+1, "of", len(batches))
			return nil, err
		}
		if i == 0 {
			firstBatch = time.Since(start)
		}
		loaded, total := st.progress()
		hooks.OnBatchComplete(ctx, i+1, loaded, total)
		st.batchDone(ctx)
	}

	res := st.result()
	res.Stats.Batches = len(batches)
	res.Stats.FirstBatch = firstBatch
	res.Stats.Total = time.Since(start)

	hooks.OnLoadComplete(ctx, res.Stats.Loaded, res.Stats.Failed, res.Stats.Total)
	l.logger.Info("loaded frames",
		"loaded", res.Stats.Loaded,
		"failed", res.Stats.Failed,
		"duration", res.Stats.Total.Round(time.Millisecond))

	if err := st.complete(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// plan splits numbers into batches of at most batchSize: priority frames
// first, then the rest in ascending order.
func (l *Loader) plan(spec frames.Spec, numbers []int) [][]int {
	seen := make(map[int]bool, len(l.priority))
	var first []int
	for _, n := range l.priority {
		if spec.Contains(n) && !seen[n] {
			seen[n] = true
			first = append(first, n)
		}
	}

	var batches [][]int
	for chunk := range slices.Chunk(first, l.batchSize) {
		batches = append(batches, chunk)
	}
	rest := make([]int, 0, len(numbers)-len(first))
	for _, n := range numbers {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	for chunk := range slices.Chunk(rest, l.batchSize) {
		batches = append(batches, chunk)
	}
	return batches
}

func (l *Loader) fetch(ctx context.Context, url string) (image.Image, error) {
	if l.attempts <= 1 {
		return l.src.Load(ctx, url)
	}
	var img image.Image
	err := httputil.Retry(ctx, l.attempts, l.delay, func() error {
		var err error
		img, err = l.src.Load(ctx, url)
		return err
	})
	return img, err
}

// loadState collects results from concurrent workers and serializes callbacks.
type loadState struct {
	mu      sync.Mutex
	spec    frames.Spec
	cb      Callbacks
	index   map[int]int
	slots   []frames.Slot
	settled int
}

func newLoadState(spec frames.Spec, numbers []int, cb Callbacks) *loadState {
	st := &loadState{
		spec:  spec,
		cb:    cb,
		index: make(map[int]int, len(numbers)),
		slots: make([]frames.Slot, len(numbers)),
	}
	for i, n := range numbers {
		st.index[n] = i
		st.slots[i] = frames.Slot{Number: n, State: frames.SlotPending}
	}
	return st
}

func (st *loadState) settle(ctx context.Context, n int, img image.Image, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	slot := &st.slots[st.index[n]]
	if err != nil || img == nil {
		if err == nil {
			err = vpoerrors.New(vpoerrors.ErrCodeInvalidFormat, "frame %d decoded to no image", n)
		}
		slot.State, slot.Err = frames.SlotAbsent, err
	} else {
		slot.State, slot.Image = frames.SlotLoaded, img
	}
	st.settled++

	if st.cb.OnFrame != nil {
		st.cb.OnFrame(*slot)
	}
	if st.cb.OnProgress != nil {
		st.cb.OnProgress(st.settled, len(st.slots))
	}
}

func (st *loadState) progress() (int, int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.settled, len(st.slots)
}

func (st *loadState) batchDone(ctx context.Context) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if ctx.Err() != nil || st.cb.OnBatch == nil {
		return
	}
	st.cb.OnBatch(frames.NewSequence(st.spec, st.loadedLocked()))
}

func (st *loadState) loadedLocked() []frames.Frame {
	var out []frames.Frame
	for _, s := range st.slots {
		if s.State == frames.SlotLoaded {
			out = append(out, frames.Frame{Number: s.Number, Image: s.Image})
		}
	}
	return out
}

func (st *loadState) result() *Result {
	st.mu.Lock()
	defer st.mu.Unlock()

	valid := st.loadedLocked()
	var failed []int
	for _, s := range st.slots {
		if s.State == frames.SlotAbsent {
			failed = append(failed, s.Number)
		}
	}
	return &Result{
		Sequence: frames.NewSequence(st.spec, valid),
		Slots:    slices.Clone(st.slots),
		Failed:   failed,
		Stats: Stats{
			Requested: len(st.slots),
			Loaded:    len(valid),
			Failed:    len(failed),
		},
	}
}

func (st *loadState) complete(ctx context.Context, res *Result) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if st.cb.OnComplete != nil {
		st.cb.OnComplete(res.Sequence.Frames(), slices.Clone(res.Failed))
	}
	return nil
}
