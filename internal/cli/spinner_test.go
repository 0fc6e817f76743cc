package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerShowsUpdatedMessage(t *testing.T) {
	var out syncBuffer
	s := newSpinner("Loading 0%")
	s.out = &out
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.SetMessage("Loading 50%")
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	got := out.String()
	for _, want := range []string{"Loading 0%", "Loading 50%"} {
		if !strings.Contains(got, want) {
			t.Errorf("spinner output missing %q", want)
		}
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerWithContext(ctx, "Testing with context...")
	s.out = &syncBuffer{}
	s.Start()
	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
}

func TestSpinnerWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinnerWithContext(ctx, "Testing with timeout...")
	s.out = &syncBuffer{}
	s.Start()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context timeout")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner("Testing idempotent stop...")
	s.out = &syncBuffer{}
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithOutcome(t *testing.T) {
	tests := []struct {
		name string
		stop func(*Spinner, string)
		icon string
	}{
		{"success", (*Spinner).StopWithSuccess, iconSuccess},
		{"error", (*Spinner).StopWithError, iconError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out syncBuffer
			s := newSpinner("Loading lobby")
			s.out = &out
			s.Start()
			tt.stop(s, "lobby unavailable")

			got := out.String()
			if !strings.HasSuffix(got, "lobby unavailable\n") || !strings.Contains(got, tt.icon) {
				t.Errorf("output = %q, want a final %s line", got, tt.icon)
			}
		})
	}
}
