package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	l := NoopLoaderHooks{}
	l.OnLoadStart(ctx, 226, 15)
	l.OnFrameLoaded(ctx, "https://x/frame1.jpg", 1, time.Millisecond)
	l.OnFrameFailed(ctx, "https://x/frame2.jpg", 2, errors.New("boom"))
	l.OnBatchComplete(ctx, 1, 15, 226)
	l.OnLoadComplete(ctx, 225, 1, time.Second)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "frame")
	c.OnCacheMiss(ctx, "render")
	c.OnCacheSet(ctx, "frame", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "dev.heyharoon.io", "/frame1.jpg")
	h.OnResponse(ctx, "GET", "dev.heyharoon.io", "/frame1.jpg", 200, time.Second)
	h.OnError(ctx, "GET", "dev.heyharoon.io", "/frame1.jpg", nil)

	r := NoopRenderHooks{}
	r.OnRender(ctx, 6, 11, 0.4, time.Millisecond)
	r.OnEncode(ctx, "png", 2048, time.Millisecond, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Loader().(NoopLoaderHooks); !ok {
		t.Error("Loader() should return NoopLoaderHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}
	if _, ok := Render().(NoopRenderHooks); !ok {
		t.Error("Render() should return NoopRenderHooks by default")
	}

	loader := &countingLoaderHooks{}
	SetLoaderHooks(loader)
	if Loader() != loader {
		t.Error("SetLoaderHooks should set custom hooks")
	}

	// nil must not clear a registered hook
	SetLoaderHooks(nil)
	if Loader() != loader {
		t.Error("SetLoaderHooks(nil) should be ignored")
	}

	Loader().OnFrameLoaded(context.Background(), "u", 1, 0)
	if loader.loaded != 1 {
		t.Errorf("loaded = %d, want 1", loader.loaded)
	}

	Reset()
	if _, ok := Loader().(NoopLoaderHooks); !ok {
		t.Error("Reset should restore NoopLoaderHooks")
	}
}

func TestConcurrentHookAccess(t *testing.T) {
	Reset()
	defer Reset()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetCacheHooks(NoopCacheHooks{})
		}()
		go func() {
			defer wg.Done()
			Cache().OnCacheHit(context.Background(), "frame")
		}()
	}
	wg.Wait()
}

type countingLoaderHooks struct {
	NoopLoaderHooks
	loaded int
}

func (h *countingLoaderHooks) OnFrameLoaded(context.Context, string, int, time.Duration) {
	h.loaded++
}
