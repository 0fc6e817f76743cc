package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestFileStoreRecordRecent(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "metrics.jsonl"))

	if got, err := s.Recent(ctx, "", 10); err != nil || len(got) != 0 {
		t.Fatalf("Recent on missing file = (%v, %v), want empty", got, err)
	}

	for i, scene := range []string{"scene2", "optimized", "scene2", "scene2"} {
		err := s.Record(ctx, LoadMetrics{
			Scene:         scene,
			FramesLoaded:  i,
			TotalFrames:   10,
			TotalLoadTime: time.Duration(i) * time.Second,
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := s.Recent(ctx, "", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Recent(all) = %d records, want 4", len(all))
	}
	if all[0].FramesLoaded != 3 {
		t.Errorf("newest record FramesLoaded = %d, want 3", all[0].FramesLoaded)
	}
	if all[0].RunID == "" || all[0].RecordedAt.IsZero() {
		t.Error("Record should stamp RunID and RecordedAt")
	}
	if all[0].RunID == all[1].RunID {
		t.Error("run IDs should be unique")
	}

	scene2, _ := s.Recent(ctx, "scene2", 2)
	if len(scene2) != 2 || scene2[0].FramesLoaded != 3 || scene2[1].FramesLoaded != 2 {
		t.Errorf("Recent(scene2, 2) = %+v", scene2)
	}
	if scene2[0].TotalLoadTime != 3*time.Second {
		t.Errorf("TotalLoadTime = %v, want 3s", scene2[0].TotalLoadTime)
	}
}

func TestFileStoreSkipsCorruptLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "m.jsonl")
	if err := os.WriteFile(path, []byte("not json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path)
	if err := s.Record(ctx, LoadMetrics{Scene: "scene3"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Recent(ctx, "", 0)
	if err != nil || len(got) != 1 {
		t.Errorf("Recent = (%d, %v), want 1 record", len(got), err)
	}
}

func TestSuccessRate(t *testing.T) {
	if r := (LoadMetrics{FramesLoaded: 45, TotalFrames: 50}).SuccessRate(); r != 0.9 {
		t.Errorf("SuccessRate = %v, want 0.9", r)
	}
	if r := (LoadMetrics{}).SuccessRate(); r != 0 {
		t.Errorf("SuccessRate of empty = %v, want 0", r)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{Path: filepath.Join(t.TempDir(), "m.jsonl")})
	if err != nil {
		t.Fatalf("Open(file): %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("Open(file) = %T", s)
	}
	if s, _ := Open(ctx, Options{Backend: BackendNone}); s == nil {
		t.Error("Open(none) returned nil")
	}
	if _, err := Open(ctx, Options{Backend: "sqlite"}); err == nil {
		t.Error("Open(sqlite) should fail")
	}
	if _, err := Open(ctx, Options{Backend: BackendMongo}); err == nil {
		t.Error("Open(mongo) without uri should fail")
	}
}

func TestRecentQuery(t *testing.T) {
	filter, opts := recentQuery("scene3", 5)
	if filter["scene"] != "scene3" {
		t.Errorf("filter = %v, want scene=scene3", filter)
	}
	if opts.Limit == nil || *opts.Limit != 5 {
		t.Errorf("limit = %v, want 5", opts.Limit)
	}
	sort, ok := opts.Sort.(bson.D)
	if !ok || len(sort) != 1 || sort[0].Key != "recorded_at" || sort[0].Value != -1 {
		t.Errorf("sort = %v, want recorded_at desc", opts.Sort)
	}

	filter, opts = recentQuery("", 0)
	if len(filter) != 0 || opts.Limit != nil {
		t.Errorf("recentQuery(\"\", 0) = (%v, limit %v), want empty filter and no limit", filter, opts.Limit)
	}
}
