package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tabular/shotsmarts/internal/exposure"
	"github.com/tabular/shotsmarts/internal/storage"
)

type staticSource struct {
	mu      sync.Mutex
	records []storage.Record
}

func (s *staticSource) List() []storage.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.Record(nil), s.records...)
}

func (s *staticSource) add(rec storage.Record) {
	s.mu.Lock()
	s.records = append([]storage.Record{rec}, s.records...)
	s.mu.Unlock()
}

func record(name string, date time.Time) storage.Record {
	in := exposure.Input{LightCondition: exposure.Sunny, ISO: 200, SceneMode: exposure.Landscape}
	return storage.Record{ID: uuid.New(), Name: name, Date: date, Input: in, Result: in.Calculate()}
}

func secondClock() func() time.Time {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestRunOnceWritesLegacySnapshot(t *testing.T) {
	dir := t.TempDir()
	src := &staticSource{}
	src.add(record("beach", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))

	s := NewScheduler(src, dir, "", 3, nil, WithClock(secondClock()))
	path, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if path == "" {
		t.Fatal("expected a snapshot to be written")
	}
	if filepath.Base(path) != "savedParameters-20250101T000001.000Z.json" {
		t.Fatalf("unexpected snapshot name %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	records, err := storage.DecodeRecords(data)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(records) != 1 || records[0].Name != "beach" {
		t.Fatalf("unexpected snapshot content %+v", records)
	}
}

func TestRunOnceSkipsUnchangedHistory(t *testing.T) {
	dir := t.TempDir()
	src := &staticSource{}
	src.add(record("a", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
	s := NewScheduler(src, dir, "", 5, nil, WithClock(secondClock()))
	ctx := context.Background()

	if path, err := s.RunOnce(ctx); err != nil || path == "" {
		t.Fatalf("first run: %q, %v", path, err)
	}
	if path, err := s.RunOnce(ctx); err != nil || path != "" {
		t.Fatalf("unchanged history should be skipped, got %q, %v", path, err)
	}

	src.add(record("b", time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)))
	if path, err := s.RunOnce(ctx); err != nil || path == "" {
		t.Fatalf("changed history should be written, got %q, %v", path, err)
	}

	paths, _ := s.Snapshots()
	if len(paths) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(paths))
	}
}

func TestRunOnceSkipsAfterRestart(t *testing.T) {
	dir := t.TempDir()
	src := &staticSource{}
	src.add(record("a", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	first := NewScheduler(src, dir, "", 5, nil, WithClock(secondClock()))
	if _, err := first.RunOnce(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := NewScheduler(src, dir, "", 5, nil)
	path, err := second.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if path != "" {
		t.Fatalf("snapshot on disk matches history, expected skip, wrote %s", path)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	src := &staticSource{}
	s := NewScheduler(src, dir, "", 2, nil, WithClock(secondClock()))
	ctx := context.Background()

	var written []string
	for i := 0; i < 4; i++ {
		src.add(record("r", time.Date(2025, 3, 1, i, 0, 0, 0, time.UTC)))
		path, err := s.RunOnce(ctx)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		written = append(written, path)
	}

	paths, err := s.Snapshots()
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 snapshots after prune, got %v", paths)
	}
	if paths[0] != written[3] || paths[1] != written[2] {
		t.Fatalf("expected the newest two, got %v", paths)
	}
}

func TestSnapshotsIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"notes.txt", "savedParameters-x.json.tmp", "savedParameters-20250101T000000.000Z.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	s := NewScheduler(&staticSource{}, dir, "", 1, nil)
	paths, err := s.Snapshots()
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected only the snapshot file, got %v", paths)
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&staticSource{}, t.TempDir(), "not a cron spec", 1, nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid spec")
	}
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&staticSource{}, t.TempDir(), "@daily", 1, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()

	disabled := NewScheduler(&staticSource{}, t.TempDir(), "", 1, nil)
	if err := disabled.Start(); err != nil {
		t.Fatalf("disabled start: %v", err)
	}
	disabled.Stop()
}
