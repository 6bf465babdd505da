package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tabular/shotsmarts/internal/exposure"
)

type memoryBackend struct {
	mu       sync.Mutex
	records  []Record
	saves    int
	loadErr  error
	saveErr  error
	lastSave time.Time
}

func (m *memoryBackend) Load(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]Record(nil), m.records...), nil
}

func (m *memoryBackend) Save(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append([]Record(nil), records...)
	m.saves++
	m.lastSave = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return nil
}

func (m *memoryBackend) LastSaved(ctx context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSave, nil
}

func (m *memoryBackend) Name() string { return "memory" }
func (m *memoryBackend) Close() error { return nil }

func (m *memoryBackend) setSaveErr(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

// tickingClock advances one minute per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

func newTestHistory(t *testing.T, backend *memoryBackend) *History {
	t.Helper()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return NewHistory(context.Background(), backend, nil, WithClock(tickingClock(start)))
}

func draft(name string, light exposure.LightCondition, iso float64, scene exposure.SceneMode) Draft {
	return Draft{Name: name, Input: exposure.Input{LightCondition: light, ISO: iso, SceneMode: scene}}
}

func TestSaveInsertsNewestFirstAndPersists(t *testing.T) {
	backend := &memoryBackend{}
	h := newTestHistory(t, backend)
	ctx := context.Background()

	first, err := h.Save(ctx, draft("first", exposure.Sunny, 100, exposure.Landscape))
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	second, err := h.Save(ctx, draft("second", exposure.Night, 800, exposure.NightMode))
	if err != nil {
		t.Fatalf("save second: %v", err)
	}

	list := h.List()
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected [second first], got %+v", list)
	}
	if backend.saves != 2 || len(backend.records) != 2 {
		t.Fatalf("expected 2 saves of 2 records, got %d saves, %d records", backend.saves, len(backend.records))
	}
	if first.Result != first.Input.Calculate() {
		t.Fatalf("expected computed result, got %+v", first.Result)
	}
	if first.Date.Location() != time.UTC || first.Date.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("expected UTC millisecond timestamp, got %v", first.Date)
	}
}

func TestSaveKeepsProvidedResult(t *testing.T) {
	h := newTestHistory(t, &memoryBackend{})
	d := draft("custom", exposure.Sunny, 100, exposure.Portrait)
	d.Result = exposure.Result{Aperture: 4, ShutterSpeed: 250, MeteringMode: exposure.Spot}

	rec, err := h.Save(context.Background(), d)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec.Result != d.Result {
		t.Fatalf("expected result %+v, got %+v", d.Result, rec.Result)
	}
}

func TestSaveDefaultName(t *testing.T) {
	h := newTestHistory(t, &memoryBackend{})
	rec, err := h.Save(context.Background(), draft("   ", exposure.Cloudy, 200, exposure.Sport))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	want := "Shot " + rec.Date.Local().Format(defaultNameLayout)
	if rec.Name != want {
		t.Fatalf("expected %q, got %q", want, rec.Name)
	}
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	backend := &memoryBackend{}
	h := newTestHistory(t, backend)

	_, err := h.Save(context.Background(), draft("bad", exposure.Sunny, 150, exposure.Sport))
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if h.Len() != 0 || backend.saves != 0 {
		t.Fatalf("invalid draft must not be stored")
	}
}

func TestSaveFailureKeepsRecordAndMarksDirty(t *testing.T) {
	backend := &memoryBackend{}
	h := newTestHistory(t, backend)
	ctx := context.Background()

	backend.setSaveErr(errors.New("disk full"))
	rec, err := h.Save(ctx, draft("kept", exposure.Indoor, 400, exposure.Portrait))
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if _, getErr := h.Get(rec.ID); getErr != nil {
		t.Fatalf("record should remain in memory: %v", getErr)
	}
	if !h.Dirty() {
		t.Fatal("expected dirty history")
	}

	backend.setSaveErr(nil)
	if err := h.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if h.Dirty() {
		t.Fatal("expected clean history after flush")
	}
	if len(backend.records) != 1 || backend.records[0].ID != rec.ID {
		t.Fatalf("flush did not write the record: %+v", backend.records)
	}
}

func TestFlushIsNoopWhenClean(t *testing.T) {
	backend := &memoryBackend{}
	h := newTestHistory(t, backend)
	if err := h.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if backend.saves != 0 {
		t.Fatalf("expected no writes, got %d", backend.saves)
	}
}

func TestRenameRefreshesTimestampAndReorders(t *testing.T) {
	h := newTestHistory(t, &memoryBackend{})
	ctx := context.Background()

	old, _ := h.Save(ctx, draft("old", exposure.Sunny, 100, exposure.Sport))
	_, _ = h.Save(ctx, draft("new", exposure.Sunny, 100, exposure.Sport))

	renamed, err := h.Rename(ctx, old.ID, "  renamed  ")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "renamed" {
		t.Fatalf("expected trimmed name, got %q", renamed.Name)
	}
	if !renamed.Date.After(old.Date) {
		t.Fatalf("expected refreshed date, old %v new %v", old.Date, renamed.Date)
	}
	if list := h.List(); list[0].ID != old.ID {
		t.Fatalf("renamed record should move to the front, got %q", list[0].Name)
	}
}

func TestRenameSameNameIsNoop(t *testing.T) {
	backend := &memoryBackend{}
	h := newTestHistory(t, backend)
	ctx := context.Background()

	rec, _ := h.Save(ctx, draft("same", exposure.Sunny, 100, exposure.Sport))
	got, err := h.Rename(ctx, rec.ID, "same")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if !got.Date.Equal(rec.Date) || backend.saves != 1 {
		t.Fatalf("expected unchanged record and no extra write")
	}
}

func TestRenameErrors(t *testing.T) {
	h := newTestHistory(t, &memoryBackend{})
	ctx := context.Background()
	rec, _ := h.Save(ctx, draft("x", exposure.Sunny, 100, exposure.Sport))

	if _, err := h.Rename(ctx, rec.ID, " "); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if _, err := h.Rename(ctx, uuid.New(), "y"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplace(t *testing.T) {
	h := newTestHistory(t, &memoryBackend{})
	ctx := context.Background()
	rec, _ := h.Save(ctx, draft("orig", exposure.Sunny, 100, exposure.Sport))

	rec.Notes = "tripod"
	rec.ISO = 400
	got, err := h.Replace(ctx, rec)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	stored, _ := h.Get(rec.ID)
	if stored.Notes != "tripod" || stored.ISO != 400 || got.Notes != "tripod" {
		t.Fatalf("replace not applied: %+v", stored)
	}

	missing := rec
	missing.ID = uuid.New()
	if _, err := h.Replace(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	rec.ISO = 5
	if _, err := h.Replace(ctx, rec); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestDeleteIsAllOrNothing(t *testing.T) {
	backend := &memoryBackend{}
	h := newTestHistory(t, backend)
	ctx := context.Background()

	a, _ := h.Save(ctx, draft("a", exposure.Sunny, 100, exposure.Sport))
	b, _ := h.Save(ctx, draft("b", exposure.Sunny, 100, exposure.Sport))
	c, _ := h.Save(ctx, draft("c", exposure.Sunny, 100, exposure.Sport))

	if err := h.Delete(ctx, a.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if h.Len() != 3 {
		t.Fatalf("unknown id must not remove anything, have %d", h.Len())
	}

	if err := h.Delete(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list := h.List()
	if len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("expected only b, got %+v", list)
	}
	if len(backend.records) != 1 {
		t.Fatalf("delete not persisted")
	}
}

func TestClear(t *testing.T) {
	backend := &memoryBackend{}
	h := newTestHistory(t, backend)
	ctx := context.Background()
	_, _ = h.Save(ctx, draft("a", exposure.Sunny, 100, exposure.Sport))

	if err := h.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if h.Len() != 0 || len(backend.records) != 0 {
		t.Fatal("expected empty history")
	}
}

func TestSearch(t *testing.T) {
	h := newTestHistory(t, &memoryBackend{})
	ctx := context.Background()
	_, _ = h.Save(ctx, draft("Beach Sunset", exposure.Sunny, 100, exposure.Landscape))
	_, _ = h.Save(ctx, draft("city night", exposure.Night, 1600, exposure.NightMode))
	_, _ = h.Save(ctx, draft("Sunny portrait", exposure.Sunny, 100, exposure.Portrait))

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"sun", 2},
		{"NIGHT", 1},
		{"  beach ", 1},
		{"forest", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := h.Search(tt.query); len(got) != tt.want {
				t.Fatalf("Search(%q) returned %d records, want %d", tt.query, len(got), tt.want)
			}
		})
	}
}

func TestListReturnsCopy(t *testing.T) {
	h := newTestHistory(t, &memoryBackend{})
	_, _ = h.Save(context.Background(), draft("a", exposure.Sunny, 100, exposure.Sport))

	list := h.List()
	list[0].Name = "mutated"
	if got := h.List()[0].Name; got != "a" {
		t.Fatalf("List exposed internal state, name now %q", got)
	}
}

func TestNewHistorySortsLoadedRecords(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	backend := &memoryBackend{records: []Record{
		{ID: uuid.New(), Name: "oldest", Date: base},
		{ID: uuid.New(), Name: "newest", Date: base.Add(2 * time.Hour)},
		{ID: uuid.New(), Name: "middle", Date: base.Add(time.Hour)},
	}}
	h := NewHistory(context.Background(), backend, nil)

	list := h.List()
	for i, want := range []string{"newest", "middle", "oldest"} {
		if list[i].Name != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, list[i].Name)
		}
	}
}

func TestNewHistoryStartsEmptyOnLoadError(t *testing.T) {
	backend := &memoryBackend{loadErr: ErrCorrupt}
	h := NewHistory(context.Background(), backend, nil)
	if h.Len() != 0 {
		t.Fatalf("expected empty history, got %d", h.Len())
	}
}

func TestStats(t *testing.T) {
	backend := &memoryBackend{}
	h := newTestHistory(t, backend)
	ctx := context.Background()
	first, _ := h.Save(ctx, draft("a", exposure.Sunny, 100, exposure.Sport))
	_, _ = h.Save(ctx, draft("b", exposure.Sunny, 200, exposure.Portrait))
	last, _ := h.Save(ctx, draft("c", exposure.Night, 800, exposure.NightMode))

	stats, err := h.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.RecordCount != 3 || stats.Backend != "memory" || stats.Dirty {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if !stats.Oldest.Equal(first.Date) || !stats.Newest.Equal(last.Date) {
		t.Fatalf("unexpected range %v..%v", stats.Oldest, stats.Newest)
	}
	if stats.ByLight[exposure.Sunny] != 2 || stats.ByScene[exposure.NightMode] != 1 {
		t.Fatalf("unexpected breakdown: %+v %+v", stats.ByLight, stats.ByScene)
	}
	if stats.LastSaved.IsZero() {
		t.Fatal("expected last saved time")
	}
}
