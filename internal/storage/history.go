package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tabular/shotsmarts/internal/exposure"
	"github.com/tabular/shotsmarts/internal/logging"
)

const defaultNameLayout = "2006-01-02 15:04"

// History is the ordered collection of saved records, newest first. The
// in-memory slice is the source of truth; every mutation is written to the
// backend afterwards, and a failed write leaves the mutation in place and
// marks the collection dirty until a later write succeeds.
type History struct {
	mu      sync.RWMutex
	backend Backend
	logger  *logging.Logger
	now     func() time.Time
	records []Record
	dirty   bool
}

type Option func(*History)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *History) { h.now = now }
}

// NewHistory loads the collection from backend. A load failure is logged
// and the history starts empty.
func NewHistory(ctx context.Context, backend Backend, logger *logging.Logger, opts ...Option) *History {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &History{
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	records, err := backend.Load(ctx)
	if err != nil {
		h.logger.Error("Failed to load history, starting empty",
			"backend", backend.Name(),
			"error", err,
		)
		records = nil
	}
	sortNewestFirst(records)
	h.records = records

	h.logger.Info("History loaded", "backend", backend.Name(), "records", len(records))
	return h
}

func (h *History) timestamp() time.Time {
	return h.now().UTC().Truncate(time.Millisecond)
}

// Save stores a new record built from draft and returns it. The record is
// kept even when the returned error wraps ErrPersist.
func (h *History) Save(ctx context.Context, draft Draft) (Record, error) {
	if err := draft.Input.Validate(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	now := h.timestamp()
	rec := Record{
		ID:     uuid.New(),
		Name:   strings.TrimSpace(draft.Name),
		Date:   now,
		Notes:  draft.Notes,
		Input:  draft.Input,
		Result: draft.Result,
	}
	if rec.Name == "" {
		rec.Name = "Shot " + now.Local().Format(defaultNameLayout)
	}
	if rec.Result == (exposure.Result{}) {
		rec.Result = draft.Input.Calculate()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append([]Record{rec}, h.records...)
	sortNewestFirst(h.records)

	h.logger.Info("Saved record", "record_id", rec.ID, "name", rec.Name)
	return rec, h.persistLocked(ctx)
}

// Rename changes a record's name and refreshes its timestamp. Renaming to
// the current name changes nothing.
func (h *History) Rename(ctx context.Context, id uuid.UUID, name string) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidRecord)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	i := h.indexLocked(id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if h.records[i].Name == name {
		return h.records[i], nil
	}

	old := h.records[i].Name
	h.records[i].Name = name
	h.records[i].Date = h.timestamp()
	rec := h.records[i]
	sortNewestFirst(h.records)

	h.logger.Info("Renamed record", "record_id", id, "from", old, "to", name)
	return rec, h.persistLocked(ctx)
}

// Replace overwrites the record with the same ID.
func (h *History) Replace(ctx context.Context, rec Record) (Record, error) {
	if err := rec.Input.Validate(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		return Record{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidRecord)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	i := h.indexLocked(rec.ID)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}
	if rec.Date.IsZero() {
		rec.Date = h.timestamp()
	}
	h.records[i] = rec
	sortNewestFirst(h.records)

	h.logger.Info("Replaced record", "record_id", rec.ID)
	return rec, h.persistLocked(ctx)
}

// Delete removes the records with the given IDs. Nothing is removed if
// any ID is unknown.
func (h *History) Delete(ctx context.Context, ids ...uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if h.indexLocked(id) < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		drop[id] = true
	}

	kept := h.records[:0:0]
	for _, rec := range h.records {
		if !drop[rec.ID] {
			kept = append(kept, rec)
		}
	}
	h.records = kept

	h.logger.Info("Deleted records", "count", len(drop))
	return h.persistLocked(ctx)
}

// Clear removes every record.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.records)
	h.records = nil
	h.logger.Info("Cleared history", "count", n)
	return h.persistLocked(ctx)
}

// Flush writes the collection if an earlier write failed.
func (h *History) Flush(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty {
		return nil
	}
	return h.persistLocked(ctx)
}

func (h *History) Get(id uuid.UUID) (Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	i := h.indexLocked(id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return h.records[i], nil
}

// List returns a copy of the collection, newest first.
func (h *History) List() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return append([]Record(nil), h.records...)
}

// Search returns records whose name contains query, ignoring case. An
// empty query matches everything.
func (h *History) Search(query string) []Record {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return h.List()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Record
	for _, rec := range h.records {
		if strings.Contains(strings.ToLower(rec.Name), query) {
			out = append(out, rec)
		}
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Dirty reports whether the last write failed.
func (h *History) Dirty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dirty
}

func (h *History) Stats(ctx context.Context) (Stats, error) {
	h.mu.RLock()
	stats := Stats{
		RecordCount: len(h.records),
		ByLight:     make(map[exposure.LightCondition]int),
		ByScene:     make(map[exposure.SceneMode]int),
		Backend:     h.backend.Name(),
		Dirty:       h.dirty,
	}
	if n := len(h.records); n > 0 {
		stats.Newest = h.records[0].Date
		stats.Oldest = h.records[n-1].Date
	}
	for _, rec := range h.records {
		stats.ByLight[rec.LightCondition]++
		stats.ByScene[rec.SceneMode]++
	}
	h.mu.RUnlock()

	last, err := h.backend.LastSaved(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read last save time: %w", err)
	}
	stats.LastSaved = last
	return stats, nil
}

func (h *History) indexLocked(id uuid.UUID) int {
	for i, rec := range h.records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func (h *History) persistLocked(ctx context.Context) error {
	snapshot := append([]Record(nil), h.records...)
	if err := h.backend.Save(ctx, snapshot); err != nil {
		h.dirty = true
		h.logger.Error("Failed to persist history",
			"backend", h.backend.Name(),
			"records", len(snapshot),
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	h.dirty = false
	return nil
}

func sortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
}
