// Package backup snapshots the history into dated JSON files on a cron
// schedule.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tabular/shotsmarts/internal/logging"
	"github.com/tabular/shotsmarts/internal/storage"
)

const (
	filePrefix = "savedParameters-"
	fileSuffix = ".json"
	timeLayout = "20060102T150405.000Z"

	runTimeout = 2 * time.Minute
)

// Source supplies the records to back up.
type Source interface {
	List() []storage.Record
}

// Scheduler writes a snapshot whenever the collection changed since the
// last one and keeps only the newest files.
type Scheduler struct {
	cron   *cron.Cron
	source Source
	dir    string
	spec   string
	keep   int
	logger *logging.Logger
	now    func() time.Time

	mu              sync.Mutex
	lastFingerprint string
}

type Option func(*Scheduler)

// WithClock replaces time.Now for snapshot names.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a scheduler. An empty spec disables the periodic
// job; RunOnce still works.
func NewScheduler(source Source, dir, spec string, keep int, logger *logging.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if keep < 1 {
		keep = 1
	}
	s := &Scheduler{
		source: source,
		dir:    dir,
		spec:   strings.TrimSpace(spec),
		keep:   keep,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(cron.WithLogger(cronLogger{logger}))
	return s
}

// Start registers the job and starts the cron runner.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.logger.Info("Backups disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("failed to schedule backup %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("Backup scheduler started", "schedule", s.spec, "dir", s.dir, "keep", s.keep)
	return nil
}

// Stop stops the runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Backup scheduler stopped")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("Scheduled backup failed", "error", err)
	}
}

// RunOnce writes a snapshot unless the collection is unchanged since the
// newest one. It returns the written path, or "" when skipped.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	records := s.source.List()
	fingerprint := Fingerprint(records)

	if s.lastFingerprint == "" {
		s.lastFingerprint = s.newestFingerprint()
	}
	if fingerprint == s.lastFingerprint {
		s.logger.Debug("Backup skipped, history unchanged", "records", len(records))
		return "", nil
	}

	data, err := storage.EncodeRecords(records)
	if err != nil {
		return "", err
	}

	name := filePrefix + s.now().UTC().Format(timeLayout) + fileSuffix
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize backup: %w", err)
	}
	s.lastFingerprint = fingerprint

	s.logger.Info("Backup written", "path", path, "records", len(records))

	if err := s.prune(); err != nil {
		return path, err
	}
	return path, nil
}

// Snapshots lists backup files, newest first.
func (s *Scheduler) Snapshots() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, name)
	}
	// timestamps sort lexically
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(s.dir, name)
	}
	return paths, nil
}

func (s *Scheduler) prune() error {
	paths, err := s.Snapshots()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(paths) <= s.keep {
		return nil
	}

	for _, path := range paths[s.keep:] {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to prune %s: %w", path, err)
		}
		s.logger.Debug("Pruned backup", "path", path)
	}
	return nil
}

// newestFingerprint fingerprints the newest snapshot on disk so a restart
// does not write a duplicate.
func (s *Scheduler) newestFingerprint() string {
	paths, err := s.Snapshots()
	if err != nil || len(paths) == 0 {
		return ""
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return ""
	}
	records, err := storage.DecodeRecords(data)
	if err != nil {
		s.logger.Warn("Newest backup is unreadable", "path", paths[0], "error", err)
		return ""
	}
	return Fingerprint(records)
}

// cronLogger routes cron's own messages to the application logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
