package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/clipfeed/newsbrief/pkg/domain"
)

// JobStore is the durable record of all schedule definitions, kept as a
// JSON array file rewritten wholesale on every change. It is the source of
// truth; live triggers are rebuilt from it on startup. All operations are
// serialized by a single lock to keep load-modify-save atomic.
type JobStore struct {
	path string
	mu   sync.Mutex
}

// NewJobStore creates a job store backed by the given file path
func NewJobStore(path string) *JobStore {
	return &JobStore{path: path}
}

// Load returns all schedule entries. A missing file means no schedules yet.
func (s *JobStore) Load() ([]domain.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save overwrites the whole collection
func (s *JobStore) Save(entries []domain.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(entries)
}

// Add appends a schedule entry to the durable collection
func (s *JobStore) Add(entry domain.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(entries, entry))
}

// Remove filters the id out of the durable collection. Returns false and
// leaves the file untouched when the id is not present.
func (s *JobStore) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return false, err
	}

	kept := make([]domain.ScheduleEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return false, nil
	}
	if err := s.save(kept); err != nil {
		return false, err
	}
	return true, nil
}

func (s *JobStore) load() ([]domain.ScheduleEntry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []domain.ScheduleEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schedules: %w", err)
	}

	var entries []domain.ScheduleEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse schedules: %w", err)
	}
	return entries, nil
}

func (s *JobStore) save(entries []domain.ScheduleEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schedules: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// can't leave a truncated collection behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
