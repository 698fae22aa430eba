package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/clipfeed/newsbrief/pkg/domain"
)

// MaxLogEntries caps the durable execution history; the oldest entries are
// silently dropped past the cap.
const MaxLogEntries = 100

// ExecLog is the append-only history of pipeline runs, persisted as a JSON
// array file truncated to the most recent MaxLogEntries on every append.
type ExecLog struct {
	path string
	mu   sync.Mutex
}

// NewExecLog creates an execution log backed by the given file path
func NewExecLog(path string) *ExecLog {
	return &ExecLog{path: path}
}

// Append records one pipeline run, trimming the history to the cap
func (l *ExecLog) Append(entry domain.ExecutionLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}

	entries = append(entries, entry)
	if len(entries) > MaxLogEntries {
		entries = entries[len(entries)-MaxLogEntries:]
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal execution log: %w", err)
	}
	return writeFileAtomic(l.path, data)
}

// Recent returns up to limit entries, newest first
func (l *ExecLog) Recent(limit int) ([]domain.ExecutionLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	// newest first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (l *ExecLog) load() ([]domain.ExecutionLogEntry, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return []domain.ExecutionLogEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read execution log: %w", err)
	}

	var entries []domain.ExecutionLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse execution log: %w", err)
	}
	return entries, nil
}
