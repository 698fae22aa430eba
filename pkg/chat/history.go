package chat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/clipfeed/newsbrief/pkg/domain"
)

// Turn is one chat exchange entry. Cards are set only on news_cards turns.
type Turn struct {
	Role      string        `json:"role"`
	Content   string        `json:"content,omitempty"`
	Cards     []domain.Card `json:"cards,omitempty"`
	Timestamp time.Time     `json:"timestamp,omitempty"`
}

// History persists the conversation as a JSON array file, loaded at
// startup and rewritten after every turn.
type History struct {
	path string

	mu    sync.Mutex
	turns []Turn
}

// LoadHistory reads the conversation from the given file; a missing file
// starts an empty conversation.
func LoadHistory(path string) (*History, error) {
	h := &History{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chat history: %w", err)
	}
	if err := json.Unmarshal(data, &h.turns); err != nil {
		return nil, fmt.Errorf("parse chat history: %w", err)
	}
	return h, nil
}

// Append adds turns to the conversation and rewrites the file
func (h *History) Append(turns ...Turn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, turns...)

	data, err := json.MarshalIndent(h.turns, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chat history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(h.path), filepath.Base(h.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write chat history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), h.path); err != nil {
		return fmt.Errorf("replace chat history: %w", err)
	}
	return nil
}

// Turns returns a copy of the conversation
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}
