package controller

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"targetview/tools/util/logutil"
)

// QueryStore persists the current search query outside the controller,
// so the filter survives a restart the same way a page keeps its query
// in the location bar. Reads happen once at startup; writes happen on
// every query change, write-through.
type QueryStore interface {
	Read() string
	Write(query string)
}

// FileQueryStore keeps the query in a small state file under the agent
// home directory, next to the agent's other local state.
type FileQueryStore struct {
	path string
}

// NewFileQueryStore creates a store backed by <homeDir>/search_state.
func NewFileQueryStore(homeDir string) *FileQueryStore {
	return &FileQueryStore{path: filepath.Join(homeDir, "search_state")}
}

func (s *FileQueryStore) Read() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		// A missing state file just means no persisted query yet.
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (s *FileQueryStore) Write(query string) {
	if err := os.WriteFile(s.path, []byte(query), 0644); err != nil {
		logutil.Errorf("QUERY_STORE", "Failed to persist query to %s: %v", s.path, err)
	}
}

// MemoryQueryStore is an in-process store for tests and standalone runs.
type MemoryQueryStore struct {
	mu    sync.Mutex
	query string
}

func NewMemoryQueryStore(initial string) *MemoryQueryStore {
	return &MemoryQueryStore{query: initial}
}

func (s *MemoryQueryStore) Read() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

func (s *MemoryQueryStore) Write(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
}
