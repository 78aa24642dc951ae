package testutil

import "sync"

// StaticTranscripts is an in-memory transcript mtime table.
//
// It satisfies engine.TranscriptSource. Paths that were never Set, or
// were Removed, report as unreachable.
type StaticTranscripts struct {
	mu     sync.Mutex
	mtimes map[string]int64
}

// NewStaticTranscripts creates an empty table.
func NewStaticTranscripts() *StaticTranscripts {
	return &StaticTranscripts{mtimes: make(map[string]int64)}
}

// Set records the mtime of path.
func (s *StaticTranscripts) Set(path string, ms int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mtimes[path] = ms
}

// Remove makes path unreachable.
func (s *StaticTranscripts) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mtimes, path)
}

// MtimeMs returns the recorded mtime of path.
func (s *StaticTranscripts) MtimeMs(path string) (int64, bool) {
	if path == "" {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.mtimes[path]
	return ms, ok
}
