package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/continual-learning/internal/engine"
	"github.com/roach88/continual-learning/internal/ir"
)

// Relative locations under the working directory.
const (
	StateDir      = ".cursor/hooks/state"
	StateFileName = "continual-learning.json"
)

// FileMode is the permission of the persisted record.
const FileMode fs.FileMode = 0o644

// DirMode is the permission used when creating the state directory.
const DirMode fs.FileMode = 0o755

// Store loads and saves the engine record.
type Store interface {
	// Load returns the stored record, or a fresh one when nothing usable is
	// stored. It never fails.
	Load(ctx context.Context) ir.EngineState

	// Save replaces the stored record.
	Save(ctx context.Context, st ir.EngineState) error
}

// PathFor returns the state file path for a working directory.
func PathFor(workDir string) string {
	return filepath.Join(workDir, StateDir, StateFileName)
}

// FileStore keeps the record in a single JSON file.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore returns a store for the given file path. A nil logger
// discards diagnostics.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}

// Exists reports whether a record file is present on disk.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the record. Any problem is logged and yields a fresh record.
func (s *FileStore) Load(ctx context.Context) ir.EngineState {
	if err := ctx.Err(); err != nil {
		s.logger.Warn("state load cancelled", "path", s.path, "error", err)
		return ir.NewEngineState()
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("state file unreadable, starting fresh",
				"code", engine.ErrCodeStateCorrupt, "path", s.path, "error", err)
		}
		return ir.NewEngineState()
	}

	st, fallbacks, err := DecodeFields(data)
	if err != nil {
		s.logger.Warn("state file discarded, starting fresh",
			"code", engine.ErrCodeStateCorrupt, "path", s.path, "error", err)
		return st
	}
	if len(fallbacks) > 0 {
		s.logger.Warn("state fields reset to defaults",
			"code", engine.ErrCodeStateCorrupt, "path", s.path, "fields", fallbacks)
	}
	return st
}

// Save writes the whole record atomically: temp file in the same directory,
// fsync, chmod, rename.
func (s *FileStore) Save(ctx context.Context, st ir.EngineState) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	data, err := Encode(st)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("save state %s: %w", s.path, err)
	}
	s.logger.Debug("state saved", "path", s.path, "turns", st.TurnsSinceLastRun)
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return err
	}
	file, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(file.Name())
	}()

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Chmod(FileMode); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(file.Name(), path)
}
