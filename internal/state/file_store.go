package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/systmms/arkit/pkg/connect"
)

// SessionFile is the name of the file holding the persisted session
const SessionFile = "session.json"

// FileStore implements connect.Store using the filesystem
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a store keeping its file under baseDir
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// DefaultStateDir returns the default state directory
func DefaultStateDir() string {
	if dir := os.Getenv("ARKIT_STATE_DIR"); dir != "" {
		return dir
	}

	if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
		return filepath.Join(xdgState, "arkit")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "arkit")
	}

	// Last resort: use temp directory
	return filepath.Join(os.TempDir(), "arkit")
}

// Path returns the session file path
func (s *FileStore) Path() string {
	return filepath.Join(s.baseDir, SessionFile)
}

// Load reads the persisted session. It returns nil when none is stored.
func (s *FileStore) Load(ctx context.Context) (*connect.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var rec connect.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", s.Path(), err)
	}
	if rec.StrategyID == "" {
		return nil, nil
	}
	return &rec, nil
}

// Save writes rec, replacing any previous session
func (s *FileStore) Save(ctx context.Context, rec connect.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.baseDir, 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write then rename so a crash never leaves a torn file
	tmp, err := os.CreateTemp(s.baseDir, SessionFile+".*")
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Clearing an empty store succeeds.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

var _ connect.Store = (*FileStore)(nil)
