package event

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/power-alert/internal/config"
	"github.com/oshokin/power-alert/internal/domain/alert"
)

// Repository defines persistence operations for the last alert event.
type Repository interface {
	Load(ctx context.Context) (*alert.Event, error)
	Save(ctx context.Context, ev *alert.Event) error
}

// FileRepository persists the last alert event to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the event file.
	path string
	// mu protects concurrent access to the event file.
	mu sync.Mutex
}

// ErrNotFound is returned when no event has been recorded yet.
var ErrNotFound = errors.New("event not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the event from disk.
func (r *FileRepository) Load(_ context.Context) (*alert.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read event file: %w", err)
	}

	return Unmarshal(contents)
}

// Save writes the event to disk, replacing the previous one. The record is
// written and synced to a temporary sibling, then renamed over the old file,
// so a power cut leaves either the old or the new record.
func (r *FileRepository) Save(_ context.Context, ev *alert.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := Marshal(ev)
	if err != nil {
		return err
	}

	tmpPath := r.path + ".tmp"
	if err = writeSynced(tmpPath, data); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("write event file: %w", err)
	}

	if err = os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("replace event file: %w", err)
	}

	syncDir(filepath.Dir(r.path))

	return nil
}

// writeSynced writes data and flushes it to stable storage before returning.
func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, config.DefaultFilePermissions)
	if err != nil {
		return err
	}

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}

	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// syncDir persists the rename. Not every platform can sync a directory, so
// failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}

	_ = d.Sync()
	_ = d.Close()
}
