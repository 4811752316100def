package ticketeer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
)

// Store reads and writes per-feature JSON documents under a data
// directory. Each registry owns exactly one document; there is no
// locking or cross-document transaction here - callers serialize
// their own mutations.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates the data directory if needed and returns a Store
// rooted there.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating data dir %q: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger.With(loggerNameKey, "store")}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load reads the named document into v. A missing file or corrupt
// document is not an error: v is left as-is (callers pass a zero/default
// document) and the bot starts fresh. Corruption is logged.
func (s *Store) Load(name string, v any) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading %q: %w", s.path(name), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn(
			"corrupt document, starting fresh",
			"name", name,
			"path", s.path(name),
			tint.Err(err),
		)
		return nil
	}
	return nil
}

// Save serializes v and overwrites the named document, writing to a
// temp file in the same directory and renaming it into place so a crash
// mid-write can't truncate the previous document.
func (s *Store) Save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("error serializing %q: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file for %q: %w", name, err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("error writing %q: %w", name, writeErr)
		}
		return fmt.Errorf("error writing %q: %w", name, closeErr)
	}

	if err := os.Rename(tmpName, s.path(name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error replacing %q: %w", name, err)
	}
	return nil
}
