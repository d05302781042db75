package filesync

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ErrUnsafePath is returned for names that would resolve outside the data directory.
var ErrUnsafePath = errors.New("path escapes data directory")

// Executor applies server file instructions to the local data directory.
//
// Writes are not atomic: a failed Write may leave a truncated or partial
// file behind. The next sync reports its fingerprint and the server resends it.
type Executor struct {
	root   string
	logger zerolog.Logger
}

// NewExecutor returns an Executor rooted at dir.
func NewExecutor(dir string, logger zerolog.Logger) *Executor {
	return &Executor{
		root:   dir,
		logger: logger.With().Str("component", "filesync").Str("dir", dir).Logger(),
	}
}

// Root returns the data directory.
func (e *Executor) Root() string {
	return e.root
}

// Resolve maps a server-supplied name to a path under the data directory.
func (e *Executor) Resolve(name string) (string, error) {
	clean := filepath.FromSlash(name)
	if name == "" || !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(e.root, clean), nil
}

// Delete removes name from the data directory. A missing file is not an error.
func (e *Executor) Delete(name string) error {
	path, err := e.Resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Debug().Str("file", name).Msg("delete target already absent")
			return nil
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}

	e.logger.Info().Str("file", name).Msg("deleted file")
	return nil
}

// Write creates or truncates name and writes content verbatim, creating
// parent directories as needed. The result reflects both the write and the close.
func (e *Executor) Write(name string, content []byte) (err error) {
	path, err := e.Resolve(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", name, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", name, cerr)
		}
	}()

	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	e.logger.Info().Str("file", name).Int("bytes", len(content)).Msg("wrote file")
	return nil
}
