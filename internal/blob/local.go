package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/and161185/useradmin/internal/errs"
)

// LocalStore keeps attachments under <dir>/feedback.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the feedback directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	d := filepath.Join(dir, "feedback")
	if err := os.MkdirAll(d, 0o750); err != nil {
		return nil, fmt.Errorf("blob: mkdir: %w", err)
	}
	return &LocalStore{dir: d}, nil
}

// Save writes r to a new file and returns its public path.
func (s *LocalStore) Save(_ context.Context, filename string, r io.Reader, _ int64, _ string) (string, error) {
	name, err := objectName(filename)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return URLPrefix + name, nil
}

// Open returns the stored file. A missing file yields errs.ErrNotFound.
func (s *LocalStore) Open(_ context.Context, relPath string) (io.ReadCloser, error) {
	name, err := nameFromPath(relPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.ErrNotFound
	}
	return f, err
}

// Delete removes the stored file.
func (s *LocalStore) Delete(_ context.Context, relPath string) error {
	name, err := nameFromPath(relPath)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
