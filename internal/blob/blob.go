// Package blob stores feedback attachments on disk or in S3-compatible storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gofrs/uuid/v5"
)

// URLPrefix is the public path under which attachments are served.
const URLPrefix = "/uploads/feedback/"

// ErrBadPath is returned for paths outside URLPrefix or containing separators.
var ErrBadPath = errors.New("blob: invalid path")

// Store saves, opens and removes attachments addressed by their public path.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
	// Delete removes the object; a missing object is not an error.
	Delete(ctx context.Context, relPath string) error
}

// objectName returns "<uuid>_<basename>" for an uploaded file name.
func objectName(filename string) (string, error) {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		base = "attachment"
	}
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("blob: name: %w", err)
	}
	return id.String() + "_" + base, nil
}

// nameFromPath extracts the object name from a public path.
func nameFromPath(relPath string) (string, error) {
	name, ok := strings.CutPrefix(relPath, URLPrefix)
	if !ok || name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return "", ErrBadPath
	}
	return name, nil
}
