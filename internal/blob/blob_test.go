package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/useradmin/internal/errs"
)

func TestObjectName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, suffix string
	}{
		{"photo.png", "_photo.png"},
		{"../../etc/passwd", "_passwd"},
		{`C:\Users\bob\shot.jpg`, "_shot.jpg"},
		{"", "_attachment"},
	}
	for _, tt := range tests {
		got, err := objectName(tt.in)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(got, tt.suffix), "%q -> %q", tt.in, got)
		assert.Len(t, got, 36+len(tt.suffix))
	}
}

func TestNameFromPath(t *testing.T) {
	t.Parallel()
	_, err := nameFromPath("/uploads/feedback/a_b.png")
	require.NoError(t, err)
	for _, bad := range []string{"", "/uploads/feedback/", "/uploads/feedback/../x", "/etc/passwd", "/uploads/feedback/a/b", "/uploads/feedback/.."} {
		_, err := nameFromPath(bad)
		require.ErrorIs(t, err, ErrBadPath, bad)
	}
}

func TestLocalStore_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	rel, err := s.Save(ctx, "screen.png", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rel, URLPrefix))

	_, err = os.Stat(filepath.Join(dir, "feedback", strings.TrimPrefix(rel, URLPrefix)))
	require.NoError(t, err)

	rc, err := s.Open(ctx, rel)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png-bytes", string(b))

	require.NoError(t, s.Delete(ctx, rel))
	require.NoError(t, s.Delete(ctx, rel))

	_, err = s.Open(ctx, rel)
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = s.Open(ctx, "/uploads/feedback/../../secret")
	require.ErrorIs(t, err, ErrBadPath)
}
