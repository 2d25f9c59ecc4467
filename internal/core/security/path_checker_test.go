package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes.txt"), got)

	got, err = ExpandPath("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)

	got, err = ExpandPath("relative.txt")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestResolvePath_FollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.Mkdir(target, 0755))

	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	realTarget, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)

	got, err := ResolvePath(filepath.Join(link, "missing.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(realTarget, "missing.txt"), got)
}
