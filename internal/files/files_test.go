package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "impedancecli/internal/errors"
	"impedancecli/internal/shared/testutil"
)

func TestFindByExtension(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "b array.txt", "b")
	testutil.WriteFile(t, dir, "A array.TXT", "a")
	testutil.WriteFile(t, dir, "notes.md", "x")
	testutil.WriteFile(t, dir, "nested/c.txt", "c")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.txt"), 0755))

	found, err := NewDiscovery("").FindByExtension(dir, ".txt")
	require.NoError(t, err)

	require.Len(t, found, 2)
	assert.Equal(t, "A array.TXT", found[0].Name)
	assert.Equal(t, "b array.txt", found[1].Name)
	assert.Equal(t, filepath.Join(dir, "b array.txt"), found[1].Path)
	assert.Equal(t, int64(1), found[1].Size)
}

func TestFindByExtensionRelativeToBase(t *testing.T) {
	base := t.TempDir()
	testutil.WriteFile(t, base, "in/a.txt", "a")

	found, err := NewDiscovery(base).FindByExtension("in", ".txt")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, filepath.Join(base, "in", "a.txt"), found[0].Path)
}

func TestFindByExtensionEmptyAndMissing(t *testing.T) {
	found, err := NewDiscovery("").FindByExtension(t.TempDir(), ".txt")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = NewDiscovery("").FindByExtension(filepath.Join(t.TempDir(), "missing"), ".txt")
	assert.Error(t, err)
}

func TestCopyNoClobber(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteFile(t, dir, "a.txt", "payload")
	dst := filepath.Join(dir, "staged", "a.txt")
	m := NewManager(nil)

	res, err := m.CopyNoClobber(src, dst)
	require.NoError(t, err)
	assert.Equal(t, Copied, res)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// identical content is accepted on a re-run
	res, err = m.CopyNoClobber(src, dst)
	require.NoError(t, err)
	assert.Equal(t, AlreadyPresent, res)
	assert.FileExists(t, src)
}

func TestCopyNoClobberCollision(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteFile(t, dir, "a.txt", "new data")
	dst := testutil.WriteFile(t, dir, "staged/a.txt", "old data")
	m := NewManager(nil)

	_, err := m.CopyNoClobber(src, dst)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeCollision))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old data", string(data), "existing destination must be untouched")

	err = m.CheckDestination(src, dst)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeCollision))
	assert.NoError(t, m.CheckDestination(src, filepath.Join(dir, "staged", "fresh.txt")))
}

func TestSameContent(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a", "same")
	b := testutil.WriteFile(t, dir, "b", "same")
	c := testutil.WriteFile(t, dir, "c", "diff")
	d := testutil.WriteFile(t, dir, "d", "longer")

	same, err := SameContent(a, b)
	require.NoError(t, err)
	assert.True(t, same)

	same, err = SameContent(a, c)
	require.NoError(t, err)
	assert.False(t, same)

	same, err = SameContent(a, d)
	require.NoError(t, err)
	assert.False(t, same)

	_, err = SameContent(a, filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestDeleteFile(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "gone.txt", "x")
	require.NoError(t, NewManager(nil).DeleteFile(path))
	assert.NoFileExists(t, path)
}
