package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.JPG", "c.png", "notes.txt", "10.jpg", "2.jpg"} {
		touch(t, filepath.Join(dir, name))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	got, err := ListImageFiles(dir, ".jpg")
	require.NoError(t, err)

	var names []string
	for _, p := range got {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"10.jpg", "2.jpg", "a.JPG", "b.jpg"}, names)
	assert.Equal(t, filepath.Join(dir, "10.jpg"), got[0])
}

func TestListImageFilesMissingDir(t *testing.T) {
	_, err := ListImageFiles(filepath.Join(t.TempDir(), "nope"), ".jpg")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestListFilesWithSuffix(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png.base64"))
	touch(t, filepath.Join(dir, "b.txt"))
	touch(t, filepath.Join(dir, "nested", "c.jpg.base64"))

	flat, err := ListFilesWithSuffix(dir, ".base64", false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.png.base64")}, flat)

	deep, err := ListFilesWithSuffix(dir, ".base64", true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.png.base64"),
		filepath.Join(dir, "nested", "c.jpg.base64"),
	}, deep)
}
