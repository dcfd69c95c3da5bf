package decode

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payload = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestDecode(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString(payload)
	raw := base64.RawStdEncoding.EncodeToString(payload)

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "plain", in: enc},
		{name: "data uri", in: "data:image/jpeg;base64," + enc},
		{name: "surrounding whitespace and wrapped lines", in: "\n  " + enc[:6] + "\n" + enc[6:] + " \n"},
		{name: "unpadded", in: raw},
		{name: "empty", in: "  ", wantErr: true},
		{name: "garbage", in: "!!!not base64!!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.jpg.base64")
	write(t, src, base64.StdEncoding.EncodeToString(payload))

	out, err := File(src, Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scan.jpg"), out)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.FileExists(t, src)
}

func TestFileOutputDirAndRemove(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "decoded")
	src := filepath.Join(dir, "scan.png.base64")
	write(t, src, base64.StdEncoding.EncodeToString(payload))

	out, err := File(src, Options{OutputDir: outDir, RemoveOriginal: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "scan.png"), out)
	assert.FileExists(t, out)
	assert.NoFileExists(t, src)
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	enc := base64.StdEncoding.EncodeToString(payload)
	write(t, filepath.Join(dir, "a.jpg.base64"), enc)
	write(t, filepath.Join(dir, "bad.jpg.base64"), "%%%")
	write(t, filepath.Join(dir, "notes.txt"), "ignored")
	write(t, filepath.Join(dir, "nested", "b.jpg.base64"), enc)

	log, hook := test.NewNullLogger()

	t.Run("flat", func(t *testing.T) {
		summary, err := Dir(dir, Options{Log: log})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Decoded)
		assert.Equal(t, 1, summary.Failed)
		require.Len(t, summary.Failures, 1)
		assert.Equal(t, filepath.Join(dir, "bad.jpg.base64"), summary.Failures[0].Path)
		assert.FileExists(t, filepath.Join(dir, "a.jpg"))
		assert.NoFileExists(t, filepath.Join(dir, "nested", "b.jpg"))
		assert.NotEmpty(t, hook.AllEntries())
	})

	t.Run("recursive into output dir", func(t *testing.T) {
		out := t.TempDir()
		summary, err := Dir(dir, Options{OutputDir: out, Recursive: true})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Decoded)
		assert.FileExists(t, filepath.Join(out, "a.jpg"))
		assert.FileExists(t, filepath.Join(out, "nested", "b.jpg"))
	})
}

func TestDirNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "x.base64")
	write(t, file, "")

	_, err := Dir(file, Options{})
	assert.Error(t, err)

	_, err = Dir(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "a.png", outputName("/x/a.png.base64"))
	assert.Equal(t, "a.png", outputName("a.png.BASE64"))
	assert.Equal(t, "blob.bin", outputName("blob"))
}
