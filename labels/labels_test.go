package labels

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Record
	}{
		{
			name:  "single line",
			input: "0 0.5 0.5 0.25 0.125\n",
			want:  []Record{{ClassID: 0, Box: NormalizedBox{0.5, 0.5, 0.25, 0.125}}},
		},
		{
			name:  "no trailing newline and extra whitespace",
			input: "  1\t0.1   0.2 0.3 0.4",
			want:  []Record{{ClassID: 1, Box: NormalizedBox{0.1, 0.2, 0.3, 0.4}}},
		},
		{
			name:  "extra fields ignored",
			input: "0 0.1 0.2 0.3 0.4 0.99\n",
			want:  []Record{{ClassID: 0, Box: NormalizedBox{0.1, 0.2, 0.3, 0.4}}},
		},
		{
			name:  "float class id",
			input: "2.0 0.1 0.2 0.3 0.4\n",
			want:  []Record{{ClassID: 2, Box: NormalizedBox{0.1, 0.2, 0.3, 0.4}}},
		},
		{
			name:  "non numeric coordinate skipped",
			input: "0 0.1 abc 0.3 0.4\n0 0.5 0.5 0.2 0.2\n",
			want:  []Record{{ClassID: 0, Box: NormalizedBox{0.5, 0.5, 0.2, 0.2}}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "windows line endings",
			input: "0 0.1 0.2 0.3 0.4\r\n0 0.5 0.6 0.7 0.8\r\n",
			want: []Record{
				{ClassID: 0, Box: NormalizedBox{0.1, 0.2, 0.3, 0.4}},
				{ClassID: 0, Box: NormalizedBox{0.5, 0.6, 0.7, 0.8}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSkipsShortLinesPreservingOrder(t *testing.T) {
	lines := []string{
		"0 0.10 0.10 0.05 0.05",
		"0 0.20 0.20",
		"",
		"0 0.30 0.30 0.05 0.05",
		"1",
		"0 0.40 0.40 0.05 0.05",
		"0 0.5 0.5 0.1",
	}
	short := 4

	got, err := Parse(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	require.Len(t, got, len(lines)-short)

	assert.Equal(t, 0.10, got[0].Box.CenterX)
	assert.Equal(t, 0.30, got[1].Box.CenterX)
	assert.Equal(t, 0.40, got[2].Box.CenterX)
}

func TestParseRoundTripsCoordinates(t *testing.T) {
	values := []string{"0.123456789012345", "0.987654321098765", "1e-3", "0.333333333333333"}

	got, err := Parse(strings.NewReader("0 " + strings.Join(values, " ")))
	require.NoError(t, err)
	require.Len(t, got, 1)

	// strconv.ParseFloat is the reference: no loss beyond it.
	assert.Equal(t, 0.123456789012345, got[0].Box.CenterX)
	assert.Equal(t, 0.987654321098765, got[0].Box.CenterY)
	assert.Equal(t, 0.001, got[0].Box.Width)
	assert.Equal(t, 0.333333333333333, got[0].Box.Height)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is absent, not an error", func(t *testing.T) {
		records, found, err := ParseFile(filepath.Join(dir, "nope.txt"))
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, records)
	})

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(dir, "img.txt")
		require.NoError(t, os.WriteFile(path, []byte("0 0.5 0.5 1 1\nbad\n"), 0o600))

		records, found, err := ParseFile(path)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []NormalizedBox{{0.5, 0.5, 1, 1}}, Boxes(records))
	})

	t.Run("empty file is present with zero records", func(t *testing.T) {
		path := filepath.Join(dir, "empty.txt")
		require.NoError(t, os.WriteFile(path, nil, 0o600))

		records, found, err := ParseFile(path)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, records)
	})

	t.Run("directory is an error", func(t *testing.T) {
		sub := filepath.Join(dir, "sub.txt")
		require.NoError(t, os.Mkdir(sub, 0o755))

		_, _, err := ParseFile(sub)
		assert.Error(t, err)
	})
}

func TestPathFor(t *testing.T) {
	tests := []struct {
		image string
		want  string
	}{
		{image: "001.jpg", want: filepath.Join("data", "labels", "001.txt")},
		{image: filepath.Join("data", "images", "doc.page.1.jpg"), want: filepath.Join("data", "labels", "doc.page.1.txt")},
		{image: "noext", want: filepath.Join("data", "labels", "noext.txt")},
	}

	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			assert.Equal(t, tt.want, PathFor("data", tt.image))
		})
	}
}
