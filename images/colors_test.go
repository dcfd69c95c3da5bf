package images

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{name: "green with hash", in: "#00FF00", want: GreenColor},
		{name: "red without hash", in: "ff0000", want: RedColor},
		{name: "with alpha", in: "#10203040", want: color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x40}},
		{name: "empty", in: "", wantErr: true},
		{name: "short", in: "#fff", wantErr: true},
		{name: "not hex", in: "#zzzzzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
