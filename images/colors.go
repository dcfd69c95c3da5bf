package images

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Named colors used for overlays. gocv takes color.RGBA and converts to BGR itself.
var (
	GreenColor  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	RedColor    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	YellowColor = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	WhiteColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA" (the leading '#' is optional).
//
// Arguments:
//   - hex: The color string.
//
// Returns:
//   - color.RGBA: The parsed color; alpha defaults to 255.
//   - error: An error if the string is empty, has the wrong length or is not hex.
func ParseHexColor(hex string) (color.RGBA, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if hex == "" {
		return color.RGBA{}, errors.New("empty color string")
	}

	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(err, "invalid hex color %q", hex)
	}

	switch len(hex) {
	case 6:
		return color.RGBA{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val), A: 255}, nil
	case 8:
		return color.RGBA{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
	default:
		return color.RGBA{}, errors.Errorf("invalid hex color length %d", len(hex))
	}
}
