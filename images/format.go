package images

import (
	"path/filepath"
	"strings"
)

// ImageFormat represents supported image formats
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatBMP  ImageFormat = "bmp"
)

var extensions = map[string]ImageFormat{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".bmp":  FormatBMP,
}

// FormatFromPath returns the format implied by a file extension.
//
// Arguments:
//   - path: A file name or path.
//
// Returns:
//   - ImageFormat: The detected format.
//   - bool: False when the extension is not a supported image extension.
func FormatFromPath(path string) (ImageFormat, bool) {
	format, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return format, ok
}

// HasExtension reports whether path ends with ext, ignoring case.
func HasExtension(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}
