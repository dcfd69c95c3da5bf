// Package decode turns base64 image dumps (*.base64) back into image files.
package decode

import (
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mapo80/signature-detection/util"
)

// Extension is the suffix of encoded files.
const Extension = ".base64"

// Options controls where decoded files go.
type Options struct {
	// OutputDir receives the decoded files; empty writes next to the source.
	OutputDir string
	// Recursive descends into subdirectories in Dir, mirroring them under OutputDir.
	Recursive bool
	// RemoveOriginal deletes the .base64 file after a successful decode.
	RemoveOriginal bool
	Log            logrus.FieldLogger
}

// FileError records a file that could not be decoded.
type FileError struct {
	Path string
	Err  error
}

// Summary counts the outcome of Dir.
type Summary struct {
	Decoded  int
	Failed   int
	Failures []FileError
}

// File decodes one file. "a.png.base64" becomes "a.png" in the same
// directory, or in opts.OutputDir when set.
//
// Arguments:
//   - path: The encoded file.
//   - opts: Output options.
//
// Returns:
//   - string: The written path.
//   - error: A read, decode, write or remove failure.
func File(path string, opts Options) (string, error) {
	dir := filepath.Dir(path)
	if opts.OutputDir != "" {
		dir = opts.OutputDir
	}
	return decodeTo(path, filepath.Join(dir, outputName(path)), opts)
}

// Dir decodes every .base64 file of dir. A file that fails is recorded and
// skipped.
//
// Arguments:
//   - dir: The directory to scan.
//   - opts: Output and traversal options.
//
// Returns:
//   - Summary: The per-file outcome.
//   - error: An error only if dir cannot be walked.
func Dir(dir string, opts Options) (Summary, error) {
	var summary Summary

	info, err := os.Stat(dir)
	if err != nil {
		return summary, errors.Wrapf(err, "stat %s", dir)
	}
	if !info.IsDir() {
		return summary, errors.Errorf("%s is not a directory", dir)
	}

	paths, err := util.ListFilesWithSuffix(dir, Extension, opts.Recursive)
	if err != nil {
		return summary, err
	}

	log := logger(opts)
	for _, path := range paths {
		target := filepath.Join(filepath.Dir(path), outputName(path))
		if opts.OutputDir != "" {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return summary, errors.Wrapf(err, "relative path of %s", path)
			}
			target = filepath.Join(opts.OutputDir, filepath.Dir(rel), outputName(path))
		}

		if _, err := decodeTo(path, target, opts); err != nil {
			log.WithError(err).WithField("file", path).Warn("skipping file")
			summary.Failed++
			summary.Failures = append(summary.Failures, FileError{Path: path, Err: err})
			continue
		}
		summary.Decoded++
	}

	return summary, nil
}

// Decode strips whitespace and an optional data URI header, then decodes
// padded or unpadded standard base64.
func Decode(encoded string) ([]byte, error) {
	s := strings.Join(strings.Fields(encoded), "")
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return nil, errors.New("no base64 payload")
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, errors.Wrap(err, "decode base64")
}

func decodeTo(src, dst string, opts Options) (string, error) {
	encoded, err := os.ReadFile(src)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", src)
	}

	data, err := Decode(string(encoded))
	if err != nil {
		return "", errors.Wrapf(err, "%s", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", filepath.Dir(dst))
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", dst)
	}

	log := logger(opts).WithFields(logrus.Fields{"file": filepath.Base(src), "output": dst})
	log.Info("decoded")

	if opts.RemoveOriginal {
		if err := os.Remove(src); err != nil {
			return dst, errors.Wrapf(err, "remove %s", src)
		}
		log.Debug("removed original")
	}
	return dst, nil
}

func outputName(path string) string {
	base := filepath.Base(path)
	if len(base) > len(Extension) && strings.EqualFold(base[len(base)-len(Extension):], Extension) {
		return base[:len(base)-len(Extension)]
	}
	return base + ".bin"
}

func logger(opts Options) logrus.FieldLogger {
	if opts.Log != nil {
		return opts.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
