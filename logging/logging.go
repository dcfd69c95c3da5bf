// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config selects the level, format and destination of the logger.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Output defaults to stderr.
	Output io.Writer `yaml:"-"`
}

// Validate checks the level and format.
func (c Config) Validate() error {
	if c.Level != "" {
		if _, err := logrus.ParseLevel(c.Level); err != nil {
			return errors.Wrap(err, "level")
		}
	}
	switch strings.ToLower(c.Format) {
	case "", FormatText, FormatJSON:
		return nil
	default:
		return errors.Errorf("unknown log format %q", c.Format)
	}
}

// New creates a logger.
//
// Arguments:
//   - cfg: Level (default info), format (text or json) and output.
//
// Returns:
//   - *logrus.Logger: The configured logger.
//   - error: An error for an unknown level or format.
func New(cfg Config) (*logrus.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logrus.New()

	level := logrus.InfoLevel
	if cfg.Level != "" {
		level, _ = logrus.ParseLevel(cfg.Level)
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, FormatJSON) {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output != nil {
		log.SetOutput(cfg.Output)
	} else {
		log.SetOutput(os.Stderr)
	}
	return log, nil
}
