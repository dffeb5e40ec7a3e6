/*
Package logging builds the process logger and the HTTP request log.

FORMAT:
  JSON by default with "@timestamp" and "message" keys, so log shippers
  index it without a custom pipeline. "text" is for local development.

SEE ALSO:
  - middleware.go: one entry per HTTP request
*/
package logging

import (
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// New returns a logger writing to stdout.
func New(level, format string) (*log.Logger, error) {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter returns a configured logger writing to w.
func NewWithWriter(w io.Writer, level, format string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "parse log level")
	}

	logger := log.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	switch format {
	case "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&log.JSONFormatter{
			FieldMap: log.FieldMap{
				log.FieldKeyTime: "@timestamp",
				log.FieldKeyMsg:  "message",
			},
		})
	}
	return logger, nil
}

// Discard is a logger for tests.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}
