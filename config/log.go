package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// InitLog applies the log section to the standard logrus logger. The
// returned closer releases the log file, if any.
func InitLog(lc LogConfig) (io.Closer, error) {
	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", lc.Level)
	}
	logrus.SetLevel(level)

	switch lc.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if lc.File == "" {
		logrus.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}
	f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", lc.File)
	}
	logrus.SetOutput(f)
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
