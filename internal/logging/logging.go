// Package logging sets up the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Log is the shared logger. It writes to stderr at info level until Init runs.
var Log = logrus.New()

// Init configures Log. Unknown levels fall back to info. When file is set,
// output goes to stderr and to the file.
func Init(level, file string) error {
	Log = New(level)

	writers := []io.Writer{os.Stderr}
	if file != "" {
		if dir := filepath.Dir(file); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating log directory: %w", err)
			}
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, f)
	}
	Log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// New returns a text logger at the given level without touching Log.
func New(level string) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
