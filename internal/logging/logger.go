// Package logging provides structured logging for ChatVault.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	global *logrus.Logger
	once   sync.Once
)

// Init initializes the global logger. Subsequent calls are no-ops.
func Init(out io.Writer, level string, jsonFormat bool) {
	once.Do(func() {
		global = logrus.New()
		global.SetOutput(out)
		if jsonFormat {
			global.SetFormatter(&logrus.JSONFormatter{})
		} else {
			global.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			lvl = logrus.InfoLevel
		}
		global.SetLevel(lvl)
	})
}

// Get returns the global logger, initializing it with defaults if needed.
func Get() *logrus.Logger {
	if global == nil {
		Init(os.Stderr, "info", false)
	}
	return global
}

// WithFields returns an entry carrying structured context.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Get().WithFields(fields)
}

// WithComponent returns an entry tagged with the originating component.
func WithComponent(name string) *logrus.Entry {
	return Get().WithField("component", name)
}
