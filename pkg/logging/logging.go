package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

func ConsoleLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

// FileLogger writes JSON lines to the given path in addition to stdout,
// falling back to stdout only if the file cannot be opened.
func FileLogger(level logrus.Level, path string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{})

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.SetOutput(os.Stdout)
		logger.WithError(err).Warn("falling back to stdout logging")
		return logger
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	return logger
}
