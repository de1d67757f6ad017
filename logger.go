package mq

import (
	"github.com/sirupsen/logrus"
)

// Logger is the minimal logging capability the session core needs. It is
// satisfied directly by *logrus.Logger.
type Logger interface {
	Info(args ...interface{})
	Warning(args ...interface{})
	Error(args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(args ...interface{})    {}
func (nopLogger) Warning(args ...interface{}) {}
func (nopLogger) Error(args ...interface{})   {}

// NewLogrusLogger wraps l so it satisfies Logger. Pass it to WithLogger.
func NewLogrusLogger(l *logrus.Logger) Logger {
	return l
}
