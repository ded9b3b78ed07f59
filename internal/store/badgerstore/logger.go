package badgerstore

import (
	"strings"

	"go.uber.org/zap"
)

// badgerLogger adapts zap to badger.Logger.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func newBadgerLogger(logger *zap.Logger) *badgerLogger {
	return &badgerLogger{s: logger.Named("badger").Sugar()}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.s.Errorf(strings.TrimSuffix(format, "\n"), args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.s.Warnf(strings.TrimSuffix(format, "\n"), args...)
}

// Infof is demoted to debug; badger reports every compaction at info.
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.s.Debugf(strings.TrimSuffix(format, "\n"), args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.s.Debugf(strings.TrimSuffix(format, "\n"), args...)
}
