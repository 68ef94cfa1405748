package logger

import (
	"fmt"
	"os"
	"time"
)

type logEntry struct {
	level Level
	log   []byte
}

// Logger writes leveled, subsystem-tagged log lines to a Backend.
type Logger struct {
	level        Level
	subsystemTag string
	backend      *Backend
	writeChan    chan logEntry
}

// SetLevel changes the minimum level this Logger will emit.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

// Level returns the Logger's current minimum level.
func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) write(level Level, format string, args []interface{}) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s [%s] %s %s\n", time.Now().Format("2006-01-02 15:04:05.000"),
		level, l.subsystemTag, msg)
	entry := logEntry{level: level, log: []byte(line)}
	if l.backend == nil || !l.backend.IsRunning() {
		_, _ = os.Stderr.WriteString(line)
		return
	}
	l.writeChan <- entry
}

// Tracef logs at LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) { l.write(LevelTrace, format, args) }

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) { l.write(LevelDebug, format, args) }

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) { l.write(LevelInfo, format, args) }

// Warnf logs at LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) { l.write(LevelWarn, format, args) }

// Errorf logs at LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) { l.write(LevelError, format, args) }

// Criticalf logs at LevelCritical.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.write(LevelCritical, format, args)
}

var defaultBackend = func() *Backend {
	b := NewBackend()
	_ = b.Run()
	return b
}()

// RegisterSubSystem returns a Logger for the named subsystem on the
// package-wide default backend, mirroring the call every package in this
// module makes at init time: `var log = logger.RegisterSubSystem("TAG")`.
func RegisterSubSystem(tag string) *Logger {
	l := defaultBackend.Logger(tag)
	l.level = LevelInfo
	return l
}
