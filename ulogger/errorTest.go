package ulogger

import (
	"fmt"
	"sync"
)

type TestingT interface {
	Logf(format string, args ...any)
}

// ErrorTestLogger keeps every error and fatal message so tests can assert on them.
type ErrorTestLogger struct {
	t      TestingT
	mu     sync.Mutex
	errors []string
	fatals []string
}

func NewErrorTestLogger(t TestingT) *ErrorTestLogger {
	return &ErrorTestLogger{t: t}
}

func (l *ErrorTestLogger) LogLevel() int {
	return 0
}

func (l *ErrorTestLogger) SetLogLevel(level string) {}

func (l *ErrorTestLogger) New(service string, options ...Option) Logger {
	return l
}

func (l *ErrorTestLogger) Duplicate(options ...Option) Logger {
	return l
}

func (l *ErrorTestLogger) Debugf(format string, args ...interface{}) {}

func (l *ErrorTestLogger) Infof(format string, args ...interface{}) {}

func (l *ErrorTestLogger) Warnf(format string, args ...interface{}) {}

func (l *ErrorTestLogger) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()

	l.t.Logf("[ERROR] %s", msg)
}

// Fatalf records the message instead of exiting.
func (l *ErrorTestLogger) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	l.fatals = append(l.fatals, msg)
	l.mu.Unlock()

	l.t.Logf("[FATAL] %s", msg)
}

func (l *ErrorTestLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.errors...)
}

func (l *ErrorTestLogger) Fatals() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.fatals...)
}
