// Package ulogger provides the logging abstraction used across the balances tooling.
package ulogger

import (
	"github.com/bsv-blockchain/utxobalances/settings"
)

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
	colorCyan
	colorWhite

	colorBold     = 1
	colorDarkGray = 90
)

type Logger interface {
	LogLevel() int
	SetLogLevel(level string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	New(service string, options ...Option) Logger
	Duplicate(options ...Option) Logger
}

func New(service string, options ...Option) Logger {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	switch opts.loggerType {
	case "gocore":
		return NewGoCoreLogger(service, options...)
	default:
		return NewZeroLogger(service, options...)
	}
}

// InitLogger creates the process logger from the loaded settings.
func InitLogger(service string, tSettings *settings.Settings) Logger {
	return New(service,
		WithLevel(tSettings.LogLevel),
		WithLoggerType(tSettings.LoggerType),
		WithPretty(tSettings.PrettyLogs),
	)
}
