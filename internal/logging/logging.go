// Package logging builds the zap loggers used by the jsfn CLI.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a development logger writing to stderr. Debug output, which
// includes one line per function invocation, is only enabled when debug is set.
func New(debug bool) *zap.Logger {
	return NewWithWriter(debug, os.Stderr)
}

// NewWithWriter is New with the destination made explicit.
func NewWithWriter(debug bool, w io.Writer) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("04:05.000")

	lvl := zapcore.InfoLevel
	if debug {
		lvl = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(zapcore.AddSync(w)), lvl)
	return zap.New(core, zap.AddStacktrace(zapcore.FatalLevel))
}
