// Package log wraps go.uber.org/zap behind a small interface with a
// functional-option constructor (WithDebug, WithFormat, WithWriter,
// WithQuiet). Call sites depend on the Logger interface, never on zap
// directly.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logging surface every package depends on.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	// With returns a child logger that always includes the given key/value
	// pairs, e.g. log.With("task", "update_scheduler").
	With(kv ...any) Logger
	// Sync flushes any buffered log entries.
	Sync() error
}

type options struct {
	debug   bool
	format  string // "console" or "json"
	writer  io.Writer
	quiet   bool
	logFile string
}

// Option configures New.
type Option func(*options)

// WithDebug enables debug-level output.
func WithDebug() Option { return func(o *options) { o.debug = true } }

// WithFormat selects "console" (default) or "json" encoding.
func WithFormat(format string) Option { return func(o *options) { o.format = format } }

// WithWriter directs console output to w instead of stderr. Primarily for
// tests.
func WithWriter(w io.Writer) Option { return func(o *options) { o.writer = w } }

// WithQuiet disables the stderr/writer sink, leaving only the file sink (if
// configured) active.
func WithQuiet() Option { return func(o *options) { o.quiet = true } }

// WithFile enables a rotating file sink at path (10MB/3 backups/28 days).
func WithFile(path string) Option { return func(o *options) { o.logFile = path } }

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger from opts. With no options it logs info-and-above,
// console-encoded, to stderr.
func New(opts ...Option) Logger {
	o := &options{format: "console", writer: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	level := zapcore.InfoLevel
	if o.debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if o.format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	var cores []zapcore.Core
	if !o.quiet {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(o.writer), level))
	}
	if o.logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   o.logFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}
	if len(cores) == 0 {
		cores = append(cores, zapcore.NewNopCore())
	}

	core := zapcore.NewTee(cores...)
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &zapLogger{sugar: zl.Sugar()}
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.sugar.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.sugar.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, kv...) }

func (l *zapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

func (l *zapLogger) With(kv ...any) Logger {
	return &zapLogger{sugar: l.sugar.With(kv...)}
}

func (l *zapLogger) Sync() error {
	return l.sugar.Sync()
}

// Nop is a Logger that discards everything. Useful as a default in tests
// that don't care about log output.
func Nop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}
