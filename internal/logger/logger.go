// Package logger is mailbrain's process-wide zap logger. Warnings and
// errors always print; debug and info lines, including the per-step
// workflow trace, need --verbose.
package logger

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where and how log lines are written.
type Options struct {
	Verbose bool
	// JSON switches from "[LEVEL] message" lines to one JSON object per
	// line, for log collectors in front of `mailbrain serve`.
	JSON   bool
	Output io.Writer
}

var (
	mu    sync.Mutex
	opts  = Options{Output: os.Stderr}
	level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	log   atomic.Pointer[zap.SugaredLogger]
)

func init() {
	log.Store(build(opts))
}

func build(o Options) *zap.SugaredLogger {
	var enc zapcore.Encoder
	if o.JSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		enc = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			MessageKey:       "msg",
			LevelKey:         "level",
			NameKey:          "logger",
			ConsoleSeparator: " ",
			LineEnding:       zapcore.DefaultLineEnding,
			EncodeLevel: func(l zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
				pae.AppendString("[" + l.CapitalString() + "]")
			},
			EncodeName:     zapcore.FullNameEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		})
	}
	sink := zapcore.Lock(zapcore.AddSync(o.Output))
	return zap.New(zapcore.NewCore(enc, sink, level)).Sugar()
}

// Configure replaces the logger. A nil Output keeps the current writer.
func Configure(o Options) {
	mu.Lock()
	defer mu.Unlock()
	if o.Output == nil {
		o.Output = opts.Output
	}
	opts = o
	applyLevel(o.Verbose)
	log.Store(build(o))
}

func applyLevel(verbose bool) {
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.WarnLevel)
	}
}

// SetVerbose toggles debug and info output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	opts.Verbose = v
	applyLevel(v)
}

func IsVerbose() bool {
	return level.Enabled(zapcore.DebugLevel)
}

// SetJSON toggles JSON output.
func SetJSON(on bool) {
	mu.Lock()
	o := opts
	mu.Unlock()
	o.JSON = on
	Configure(o)
}

// SetOutput redirects log lines, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	o := opts
	mu.Unlock()
	o.Output = w
	Configure(o)
}

// Named returns a child logger for key/value logging from one component.
func Named(name string) *zap.SugaredLogger {
	return log.Load().Named(name)
}

func Debug(format string, args ...any) { log.Load().Debugf(format, args...) }
func Info(format string, args ...any)  { log.Load().Infof(format, args...) }
func Warn(format string, args ...any)  { log.Load().Warnf(format, args...) }
func Error(format string, args ...any) { log.Load().Errorf(format, args...) }

// Section marks the start of a traced phase in verbose output.
func Section(name string) {
	log.Load().Debugf("=== %s ===", name)
}

// Sync flushes buffered entries before exit.
func Sync() error {
	return log.Load().Sync()
}
