package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger and redacts sensitive values (API keys, passwords)
// from every structured field before it reaches a core.
//
// Example:
//
//	logger, err := logging.New(logging.Options{Development: true, FilePath: "app.log"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("server started", zap.Int("port", 8501))
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger

	development bool
	filePath    string
}

// Options configures New.
type Options struct {
	// Development switches the console to a colored, human readable encoder
	// and lowers the default level to debug.
	Development bool

	// FilePath is the JSON log file. Empty disables the file sink.
	FilePath string

	// Level overrides the default level when non-nil.
	Level *zapcore.Level

	// File controls rotation of FilePath.
	File FileWriterConfig
}

// New builds a Logger that writes to stdout and, when configured, to a
// rotating JSON log file.
func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Development {
		level = zapcore.DebugLevel
	}
	if opts.Level != nil {
		level = *opts.Level
	}

	var file zapcore.WriteSyncer
	if opts.FilePath != "" {
		if err := ensureLogDir(opts.FilePath); err != nil {
			return nil, fmt.Errorf("failed to prepare log directory: %w", err)
		}
		file = NewFileWriterWithConfig(opts.FilePath, opts.File)
	}

	core := NewTeeCore(level, zapcore.Lock(zapcore.AddSync(stdout)), file, opts.Development)
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &Logger{
		zap:         zl,
		sugar:       zl.Sugar(),
		development: opts.Development,
		filePath:    opts.FilePath,
	}, nil
}

// FromZap wraps an existing zap logger. Tests use it with zaptest.NewLogger.
func FromZap(zl *zap.Logger) *Logger {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &Logger{zap: zl, sugar: zl.Sugar()}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return FromZap(zap.NewNop())
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, redactFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, redactFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, redactFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, redactFields(fields)...)
}

// Fatal logs and then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, redactFields(fields)...)
}

// Infow logs loosely typed key/value pairs.
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, redactKeysAndValues(keysAndValues)...)
}

func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, redactKeysAndValues(keysAndValues)...)
}

func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, redactKeysAndValues(keysAndValues)...)
}

// Infof logs a formatted message. Arguments are not redacted.
func (l *Logger) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

// With returns a child logger that carries fields on every entry,
// typically a request id.
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.zap.With(redactFields(fields)...)
	return &Logger{
		zap:         zl,
		sugar:       zl.Sugar(),
		development: l.development,
		filePath:    l.filePath,
	}
}

// Named adds a sub-logger name such as "webui" or "pipeline".
func (l *Logger) Named(name string) *Logger {
	zl := l.zap.Named(name)
	return &Logger{
		zap:         zl,
		sugar:       zl.Sugar(),
		development: l.development,
		filePath:    l.filePath,
	}
}

// Zap exposes the underlying zap.Logger for packages that take one directly.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func (l *Logger) IsDevelopment() bool {
	return l.development
}

func (l *Logger) FilePath() string {
	return l.filePath
}

func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = redactField(f)
	}
	return out
}

func redactField(f zap.Field) zap.Field {
	if IsSensitiveField(f.Key) {
		return zap.String(f.Key, RedactedPlaceholder)
	}
	if f.Type == zapcore.StringType {
		if redacted := RedactSensitiveData(f.String); redacted != f.String {
			return zap.String(f.Key, redacted)
		}
	}
	return f
}

func redactKeysAndValues(kv []interface{}) []interface{} {
	if len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		if IsSensitiveField(key) {
			out[i+1] = RedactedPlaceholder
			continue
		}
		if s, ok := out[i+1].(string); ok {
			out[i+1] = RedactSensitiveData(s)
		}
	}
	return out
}
