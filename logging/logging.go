// Package logging builds the engine's structured logger on zap.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GoCodeAlone/gogine/config"
)

// ServiceName is attached to every log entry as the service field
const ServiceName = "gogine"

// ZapLogger adapts a zap.SugaredLogger to the key/value Logger contract
// used by the engine: Info(msg, "key", value, ...).
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

type options struct {
	output zapcore.WriteSyncer
}

// Option configures New
type Option func(*options)

// WithOutput redirects log output, mainly for tests
func WithOutput(w zapcore.WriteSyncer) Option {
	return func(o *options) {
		o.output = w
	}
}

// DefaultLevel is the level used for an environment when no explicit level
// was configured: debug in development, warn in production, info otherwise.
func DefaultLevel(environment string) zapcore.Level {
	switch strings.ToLower(environment) {
	case "dev", "development":
		return zapcore.DebugLevel
	case "prod", "production":
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// New creates the logger for cfg. An explicitly configured log level wins
// over the environment default.
func New(cfg *config.Config, opts ...Option) (*ZapLogger, error) {
	o := options{output: zapcore.Lock(os.Stdout)}
	for _, opt := range opts {
		opt(&o)
	}

	level := zap.NewAtomicLevelAt(DefaultLevel(cfg.Environment))
	if cfg.LogLevelOverridden() {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch format := strings.ToLower(cfg.LogFormat); {
	case format == "console", format == "" && cfg.IsDevelopment():
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, o.output, level)
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).With(
		zap.String("service", ServiceName),
		zap.String("environment", cfg.Environment),
	)

	return &ZapLogger{sugar: logger.Sugar(), level: level}, nil
}

// Nop returns a logger that discards everything
func Nop() *ZapLogger {
	return &ZapLogger{sugar: zap.NewNop().Sugar(), level: zap.NewAtomicLevelAt(zapcore.FatalLevel)}
}

// Level reports the active level
func (l *ZapLogger) Level() zapcore.Level {
	return l.level.Level()
}

// Named returns a child logger tagged with the given subsystem name
func (l *ZapLogger) Named(name string) *ZapLogger {
	return &ZapLogger{sugar: l.sugar.Named(name), level: l.level}
}

func (l *ZapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *ZapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

func (l *ZapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *ZapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

// Sync flushes buffered entries
func (l *ZapLogger) Sync() error {
	if err := l.sugar.Sync(); err != nil {
		return fmt.Errorf("sync logger: %w", err)
	}
	return nil
}
