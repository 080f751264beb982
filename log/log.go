package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var defaultLogger *zap.Logger

type Log struct {
	Level string `yaml:"level"`
	// Path is an optional rotated log file. Stdout is always written.
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

var encoderConfig = zapcore.EncoderConfig{
	MessageKey:     "message",
	LevelKey:       "level",
	TimeKey:        "time",
	NameKey:        "name",
	CallerKey:      "caller",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.LowercaseLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
	EncodeName:     zapcore.FullNameEncoder,
}

func init() {
	var zc = zap.Config{
		Level:             zap.NewAtomicLevelAt(zap.InfoLevel),
		Development:       false,
		DisableCaller:     true,
		DisableStacktrace: true,
		Sampling:          nil,
		Encoding:          "json",
		EncoderConfig:     encoderConfig,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	var err error
	defaultLogger, err = zc.Build()
	if err != nil {
		panic(fmt.Sprintf("[LOGGER] ERROR: %v\n", err))
	}
}

// ParseLevel maps a config level name to a zap level. Unknown names fall
// back to error.
func ParseLevel(s string) (zapcore.Level, bool) {
	switch s {
	case "debug":
		return zap.DebugLevel, true
	case "info":
		return zap.InfoLevel, true
	case "warn":
		return zap.WarnLevel, true
	case "error":
		return zap.ErrorLevel, true
	}
	return zap.ErrorLevel, false
}

func UpdateLogger(l *Log) {
	defaultLogger.Sync()

	level, _ := ParseLevel(l.Level)
	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	if l.Path != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   l.Path,
			MaxSize:    l.MaxSize,
			MaxBackups: l.MaxBackups,
			MaxAge:     l.MaxAge,
			Compress:   l.Compress,
		}))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(sinks...),
		zap.NewAtomicLevelAt(level),
	)
	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if level == zap.DebugLevel {
		opts = append(opts, zap.AddStacktrace(zap.ErrorLevel))
	}
	defaultLogger = zap.New(core, opts...)
}

// Replace swaps the package logger, e.g. for zaptest or zap.NewNop in tests.
func Replace(l *zap.Logger) {
	defaultLogger = l
}

func CloseLogger() {
	defaultLogger.Sync()
}
func Error(s string, f ...zap.Field) {
	defaultLogger.Error(s, f...)
}
func Warn(s string, f ...zap.Field) {
	defaultLogger.Warn(s, f...)
}
func Info(s string, f ...zap.Field) {
	defaultLogger.Info(s, f...)
}
func Debug(s string, f ...zap.Field) {
	defaultLogger.Debug(s, f...)
}
func Panic(s string, f ...zap.Field) {
	defaultLogger.Panic(s, f...)
}
func Fatal(s string, f ...zap.Field) {
	defaultLogger.Fatal(s, f...)
}
