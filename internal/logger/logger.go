package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log   *zap.Logger
	sugar *zap.SugaredLogger
)

// Options 日志配置
type Options struct {
	Level       string
	Development bool
	// Encoding is "console" (default) or "json". Lambda and AgentCore
	// runtimes ship stdout to CloudWatch, where json lines are searchable.
	Encoding string
	Service  string
}

// Init 初始化日志
func Init(level string, development bool) error {
	return InitWithOptions(Options{Level: level, Development: development})
}

// InitWithOptions 按选项初始化日志
func InitWithOptions(opts Options) error {
	built, err := Build(opts)
	if err != nil {
		return err
	}
	log = built
	sugar = log.Sugar()
	return nil
}

// Build creates a standalone logger without touching the global one.
func Build(opts Options) (*zap.Logger, error) {
	encoding := strings.ToLower(strings.TrimSpace(opts.Encoding))
	if encoding != "json" {
		encoding = "console"
	}

	encodeLevel := zapcore.CapitalColorLevelEncoder
	if encoding == "json" {
		encodeLevel = zapcore.LowercaseLevelEncoder
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(ParseLevel(opts.Level)),
		Development: opts.Development,
		Encoding:    encoding,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			NameKey:        "N",
			CallerKey:      "C",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "M",
			StacktraceKey:  "S",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    encodeLevel,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if encoding == "json" {
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.LevelKey = "level"
		config.EncoderConfig.NameKey = "logger"
		config.EncoderConfig.CallerKey = "caller"
		config.EncoderConfig.MessageKey = "message"
		config.EncoderConfig.StacktraceKey = "stacktrace"
	}

	built, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	if service := strings.TrimSpace(opts.Service); service != "" {
		built = built.With(zap.String("service", service))
	}
	return built, nil
}

// ParseLevel 解析日志级别，未知值按 info 处理
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// L 获取 logger
func L() *zap.Logger {
	if log == nil {
		// 如果未初始化，使用默认配置
		_ = Init("info", false)
	}
	return log
}

// S 获取 sugared logger
func S() *zap.SugaredLogger {
	if sugar == nil {
		_ = Init("info", false)
	}
	return sugar
}

// OrDefault returns l, or the global logger when l is nil.
func OrDefault(l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	// undo the skip added for the package-level helpers
	return L().WithOptions(zap.AddCallerSkip(-1))
}

// Sync 同步日志
func Sync() error {
	if log != nil {
		return log.Sync()
	}
	return nil
}

// With 创建带字段的 logger
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Debug 调试日志
func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

// Info 信息日志
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Warn 警告日志
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error 错误日志
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// Fatal 致命错误日志
func Fatal(msg string, fields ...zap.Field) {
	L().Fatal(msg, fields...)
	os.Exit(1)
}
