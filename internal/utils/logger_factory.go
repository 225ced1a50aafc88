package utils

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

// LogFormat enumerates supported logging encodings.
type LogFormat string

// Supported log levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Supported log formats.
const (
	LogFormatStructured LogFormat = "structured"
	LogFormatConsole    LogFormat = "console"
)

const (
	unsupportedLogLevelTemplateConstant  = "unsupported log level %q"
	unsupportedLogFormatTemplateConstant = "unsupported log format %q"
	loggerBuildErrorTemplateConstant     = "unable to build logger: %w"
	timestampFieldNameConstant           = "timestamp"
	levelFieldNameConstant               = "level"
	messageFieldNameConstant             = "message"
	callerFieldNameConstant              = "caller"
	consoleTimeLayoutConstant            = "15:04:05"
)

// LoggerOutputs bundles the diagnostic logger with the console logger used for operator-facing messages.
type LoggerOutputs struct {
	DiagnosticLogger *zap.Logger
	ConsoleLogger    *zap.Logger
}

// LoggerFactory creates zap loggers for the requested level and format.
type LoggerFactory struct{}

// NewLoggerFactory constructs a LoggerFactory.
func NewLoggerFactory() LoggerFactory {
	return LoggerFactory{}
}

// CreateLoggerOutputs builds the diagnostic and console loggers. Structured output keeps the console logger silent.
func (factory LoggerFactory) CreateLoggerOutputs(logLevel LogLevel, logFormat LogFormat) (LoggerOutputs, error) {
	zapLevel, levelError := resolveZapLevel(logLevel)
	if levelError != nil {
		return LoggerOutputs{}, levelError
	}

	normalizedFormat := LogFormat(strings.ToLower(strings.TrimSpace(string(logFormat))))
	switch normalizedFormat {
	case LogFormatStructured:
		diagnosticLogger, buildError := buildLogger(zapLevel, zapcore.NewJSONEncoder(structuredEncoderConfig()))
		if buildError != nil {
			return LoggerOutputs{}, buildError
		}
		return LoggerOutputs{DiagnosticLogger: diagnosticLogger, ConsoleLogger: zap.NewNop()}, nil
	case LogFormatConsole:
		diagnosticLogger, buildError := buildLogger(zapLevel, zapcore.NewConsoleEncoder(consoleEncoderConfig()))
		if buildError != nil {
			return LoggerOutputs{}, buildError
		}
		consoleLogger, consoleBuildError := buildLogger(zapLevel, zapcore.NewConsoleEncoder(messageOnlyEncoderConfig()))
		if consoleBuildError != nil {
			return LoggerOutputs{}, consoleBuildError
		}
		return LoggerOutputs{DiagnosticLogger: diagnosticLogger, ConsoleLogger: consoleLogger}, nil
	default:
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogFormatTemplateConstant, logFormat)
	}
}

func resolveZapLevel(logLevel LogLevel) (zapcore.Level, error) {
	switch LogLevel(strings.ToLower(strings.TrimSpace(string(logLevel)))) {
	case LogLevelDebug:
		return zapcore.DebugLevel, nil
	case LogLevelInfo:
		return zapcore.InfoLevel, nil
	case LogLevelWarn:
		return zapcore.WarnLevel, nil
	case LogLevelError:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf(unsupportedLogLevelTemplateConstant, logLevel)
	}
}

func buildLogger(level zapcore.Level, encoder zapcore.Encoder) (*zap.Logger, error) {
	if encoder == nil {
		return nil, fmt.Errorf(loggerBuildErrorTemplateConstant, fmt.Errorf("encoder missing"))
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(NewFlushingWriter(os.Stderr))), zap.NewAtomicLevelAt(level))
	return zap.New(core), nil
}

func structuredEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = timestampFieldNameConstant
	encoderConfig.LevelKey = levelFieldNameConstant
	encoderConfig.MessageKey = messageFieldNameConstant
	encoderConfig.CallerKey = callerFieldNameConstant
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return encoderConfig
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(consoleTimeLayoutConstant)
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return encoderConfig
}

func messageOnlyEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     messageFieldNameConstant,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}
