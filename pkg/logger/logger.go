package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging across the handlers
const (
	FieldJob       = "job"
	FieldRunID     = "run_id"
	FieldRequestID = "request_id"
	FieldEventID   = "event_id"
	FieldCategory  = "category"
	FieldStatus    = "status"
	FieldCount     = "count"
	FieldError     = "error"
	FieldInstance  = "instance_id"
	FieldFunction  = "function"
	FieldRoute     = "route"
)

var (
	// Logger is the global sugared logger. Safe to use before Initialize.
	Logger *zap.SugaredLogger
	// JSONOutput reports whether the logger emits JSON
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// InitializeForLambda sets up the global logger for Lambda functions. Inside
// Lambda the output is JSON for CloudWatch; locally it is a console encoder.
func InitializeForLambda() error {
	level := levelFromEnv()

	var zapLogger *zap.Logger
	var err error

	if isLambdaEnvironment() {
		JSONOutput = true
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
		config.EncoderConfig.TimeKey = "ts"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapLogger, err = config.Build()
	} else {
		JSONOutput = false
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encoderConfig),
				zapcore.AddSync(os.Stderr),
				level,
			),
		)
	}
	if err != nil {
		return err
	}

	Logger = zapLogger.Sugar()
	return nil
}

// Use replaces the global logger. Tests use it with zaptest/observer.
func Use(l *zap.Logger) {
	Logger = l.Sugar()
}

// With returns a child logger carrying the given key/value pairs
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return Logger.With(keysAndValues...)
}

func isLambdaEnvironment() bool {
	return os.Getenv("AWS_EXECUTION_ENV") != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

func levelFromEnv() zapcore.Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return zap.DebugLevel
	case "WARN", "WARNING":
		return zap.WarnLevel
	case "ERROR":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Sync flushes any buffered log entries
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Infow logs an info message with structured fields
func Infow(msg string, keysAndValues ...interface{}) {
	Logger.Infow(msg, keysAndValues...)
}

// Warnw logs a warning with structured fields
func Warnw(msg string, keysAndValues ...interface{}) {
	Logger.Warnw(msg, keysAndValues...)
}

// Errorw logs an error with structured fields
func Errorw(msg string, keysAndValues ...interface{}) {
	Logger.Errorw(msg, keysAndValues...)
}

// Debugw logs a debug message with structured fields
func Debugw(msg string, keysAndValues ...interface{}) {
	Logger.Debugw(msg, keysAndValues...)
}
