package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	Logger *zap.Logger
}

var (
	ProductionMode  = "production"
	DevelopmentMode = "development"
)

func New(mode string) *Logger {
	var config zap.Config
	if mode == ProductionMode {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapLogger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return &Logger{Logger: zapLogger}
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

type ctxKey string

var RequestIdKey ctxKey = "request_id"
var ConnectionIdKey ctxKey = "client_id"

// WithContext returns the underlying zap logger annotated with the request
// and connection ids carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *zap.Logger {
	return l.Logger.With(ContextFields(ctx)...)
}

// ContextFields returns the request and connection ids carried by ctx as
// zap fields.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if ctx == nil {
		return fields
	}
	if requestId, ok := ctx.Value(RequestIdKey).(string); ok {
		fields = append(fields, zap.String(string(RequestIdKey), requestId))
	}
	if clientId, ok := ctx.Value(ConnectionIdKey).(string); ok {
		fields = append(fields, zap.String(string(ConnectionIdKey), clientId))
	}
	return fields
}

var logger *Logger

// SetGlobalLogger installs l as the package logger and as zap's global
// logger so zap.L() callers share the same sink.
func SetGlobalLogger(l *Logger) {
	logger = l
	if l != nil {
		zap.ReplaceGlobals(l.Logger)
	}
}

func GetGlobalLogger() *Logger {
	return logger
}

func (l *Logger) Infof(template string, args ...interface{}) {
	l.Logger.Sugar().Infof(template, args...)
}

func (l *Logger) Warnf(template string, args ...interface{}) {
	l.Logger.Sugar().Warnf(template, args...)
}

func (l *Logger) Errorf(template string, args ...interface{}) {
	l.Logger.Sugar().Errorf(template, args...)
}

func (l *Logger) Sync() {
	_ = l.Logger.Sync()
}
