package logger

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/integrateisp/ops-api/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. JSON output is used when requested and
// always in production; other environments get a colored console encoder.
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" || appCfg.Environment == "production" {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	// error and above go to stderr
	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= level && l < zapcore.ErrorLevel })
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= level && l >= zapcore.ErrorLevel })
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), low),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), high),
	)

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(
			zap.String("app", appCfg.Name),
			zap.String("environment", appCfg.Environment),
		),
	), nil
}

type requestFieldsKey struct{}

// RequestFields collects fields that inner handlers attach to the access log line
type RequestFields struct {
	mu     sync.Mutex
	fields []zap.Field
}

// Fields returns a copy of the collected fields
func (rf *RequestFields) Fields() []zap.Field {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return append([]zap.Field(nil), rf.fields...)
}

// WithRequestFields installs an empty collector on the context
func WithRequestFields(ctx context.Context) (context.Context, *RequestFields) {
	rf := &RequestFields{}
	return context.WithValue(ctx, requestFieldsKey{}, rf), rf
}

// AddRequestFields appends to the collector on ctx. It does nothing when the
// request is not wrapped by the access logger.
func AddRequestFields(ctx context.Context, fields ...zap.Field) {
	rf, ok := ctx.Value(requestFieldsKey{}).(*RequestFields)
	if !ok {
		return
	}
	rf.mu.Lock()
	rf.fields = append(rf.fields, fields...)
	rf.mu.Unlock()
}
