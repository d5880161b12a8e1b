// Package logger construye el *zap.Logger del proceso.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log = zap.NewNop()

// New crea un logger JSON de producción con el nivel indicado ("debug",
// "info", "warn", "error"). Un nivel vacío equivale a info.
func New(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, err
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{"service": "criterialab"}
	return cfg.Build()
}

// Init instala el logger global; con un nivel inválido cae a info y lo avisa.
func Init(level string) {
	l, err := New(level)
	if err != nil {
		l, _ = New("")
		l.Warn("invalid LOG_LEVEL, using info", zap.String("level", level), zap.Error(err))
	}
	log = l
}

// Logger devuelve el logger global (no-op hasta Init).
func Logger() *zap.Logger {
	return log
}
