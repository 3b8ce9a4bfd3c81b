package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const dirMode = 0o755

// NewFileLogger returns a JSON zap logger writing to a rotated file at filePath.
func NewFileLogger(filePath string) (*zap.Logger, error) {
	filePath = filepath.Clean(filePath)
	if err := os.MkdirAll(filepath.Dir(filePath), dirMode); err != nil {
		return nil, err
	}

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSize,
		MaxBackups: maxBack,
		MaxAge:     maxAge,
	})

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		writer,
		zap.InfoLevel,
	)
	return zap.New(core), nil
}
