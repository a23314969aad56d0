package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewFileLogger returns a logger writing to stdout and, as JSON lines, to a size rotated file
// at path. Closing the returned closer closes the file.
func NewFileLogger(name, path string, level zapcore.Level) (Logger, io.Closer) {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64,
		MaxBackups: 2,
		Compress:   true,
	}
	encoderCfg := NewZapLoggerConfig().EncoderConfig
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), zapcore.DebugLevel)
	return newImpl(name, zap.NewAtomicLevelAt(level), newStdoutCore(), fileCore), file
}
