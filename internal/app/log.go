package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"ids-go/internal/config"
	"ids-go/internal/ids"
)

const logFileName = "ids.log"

// newLogger creates a logger that writes JSON lines to a rotated file in
// cfg.Dir and human-readable lines to stderr. Every line carries the
// invocation id and command name.
// The returned closer flushes the logger and closes the log file.
func newLogger(cfg config.LogConfig, opID, command string) (*zap.Logger, io.Closer, error) {
	lvl := zap.NewAtomicLevel()
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("parsing log level: %w", err)
	}

	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, logFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}

	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	consoleEnc := zap.NewDevelopmentEncoderConfig()
	consoleEnc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(rotated), lvl),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.Lock(os.Stderr), lvl),
	)

	logger := zap.New(core).With(zap.String("op", opID), zap.String("command", command))
	return logger, &logCloser{logger: logger, file: rotated}, nil
}

type logCloser struct {
	logger *zap.Logger
	file   *lumberjack.Logger
}

func (c *logCloser) Close() error {
	// Sync on stderr fails with EINVAL on some terminals; the file is what matters.
	_ = c.logger.Sync()
	return c.file.Close()
}

// zapAdapter wraps *zap.SugaredLogger to satisfy the ids.Logger interface.
type zapAdapter struct {
	l *zap.SugaredLogger
}

var _ ids.Logger = (*zapAdapter)(nil)

func newZapAdapter(l *zap.Logger) *zapAdapter {
	return &zapAdapter{l: l.Sugar()}
}

func (a *zapAdapter) Debug(msg string, args ...any) { a.l.Debugw(msg, args...) }
func (a *zapAdapter) Info(msg string, args ...any)  { a.l.Infow(msg, args...) }
func (a *zapAdapter) Warn(msg string, args ...any)  { a.l.Warnw(msg, args...) }
func (a *zapAdapter) Error(msg string, args ...any) { a.l.Errorw(msg, args...) }
