package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/semmidev/pgkeeper/internal/domain"
)

type Logger struct {
	*zap.SugaredLogger
	level zapcore.Level
	file  io.Closer
}

func New(logLevel, logFile string) (*Logger, error) {
	if logFile != "" {
		logDir := filepath.Dir(logFile)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	level := parseLevel(logLevel)
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(os.Stdout), level)

	l := &Logger{level: level}
	core := consoleCore
	if logFile != "" {
		writer := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		}
		core = zapcore.NewTee(consoleCore, jsonCore(zapcore.AddSync(writer), level))
		l.file = writer
	}

	l.SugaredLogger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Sugar()
	return l, nil
}

// ForRun derives a logger that also writes to <logRoot>/<YYYYMMDD>/backup_<timestamp>.log.
// Creating the dated directory is part of constructing the run. The file is
// released by Close.
func (l *Logger) ForRun(logRoot string, now time.Time) (*Logger, error) {
	dir := domain.DatedDir(logRoot, now)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, domain.RunLogName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	fileCore := jsonCore(zapcore.AddSync(f), l.level)
	sugared := l.SugaredLogger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	}))

	run := &Logger{SugaredLogger: sugared, level: l.level, file: f}
	run.Infof("Run log initialised: %s", path)
	return run, nil
}

func (l *Logger) Close() {
	_ = l.Sync()
	if l.file != nil {
		_ = l.file.Close()
	}
}

func parseLevel(raw string) zapcore.Level {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		level = zapcore.InfoLevel
	}
	return level
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func jsonCore(w zapcore.WriteSyncer, level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), w, level)
}
