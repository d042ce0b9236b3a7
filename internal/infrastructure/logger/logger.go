package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	*zap.SugaredLogger
}

// New builds a console logger on stderr, teeing JSON lines into logFile when set.
// Each verbosity step lowers the configured level by one (warn -> info -> debug).
func New(logLevel, logFile string, verbosity int) (*Logger, error) {
	if logFile != "" {
		logDir := filepath.Dir(logFile)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	level := Level(logLevel, verbosity)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)

	consoleWriter := zapcore.AddSync(os.Stderr)

	var core zapcore.Core
	if logFile != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
		core = zapcore.NewTee(
			zapcore.NewCore(consoleEncoder, consoleWriter, level),
			zapcore.NewCore(fileEncoder, fileWriter, level),
		)
	} else {
		core = zapcore.NewCore(consoleEncoder, consoleWriter, level)
	}

	zapLogger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.DPanicLevel))
	return &Logger{zapLogger.Sugar()}, nil
}

// Level resolves the effective level; unknown names fall back to warn.
func Level(logLevel string, verbosity int) zapcore.Level {
	level := zapcore.WarnLevel
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = zapcore.WarnLevel
	}
	for ; verbosity > 0 && level > zapcore.DebugLevel; verbosity-- {
		level--
	}
	return level
}

// Verbose reports whether command output is being logged.
func (l *Logger) Verbose() bool {
	return l.Desugar().Core().Enabled(zapcore.DebugLevel)
}

func (l *Logger) Close() {
	_ = l.Sync()
}
