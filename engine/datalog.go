package engine

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewSessionLogger writes every entry to the session log file with a time
// column in seconds since start. Entries at warn level and above are also
// passed to console when it is non-nil.
func NewSessionLogger(path string, start time.Time, console *zap.Logger) (*zap.Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session log: %w", err)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(sessionEncoderConfig(start)),
		zapcore.Lock(f),
		zapcore.DebugLevel,
	)
	if console != nil {
		warn, err := zapcore.NewIncreaseLevelCore(console.Core(), zapcore.WarnLevel)
		if err == nil {
			core = zapcore.NewTee(core, warn)
		}
	}

	logger := zap.New(core)
	closeFn := func() error {
		_ = logger.Sync()
		return f.Close()
	}
	return logger, closeFn, nil
}

func sessionEncoderConfig(start time.Time) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "t",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " \t",
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.SecondsDurationEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(fmt.Sprintf("%.4f", t.Sub(start).Seconds()))
		},
	}
}

// LogSessionHeader writes the banner describing who and what is being run.
func LogSessionHeader(log *zap.Logger, info *SessionInfo, outDir, audioBackend string) {
	log.Info(fmt.Sprintf("------------- %s -------------", time.Now().UTC().Format("2006-01-02 15:04:05")))
	log.Info("Session ID: " + info.ID)
	log.Info("Saving in folder: " + outDir)
	log.Info("Operator: " + info.Operator)
	log.Info(fmt.Sprintf("Subject. Code: %s - Age: %s - Gender: %s", info.SubjectCode, info.Age, info.Gender))
	if info.Scanner {
		log.Info(fmt.Sprintf("Scanner. TR: %s - Volumes: %s - Skip: %s - Sync: %s - Mode: %s", info.TR, info.Volumes, info.Skip, info.Sync, info.Mode))
	} else {
		log.Info("Scanner: off")
	}
	log.Info(fmt.Sprintf("Using %s for sounds", audioBackend))
	log.Info("***** Starting *****")
}
