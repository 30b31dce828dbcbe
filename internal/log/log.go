package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const envLogLevel = "LOG_LEVEL"

var (
	once   sync.Once
	logger zerolog.Logger
)

// InitLogger builds the process logger once. An empty filepath logs to
// stdout only.
func InitLogger(filepath string) zerolog.Logger {
	once.Do(func() {
		zerolog.DurationFieldUnit = time.Millisecond
		zerolog.ErrorFieldName = "error"
		zerolog.ErrorStackFieldName = "stack-trace"
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.LevelFieldName = "level"
		zerolog.MessageFieldName = "message"
		zerolog.TimestampFieldName = "timestamp"

		logger = newLogger(writer(os.Stdout, filepath), levelFromEnv()).
			With().
			Caller().
			Stack().
			Int("pid", os.Getpid()).
			Logger()

		logger.Info().
			Str(KeyTag, "InitLogger").
			Str(KeyProcess, "InitLogger").
			Str(KeyLogFile, filepath).
			Msg("finish initiating logging")
	})
	return logger
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		Hook(AttachTraceIdFromContext()).
		With().
		Timestamp().
		Logger()
}

func writer(stdout io.Writer, filepath string) io.Writer {
	if filepath == "" {
		return stdout
	}
	return zerolog.MultiLevelWriter(stdout, &lumberjack.Logger{
		Filename:   filepath,
		MaxSize:    100,
		MaxBackups: 5,
		Compress:   true,
	})
}

// levelFromEnv reads LOG_LEVEL, falling back to trace in development and
// info everywhere else.
func levelFromEnv() zerolog.Level {
	if level, err := zerolog.ParseLevel(strings.ToLower(os.Getenv(envLogLevel))); err == nil && level != zerolog.NoLevel {
		return level
	}
	if os.Getenv("APPLICATION_ENV") == "development" {
		return zerolog.TraceLevel
	}
	return zerolog.InfoLevel
}
