package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init builds the process logger on stdout and installs it as the zerolog global.
func Init(level, format string) zerolog.Logger {
	return InitWithWriter(os.Stdout, level, format)
}

// InitWithWriter is Init with an explicit sink. format is "json" or "console";
// anything else falls back to console. Unknown levels fall back to info.
func InitWithWriter(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if format == "json" {
		l = zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger().Level(lvl)
	}

	zlog.Logger = l
	return l
}

// Component returns a child of the global logger tagged with component=name.
func Component(name string) zerolog.Logger {
	return zlog.Logger.With().Str("component", name).Logger()
}
