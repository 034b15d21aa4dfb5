// backend-go/pkg/logger/logger.go
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	// Default to console output with color
	configure(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	}, zerolog.InfoLevel)
}

// Init picks the output for the server mode: colored console in debug, JSON lines otherwise.
// The zerolog/log package logger used inside services follows the same settings.
func Init(mode string) {
	if mode == "debug" {
		configure(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}, zerolog.DebugLevel)
		return
	}
	configure(os.Stdout, zerolog.InfoLevel)
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	log.Logger = Log
}

func configure(out io.Writer, level zerolog.Level) {
	Log = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Str("service", "oilhub").
		Logger()
	zerolog.SetGlobalLevel(level)
	log.Logger = Log
}
