package log

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type LogFormat string

var (
	Pretty LogFormat = "pretty"
	JSON   LogFormat = "json"
	Text   LogFormat = "text"
)

const (
	FatalLevel = zerolog.FatalLevel
	PanicLevel = zerolog.PanicLevel
	ErrorLevel = zerolog.ErrorLevel
	WarnLevel  = zerolog.WarnLevel
	InfoLevel  = zerolog.InfoLevel
	DebugLevel = zerolog.DebugLevel
	TraceLevel = zerolog.TraceLevel
)

var (
	// current holds the *zerolog.Logger used by every package level helper. Swapping it
	// keeps the helpers pointing at the latest level and output.
	current atomic.Value

	globalFormat = JSON

	ErrUnsupportedFormat = fmt.Errorf("unsupported format. supported 'json', 'pretty', 'text")
)

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(InfoLevel)
	current.Store(&l)
}

func logger() *zerolog.Logger {
	return current.Load().(*zerolog.Logger)
}

func Fatal() *zerolog.Event { return logger().Fatal() }
func Panic() *zerolog.Event { return logger().Panic() }
func Error() *zerolog.Event { return logger().Error() }
func Warn() *zerolog.Event  { return logger().Warn() }
func Info() *zerolog.Event  { return logger().Info() }
func Debug() *zerolog.Event { return logger().Debug() }
func Trace() *zerolog.Event { return logger().Trace() }

func Err(err error) *zerolog.Event { return logger().Err(err) }

func With() zerolog.Context { return logger().With() }

func GetLevel() zerolog.Level { return logger().GetLevel() }

func SetLevel(l zerolog.Level) {
	next := logger().Level(l)
	current.Store(&next)
}

func SetLevelString(level string) error {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	SetLevel(l)
	return nil
}

// SetOutput redirects the logger, keeping the level. Used by tests to capture events
func SetOutput(w io.Writer) {
	next := logger().Output(w)
	current.Store(&next)
}

func GetLogFormat() LogFormat {
	return globalFormat
}

func SetFormat(format string) error {
	switch format {
	case "json", "":
		SetOutput(os.Stderr)
		globalFormat = JSON
	case "pretty":
		SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false, TimeFormat: "\r3:04PM"})
		globalFormat = Pretty
	case "text":
		SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true, TimeFormat: "\r3:04PM"})
		globalFormat = Text
	default:
		return ErrUnsupportedFormat
	}
	return nil
}
