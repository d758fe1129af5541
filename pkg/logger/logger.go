// Package logger holds the process-wide zerolog logger of the clinic web
// server and the echo request logger built on it. main calls Init once with
// the configured level and environment; every component then receives the
// logger by injection, and per-browser components derive a child with
// ForBrowser so all lines of one browser session share a browser_id field.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BrowserIDField is the field that ties log lines to a browser session.
const BrowserIDField = "browser_id"

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is LOG_LEVEL: trace, debug, info, warn or error. Anything else is info.
	Level string
	// Pretty switches to coloured console output. main enables it outside
	// production; production emits one JSON object per line.
	Pretty bool
	// Output defaults to os.Stdout. Tests pass a buffer.
	Output io.Writer
	// Service and Env, when set, are stamped on every line so logs from
	// several deployments can share one sink.
	Service string
	Env     string
}

var (
	instance    zerolog.Logger
	once        sync.Once
	initialized bool
)

// Init builds the process logger. Only the first call has any effect.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		instance = build(opts)
		initialized = true
	})
	return instance
}

func build(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl := parseLevel(opts.Level)
	zerolog.SetGlobalLevel(lvl)

	ctx := zerolog.New(out).Level(lvl).With().Timestamp().Caller()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if opts.Env != "" {
		ctx = ctx.Str("env", opts.Env)
	}
	return ctx.Logger()
}

// Get returns the process logger. It panics before Init.
func Get() zerolog.Logger {
	if !initialized {
		panic("logger: Get() called before Init()")
	}
	return instance
}

// Reset drops the process logger so the next Init rebuilds it. Tests only.
func Reset() {
	once = sync.Once{}
	instance = zerolog.Logger{}
	initialized = false
}

// ForBrowser returns a child of log bound to one browser session.
func ForBrowser(log zerolog.Logger, browserID string) zerolog.Logger {
	return log.With().Str(BrowserIDField, browserID).Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
