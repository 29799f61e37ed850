// Package logging configures zerolog for morningbrief.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New builds the root logger. Terminals get a console writer, everything else
// gets JSON lines.
func New(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimestampFieldName = "timestamp"

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		console := zerolog.NewConsoleWriter()
		console.TimeFormat = time.DateTime
		console.Out = w
		w = console
	}

	return zerolog.New(w).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Once emits a log event at most once per key. It is owned by whoever runs a
// unit of work (one resolve call, one brief run) and dropped afterwards.
type Once struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewOnce returns an empty one-shot tracker.
func NewOnce() *Once {
	return &Once{seen: make(map[string]struct{})}
}

// Do runs fn the first time key is seen.
func (o *Once) Do(key string, fn func()) {
	o.mu.Lock()
	if _, ok := o.seen[key]; ok {
		o.mu.Unlock()
		return
	}
	o.seen[key] = struct{}{}
	o.mu.Unlock()
	fn()
}
