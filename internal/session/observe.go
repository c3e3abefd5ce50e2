package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Phase is a timed step of a session call.
type Phase string

const (
	PhaseOpen    Phase = "open"
	PhaseExecute Phase = "execute"
	PhaseFetch   Phase = "fetch"
	PhaseClose   Phase = "close"
)

// Timing is one elapsed-time measurement.
type Timing struct {
	Session string
	Op      string
	Phase   Phase
	Elapsed time.Duration
	Rows    int64 // rows fetched or affected; -1 when not applicable
	Err     error
}

// Observer receives phase timings. Observe is called synchronously on the
// calling goroutine and must not block.
type Observer interface {
	Observe(Timing)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Timing)

func (f ObserverFunc) Observe(t Timing) { f(t) }

// LogObserver writes timings to a structured logger: successes at debug
// level, failures at warn.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) Observe(t Timing) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		"session", t.Session,
		"op", t.Op,
		"phase", string(t.Phase),
		"elapsed_ms", t.Elapsed.Milliseconds(),
	}
	if t.Rows >= 0 {
		attrs = append(attrs, "rows", t.Rows)
	}
	if t.Err != nil {
		logger.Warn("sql phase failed", append(attrs, "error", t.Err)...)
		return
	}
	logger.Debug("sql phase complete", attrs...)
}

// Clock supplies wall time for phase measurements.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// IDGenerator produces session ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
