package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Record is one structured message emitted by the request engine.
type Record struct {
	Level     zerolog.Level
	Message   string
	Operation string
	Attempt   int
	Err       error

	// Trace holds the formatted stack context of Err, when available.
	Trace string
}

// Func receives log records. Implementations must not retain the record's Err
// beyond the call if they mutate it.
type Func func(Record)

// Predicate decides whether a failure should be logged at all.
type Predicate func(error) bool

// ZerologSink returns a Func writing records to the given logger.
func ZerologSink(logger zerolog.Logger) Func {
	return func(r Record) {
		ev := logger.WithLevel(r.Level)
		if r.Operation != "" {
			ev = ev.Str("operation", r.Operation)
		}
		if r.Attempt > 0 {
			ev = ev.Int("attempt", r.Attempt)
		}
		if r.Err != nil {
			ev = ev.Err(r.Err)
		}
		if r.Trace != "" {
			ev = ev.Str("trace", r.Trace)
		}
		ev.Msg(r.Message)
	}
}

// DefaultSink writes to the process-wide zerolog logger, resolved at call time
// so that a later Setup is honored.
func DefaultSink() Func {
	return func(r Record) {
		ZerologSink(log.Logger)(r)
	}
}

// Discard drops every record.
func Discard(Record) {}
