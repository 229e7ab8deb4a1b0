// Package notify provides notification sinks that are not tied to a storage
// backend: structured-log emission, an in-memory recorder, and a fan-out.
package notify

import (
	"context"
	"sync"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// LogSink implements ports.NotificationSink by writing each record to the
// structured log.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a log-backed notification sink.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Emit logs one notification record.
func (s *LogSink) Emit(_ context.Context, n domain.Notification) error {
	event := s.log.Info().
		Str("id", n.ID.String()).
		Str("kind", string(n.Kind)).
		Str("amount", domain.FormatAmount(n.Amount)).
		Time("emitted_at", n.EmittedAt)
	if n.From != nil {
		event = event.Str("from", n.From.Hex())
	}
	if n.To != nil {
		event = event.Str("to", n.To.Hex())
	}
	event.Msg("ledger notification")
	return nil
}

// Recorder implements ports.NotificationSink by appending records to memory.
// Used by tests and the development host to inspect emitted notifications.
type Recorder struct {
	mu      sync.Mutex
	records []domain.Notification
}

// NewRecorder creates an empty notification recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit appends one record.
func (r *Recorder) Emit(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, n)
	return nil
}

// Records returns a copy of all recorded notifications in emission order.
func (r *Recorder) Records() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, len(r.records))
	copy(out, r.records)
	return out
}

// Multi fans one notification out to several sinks. The first sink error is
// returned after every sink has been tried.
type Multi struct {
	sinks []ports.NotificationSink
}

// NewMulti creates a fan-out sink.
func NewMulti(sinks ...ports.NotificationSink) *Multi {
	return &Multi{sinks: sinks}
}

// Emit delivers the record to every sink.
func (m *Multi) Emit(ctx context.Context, n domain.Notification) error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Emit(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
