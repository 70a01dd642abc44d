// Package notify delivers user-facing failure messages. Sinks are
// fire-and-forget: delivery problems are logged, never returned.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Sink receives user-facing messages. Notify must not block on delivery
// failures.
type Sink interface {
	Notify(ctx context.Context, message string)
}

// Publish sends every message to sink in order.
func Publish(ctx context.Context, sink Sink, messages []string) {
	if sink == nil {
		return
	}
	for _, m := range messages {
		sink.Notify(ctx, m)
	}
}

// LogSink writes messages to a slog logger at warn level.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(ctx context.Context, message string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "user notification", "message", message)
}

// Multi fans a message out to several sinks.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, message string) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, message)
		}
	}
}

// Recorder keeps messages in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *Recorder) Notify(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
