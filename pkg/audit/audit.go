// Package audit defines the write-only event interface the trust-boundary
// components emit security outcomes through. The core never persists audit
// events itself; a sink is an external collaborator.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"antevus.backend/pkg/logger"
)

// Event types emitted by the core.
const (
	EventCredentialIssued           = "credential.issued"
	EventCredentialRevoked          = "credential.revoked"
	EventCredentialValidationFailed = "credential.validation_failed"
	EventCSRFValidationFailed       = "csrf.validation_failed"
	EventSessionExpired             = "session.expired"
	EventSessionCleared             = "session.cleared"
)

// Event is a discrete security-relevant outcome. Subject and Resource are set
// when known; Reason carries the failure taxonomy value on failed outcomes.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Subject   string    `json:"subject,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
}

// Sink receives audit events. Implementations must tolerate concurrent Emit
// calls and must never block the request path for long.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// ZapSink writes events through the structured (redacting) logger.
type ZapSink struct{}

func (ZapSink) Emit(ctx context.Context, event Event) {
	if logger.GetLogger() == nil {
		return
	}
	logger.Info(ctx, "audit",
		zap.String("event", event.Type),
		zap.String("subject", event.Subject),
		zap.String("resource", event.Resource),
		zap.Bool("success", event.Success),
		zap.String("reason", event.Reason),
	)
}

// ChannelSink buffers events on a channel; used in tests and by consumers that
// forward events elsewhere. Emit drops rather than blocks when the buffer is full.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(_ context.Context, event Event) {
	select {
	case s.events <- event:
	default:
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// RecorderSink captures events in memory for assertions in tests.
type RecorderSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *RecorderSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *RecorderSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByType returns the captured events matching the given type.
func (s *RecorderSink) ByType(eventType string) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
