// Package notify delivers user-visible toasts.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind classifies a notification.
type Kind string

const (
	Success Kind = "success"
	Info    Kind = "info"
	Warning Kind = "warning"
	Error   Kind = "error"
)

// Sink receives notifications.
type Sink interface {
	Notify(kind Kind, title, message string)
}

// Toast is a recorded notification.
type Toast struct {
	Kind    Kind
	Title   string
	Message string
	At      time.Time
}

// Feed keeps the most recent toasts for the view to render.
type Feed struct {
	mu     sync.Mutex
	limit  int
	toasts []Toast
}

// NewFeed keeps at most limit toasts.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 5
	}
	return &Feed{limit: limit}
}

// Notify implements Sink.
func (f *Feed) Notify(kind Kind, title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.toasts = append(f.toasts, Toast{Kind: kind, Title: title, Message: message, At: time.Now()})
	if over := len(f.toasts) - f.limit; over > 0 {
		f.toasts = append([]Toast(nil), f.toasts[over:]...)
	}
}

// Recent returns toasts newer than maxAge, oldest first.
func (f *Feed) Recent(maxAge time.Duration) []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var out []Toast
	for _, t := range f.toasts {
		if maxAge <= 0 || t.At.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// LogSink writes notifications to a zap logger.
type LogSink struct {
	Logger *zap.Logger
}

// Notify implements Sink.
func (s LogSink) Notify(kind Kind, title, message string) {
	if s.Logger == nil {
		return
	}
	fields := []zap.Field{zap.String("kind", string(kind)), zap.String("title", title), zap.String("message", message)}
	switch kind {
	case Error:
		s.Logger.Warn("notification", fields...)
	default:
		s.Logger.Info("notification", fields...)
	}
}

// Multi fans a notification out to every sink.
type Multi []Sink

// Notify implements Sink.
func (m Multi) Notify(kind Kind, title, message string) {
	for _, s := range m {
		if s != nil {
			s.Notify(kind, title, message)
		}
	}
}

// Recorder captures notifications, mostly for tests.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

// Notify implements Sink.
func (r *Recorder) Notify(kind Kind, title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, Toast{Kind: kind, Title: title, Message: message, At: time.Now()})
}

// Toasts returns a copy of everything recorded.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Count returns how many toasts of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.toasts {
		if t.Kind == kind {
			n++
		}
	}
	return n
}
