// Package notify delivers alerts and the persistent countdown notification
// to wherever the user reads them: the log, an MQTT broker (home displays,
// phones via bridges) or a NATS subject.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Sink is a notification target.
type Sink interface {
	// NotifyOnce sends a one-time alert.
	NotifyOnce(ctx context.Context, title, body string) error
	// ShowPersistent shows or replaces the notification tagged id.
	ShowPersistent(ctx context.Context, id, title, body string) error
	// Clear removes the notification tagged id.
	Clear(ctx context.Context, id string) error
	// Ready reports whether the sink may deliver notifications right now,
	// the equivalent of a granted notification permission.
	Ready() bool
}

// Message is the JSON payload published by the broker sinks.
type Message struct {
	ID     string    `json:"id"`
	Tag    string    `json:"tag,omitempty"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

func newMessage(tag, title, body string) Message {
	return Message{
		ID:     uuid.NewString(),
		Tag:    tag,
		Title:  title,
		Body:   body,
		SentAt: time.Now(),
	}
}

// Multi fans every call out to all sinks.
type Multi []Sink

var _ Sink = Multi(nil)

func (m Multi) each(fn func(Sink) error) error {
	var result *multierror.Error
	for _, s := range m {
		if err := fn(s); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// NotifyOnce sends to every sink and returns the combined errors.
func (m Multi) NotifyOnce(ctx context.Context, title, body string) error {
	return m.each(func(s Sink) error { return s.NotifyOnce(ctx, title, body) })
}

// ShowPersistent updates every sink.
func (m Multi) ShowPersistent(ctx context.Context, id, title, body string) error {
	return m.each(func(s Sink) error { return s.ShowPersistent(ctx, id, title, body) })
}

// Clear clears id on every sink.
func (m Multi) Clear(ctx context.Context, id string) error {
	return m.each(func(s Sink) error { return s.Clear(ctx, id) })
}

// Ready is true when at least one sink can deliver.
func (m Multi) Ready() bool {
	for _, s := range m {
		if s.Ready() {
			return true
		}
	}
	return false
}
