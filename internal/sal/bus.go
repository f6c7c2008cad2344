// Package sal carries topic traffic between the driver and the external
// scheduler. A Bus moves opaque JSON messages by topic name; the Proxy layers
// commands, typed reads and poll-with-timeout on top of it.
package sal

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the middleware topic families
type Kind string

const (
	KindTelemetry Kind = "telemetry"
	KindEvent     Kind = "event"
	KindCommand   Kind = "command"
)

// Message is one publication on a topic
type Message struct {
	ID      string
	Topic   string
	Kind    Kind
	Sent    time.Time
	Payload json.RawMessage
}

// Decode unmarshals the payload into v
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// NewMessage marshals v into a message on topic
func NewMessage(topic string, kind Kind, v any) (Message, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{ID: uuid.NewString(), Topic: topic, Kind: kind, Sent: time.Now().UTC(), Payload: payload}, nil
}

// Bus is a topic-addressed publish/subscribe transport
type Bus interface {
	Publish(ctx context.Context, msg Message) error
	// Subscribe returns one ordered mailbox for all the given topics.
	// Only messages published after Subscribe returns are delivered.
	Subscribe(ctx context.Context, topics ...string) (*Subscription, error)
	Close() error
}

// Subscription is an unbounded FIFO mailbox fed by a bus
type Subscription struct {
	ID     string
	Topics []string

	mu     sync.Mutex
	queue  []Message
	notify chan struct{}
	closed bool
	onStop func()
}

func newSubscription(topics []string) *Subscription {
	return &Subscription{
		ID:     uuid.NewString(),
		Topics: slices.Clone(topics),
		notify: make(chan struct{}, 1),
	}
}

func (s *Subscription) deliver(msg Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// TryRead pops the oldest queued message without blocking
func (s *Subscription) TryRead() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Message{}, false
	}
	msg := s.queue[0]
	s.queue[0] = Message{}
	s.queue = s.queue[1:]
	return msg, true
}

// Next blocks until a message is queued or ctx is done
func (s *Subscription) Next(ctx context.Context) (Message, error) {
	for {
		if msg, ok := s.TryRead(); ok {
			return msg, nil
		}
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return Message{}, ErrBusClosed
		}
		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-s.notify:
		}
	}
}

// Len is the number of queued messages
func (s *Subscription) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Drain discards every queued message and returns how many were dropped
func (s *Subscription) Drain() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.queue)
	s.queue = nil
	return n
}

// Close detaches the subscription from its bus
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	stop := s.onStop
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
