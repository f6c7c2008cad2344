package sal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBus is an in-process Bus. Publish delivers synchronously to every
// subscriber of the topic.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*Subscription
	closed bool
}

// NewMemoryBus creates an empty bus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[string]*Subscription)}
}

// Publish fans msg out to the topic's subscribers
func (b *MemoryBus) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Sent.IsZero() {
		msg.Sent = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	for _, sub := range b.subs[msg.Topic] {
		sub.deliver(msg)
	}
	return nil
}

// Subscribe registers a mailbox for topics
func (b *MemoryBus) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := newSubscription(topics)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	for _, topic := range topics {
		if b.subs[topic] == nil {
			b.subs[topic] = make(map[string]*Subscription)
		}
		b.subs[topic][sub.ID] = sub
	}
	sub.onStop = func() { b.unsubscribe(sub) }
	return sub, nil
}

func (b *MemoryBus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range sub.Topics {
		delete(b.subs[topic], sub.ID)
		if len(b.subs[topic]) == 0 {
			delete(b.subs, topic)
		}
	}
}

// Subscribers counts the mailboxes listening on topic
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Close closes every subscription
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*Subscription
	seen := make(map[string]bool)
	for _, byID := range b.subs {
		for id, sub := range byID {
			if !seen[id] {
				seen[id] = true
				all = append(all, sub)
			}
		}
	}
	b.subs = make(map[string]map[string]*Subscription)
	b.mu.Unlock()

	for _, sub := range all {
		sub.mu.Lock()
		sub.onStop = nil
		sub.mu.Unlock()
		sub.Close()
	}
	return nil
}
