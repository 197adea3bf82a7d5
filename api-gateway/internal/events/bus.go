// Package events is the gateway's in-process fanout of auction updates to
// live stream subscribers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/aaronwang/auction-platform/shared/metrics"
	"github.com/aaronwang/auction-platform/shared/models"
)

// Message is one published update
type Message struct {
	Type    models.UpdateType
	Payload any
}

// Subscriber owns a private unbounded queue of messages
type Subscriber struct {
	mu     sync.Mutex
	queue  []Message
	notify chan struct{}
}

func newSubscriber() *Subscriber {
	return &Subscriber{notify: make(chan struct{}, 1)}
}

func (s *Subscriber) push(msg Message) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscriber) pop() (Message, bool) {
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

// Pending returns the number of queued messages
func (s *Subscriber) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Next waits up to timeout for the next message. It returns ok=false when the
// timeout elapses with nothing queued, and ctx.Err() when ctx is done.
func (s *Subscriber) Next(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	if msg, ok := s.pop(); ok {
		return msg, true, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-s.notify:
			if msg, ok := s.pop(); ok {
				return msg, true, nil
			}
		case <-timer.C:
			return Message{}, false, nil
		case <-ctx.Done():
			return Message{}, false, ctx.Err()
		}
	}
}

// Bus delivers every published message to every registered subscriber
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new subscriber
func (b *Bus) Subscribe() *Subscriber {
	sub := newSubscriber()

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	metrics.SubscriberAdded()
	return sub
}

// Unsubscribe removes sub. Calling it more than once is a no-op.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	_, ok := b.subs[sub]
	delete(b.subs, sub)
	b.mu.Unlock()

	if ok {
		metrics.SubscriberRemoved()
	}
}

// Publish enqueues the message on every subscriber. The lock is held for the
// whole fanout so all subscribers see the same publish order.
func (b *Bus) Publish(msgType models.UpdateType, payload any) {
	msg := Message{Type: msgType, Payload: payload}

	b.mu.Lock()
	for sub := range b.subs {
		sub.push(msg)
	}
	b.mu.Unlock()

	metrics.RecordPublish(string(msgType))
}

// Len returns the number of registered subscribers
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
