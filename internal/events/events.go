// Package events fans values out from a single producer to many subscribers.
//
// A [Broadcaster] never blocks its producer. Every subscriber owns a bounded buffer; when a
// publish finds that buffer full the subscriber is disconnected (its channel is closed) instead
// of stalling delivery to everyone else. Values reach each subscriber in publish order.
package events

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/shared"
)

// DefaultBuffer is the per-subscriber buffer used when none is configured.
const DefaultBuffer = 32

// Subscription is one consumer's view of a [Broadcaster].
type Subscription[T any] struct {
	id     string
	ch     chan T
	parent *Broadcaster[T]
	once   sync.Once
}

// ID returns the subscription id.
func (s *Subscription[T]) ID() string { return s.id }

// C returns the receive channel. It is closed when the subscription ends, either by
// [Subscription.Close] or because the subscriber fell behind.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.parent.remove(s.id, "closed")
}

func (s *Subscription[T]) close() {
	s.once.Do(func() { close(s.ch) })
}

// Broadcaster delivers published values to every live subscription.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[string]*Subscription[T]
	order  []string
	buffer int
	prime  func() []T
	closed bool
	logger *log.Logger
}

// Option configures a [Broadcaster].
type Option[T any] func(*Broadcaster[T])

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer[T any](n int) Option[T] {
	return func(b *Broadcaster[T]) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithLogger sets the logger used to report dropped subscribers.
func WithLogger[T any](l *log.Logger) Option[T] {
	return func(b *Broadcaster[T]) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithPrime registers a function whose values are queued on every new subscription before any
// later publish, so late subscribers start from the current snapshot.
func WithPrime[T any](fn func() []T) Option[T] {
	return func(b *Broadcaster[T]) { b.prime = fn }
}

// NewBroadcaster creates a broadcaster.
func NewBroadcaster[T any](opts ...Option[T]) *Broadcaster[T] {
	b := &Broadcaster[T]{
		subs:   make(map[string]*Subscription[T]),
		buffer: DefaultBuffer,
		logger: shared.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a new subscription. Subscribing to a closed broadcaster returns an already closed subscription.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	var primed []T
	if b.prime != nil && !b.closed {
		primed = b.prime()
	}

	// The buffer always fits the whole snapshot, however small it is configured.
	sub := &Subscription[T]{
		id:     shared.GenerateID(),
		ch:     make(chan T, max(b.buffer, len(primed))),
		parent: b,
	}

	if b.closed {
		sub.close()
		return sub
	}

	for _, v := range primed {
		sub.ch <- v
	}

	b.subs[sub.id] = sub
	b.order = append(b.order, sub.id)
	return sub
}

// Publish delivers v to every subscription without blocking. Subscribers whose buffer is full are disconnected.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	var slow []string
	for _, id := range b.order {
		sub := b.subs[id]
		select {
		case sub.ch <- v:
		default:
			slow = append(slow, id)
		}
	}

	for _, id := range slow {
		b.removeLocked(id, "buffer full")
	}
}

// Len returns the number of live subscriptions.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close disconnects every subscriber. Later publishes are ignored.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, id := range append([]string(nil), b.order...) {
		b.removeLocked(id, "broadcaster closed")
	}
}

func (b *Broadcaster[T]) remove(id, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(id, reason)
}

func (b *Broadcaster[T]) removeLocked(id, reason string) {
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	for i, other := range b.order {
		if other == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	sub.close()
	b.logger.Debug("subscriber disconnected", "subscription", id, "reason", reason, "remaining", len(b.subs))
}
