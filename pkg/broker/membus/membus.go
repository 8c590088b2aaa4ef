// Package membus is an in-process broker with at-least-once, redeliver-until-ack
// semantics. Every consumer group gets its own copy of each message.
package membus

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
)

type Bus struct {
	mu   sync.Mutex
	subs []*Subscription
}

func New() *Bus {
	return &Bus{}
}

func (b *Bus) Publish(_ context.Context, msg broker.Message) error {
	b.mu.Lock()
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		if slices.Contains(s.topics, msg.Topic) {
			s.enqueue(msg)
		}
	}
	return nil
}

// Subscribe registers h for topics under group. Messages published before the
// call are not seen.
func (b *Bus) Subscribe(group string, topics []string, h broker.Handler) *Subscription {
	s := &Subscription{
		group:   group,
		topics:  topics,
		handler: h,
		notify:  make(chan struct{}, 1),
	}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s
}

// DeliverPending drains every subscription once. A subscription stops at the
// first failing message, which stays queued.
func (b *Bus) DeliverPending(ctx context.Context) (int, error) {
	b.mu.Lock()
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	var (
		total int
		errs  []error
	)
	for _, s := range subs {
		n, err := s.Deliver(ctx)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// Consumer adapts the bus to broker.Consumer.
func (b *Bus) Consumer(group string, topics ...string) *Consumer {
	return &Consumer{bus: b, group: group, topics: topics, RetryDelay: 200 * time.Millisecond}
}

type Subscription struct {
	group   string
	topics  []string
	handler broker.Handler
	notify  chan struct{}

	mu    sync.Mutex
	queue []broker.Message
}

func (s *Subscription) enqueue(msg broker.Message) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Pending returns the number of unacknowledged messages.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Deliver hands queued messages to the handler in order and acknowledges each
// one only after the handler returned nil.
func (s *Subscription) Deliver(ctx context.Context) (int, error) {
	delivered := 0
	for {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return delivered, nil
		}
		msg := s.queue[0]
		s.mu.Unlock()

		if err := s.handler(ctx, msg); err != nil {
			return delivered, err
		}

		s.mu.Lock()
		s.queue = s.queue[1:]
		s.mu.Unlock()
		delivered++
	}
}

type Consumer struct {
	bus        *Bus
	group      string
	topics     []string
	RetryDelay time.Duration
}

func (c *Consumer) Run(ctx context.Context, h broker.Handler) error {
	sub := c.bus.Subscribe(c.group, c.topics, h)
	for {
		_, err := sub.Deliver(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if !broker.Sleep(ctx, c.RetryDelay) {
				return nil
			}
			continue
		}
		select {
		case <-sub.notify:
		case <-ctx.Done():
			return nil
		}
	}
}
