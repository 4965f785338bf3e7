package eventbus

import (
	"sync"
	"time"
)

// TypedEnvelope is the typed counterpart of Envelope delivered to typed
// subscribers.
type TypedEnvelope[T any] struct {
	Topic     Topic
	Timestamp time.Time
	Source    Source
	Payload   T
}

// TypedSubscription narrows a raw subscription to payloads of type T. A
// bridge goroutine asserts each envelope's payload and skips anything that
// does not match, so a consumer never sees a zero value for a foreign event.
type TypedSubscription[T any] struct {
	raw       *Subscription
	ch        chan TypedEnvelope[T]
	done      chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
}

// Subscribe opens a typed subscription on topic. A nil bus yields a
// subscription whose channel is already closed and whose Close is a no-op,
// matching Publish's nil-bus behaviour.
//
// The typed channel is unbuffered; buffering lives on the raw subscription
// underneath, where the drop policy applies.
func Subscribe[T any](bus *Bus, topic Topic, opts ...SubscriptionOption) *TypedSubscription[T] {
	if bus == nil {
		ch := make(chan TypedEnvelope[T])
		done := make(chan struct{})
		close(ch)
		close(done)
		return &TypedSubscription[T]{
			ch:   ch,
			done: done,
			quit: make(chan struct{}),
		}
	}

	raw := bus.Subscribe(topic, opts...)

	ts := &TypedSubscription[T]{
		raw:  raw,
		ch:   make(chan TypedEnvelope[T]),
		done: make(chan struct{}),
		quit: make(chan struct{}),
	}

	go ts.bridge()
	return ts
}

// C returns the typed event channel.
func (ts *TypedSubscription[T]) C() <-chan TypedEnvelope[T] {
	return ts.ch
}

// Close stops the bridge goroutine and closes the underlying subscription.
// It is safe to call Close multiple times.
func (ts *TypedSubscription[T]) Close() {
	ts.closeOnce.Do(func() {
		close(ts.quit)
		if ts.raw != nil {
			ts.raw.Close()
		}
		<-ts.done
	})
}

func (ts *TypedSubscription[T]) bridge() {
	defer close(ts.done)
	defer close(ts.ch)

	for env := range ts.raw.C() {
		payload, ok := env.Payload.(T)
		if !ok {
			continue
		}
		typed := TypedEnvelope[T]{
			Topic:     env.Topic,
			Timestamp: env.Timestamp,
			Source:    env.Source,
			Payload:   payload,
		}
		select {
		case ts.ch <- typed:
		case <-ts.quit:
			return
		}
	}
}
