package eventbus

import "context"

// TopicDef pairs a topic with the payload type carried on it, so publishers
// and subscribers agree at compile time instead of by convention.
type TopicDef[T any] struct{ topic Topic }

// NewTopicDef binds topic to payload type T.
func NewTopicDef[T any](topic Topic) TopicDef[T] { return TopicDef[T]{topic: topic} }

// Topic returns the topic string.
func (d TopicDef[T]) Topic() Topic { return d.topic }

// Publish sends payload to every subscriber of the descriptor's topic. A nil
// bus is a no-op so optional wiring needs no guards at call sites.
func Publish[T any](ctx context.Context, bus *Bus, td TopicDef[T], source Source, payload T) {
	if bus == nil {
		return
	}
	bus.publish(ctx, Envelope{
		Topic:   td.topic,
		Source:  source,
		Payload: payload,
	})
}

// SubscribeTo opens a typed subscription on the descriptor's topic.
func SubscribeTo[T any](bus *Bus, td TopicDef[T], opts ...SubscriptionOption) *TypedSubscription[T] {
	return Subscribe[T](bus, td.topic, opts...)
}
