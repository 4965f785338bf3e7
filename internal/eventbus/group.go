package eventbus

import "sync"

// SubscriptionCloser is anything with a Close method. Both raw and typed
// subscriptions satisfy it.
type SubscriptionCloser interface {
	Close()
}

// SubscriptionGroup collects the subscriptions one consumer opened so they
// can be torn down together when the consumer goes away.
type SubscriptionGroup struct {
	mu   sync.Mutex
	subs []SubscriptionCloser
}

// Add records subscriptions for later teardown. Nil entries are skipped.
func (g *SubscriptionGroup) Add(subs ...SubscriptionCloser) {
	if g == nil || len(subs) == 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, sub := range subs {
		if sub != nil {
			g.subs = append(g.subs, sub)
		}
	}
}

// CloseAll closes every tracked subscription and empties the group. Calling
// it again on the emptied group is harmless.
func (g *SubscriptionGroup) CloseAll() {
	if g == nil {
		return
	}

	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}
