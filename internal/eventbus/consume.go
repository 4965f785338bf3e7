package eventbus

import (
	"context"
	"sync"
)

// Consume forwards payloads from sub to handler until ctx is cancelled or the
// subscription closes. A non-nil wg is marked done on return, letting a caller
// wait for all of its consumer goroutines at teardown.
func Consume[T any](ctx context.Context, sub *TypedSubscription[T], wg *sync.WaitGroup, handler func(T)) {
	if wg != nil {
		defer wg.Done()
	}
	if sub == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C():
			if !ok {
				return
			}
			handler(env.Payload)
		}
	}
}
