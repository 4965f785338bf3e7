package eventbus_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/curtisgray/wingman-sub001/internal/api"
	"github.com/curtisgray/wingman-sub001/internal/eventbus"
	"github.com/curtisgray/wingman-sub001/internal/status"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func downloadEvent(file string, st status.Download, version uint64) eventbus.DownloadChangeEvent {
	return eventbus.DownloadChangeEvent{
		Item: api.DownloadItem{
			ModelRepo: "acme/a",
			FilePath:  file,
			Status:    st,
		},
		Version: version,
	}
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := eventbus.New(eventbus.WithLogger(quietLogger()))
	defer bus.Shutdown()

	sub := eventbus.SubscribeTo(bus, eventbus.Downloads.Items)
	defer sub.Close()

	eventbus.Publish(context.Background(), bus, eventbus.Downloads.Items, eventbus.SourceReconciler,
		downloadEvent("a.bin", status.DownloadQueued, 1))

	select {
	case env := <-sub.C():
		if env.Topic != eventbus.TopicDownloadItems {
			t.Fatalf("unexpected topic %s", env.Topic)
		}
		if env.Source != eventbus.SourceReconciler {
			t.Fatalf("unexpected source %s", env.Source)
		}
		if env.Timestamp.IsZero() {
			t.Fatal("expected a timestamp to be stamped")
		}
		if env.Payload.Item.FilePath != "a.bin" {
			t.Fatalf("unexpected payload %+v", env.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishOnNilBusIsNoOp(t *testing.T) {
	var bus *eventbus.Bus

	eventbus.Publish(context.Background(), bus, eventbus.Downloads.Items, eventbus.SourceReconciler,
		downloadEvent("a.bin", status.DownloadQueued, 1))

	sub := eventbus.SubscribeTo(bus, eventbus.Downloads.Items)
	if _, ok := <-sub.C(); ok {
		t.Fatal("expected a closed channel from a nil bus")
	}
	sub.Close()
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := eventbus.New(eventbus.WithLogger(quietLogger()))
	defer bus.Shutdown()

	downloads := eventbus.SubscribeTo(bus, eventbus.Downloads.Items)
	defer downloads.Close()

	eventbus.Publish(context.Background(), bus, eventbus.Wingman.Items, eventbus.SourceReconciler,
		eventbus.WingmanChangeEvent{Item: api.WingmanItem{Alias: "llama"}, Version: 1})

	select {
	case env := <-downloads.C():
		t.Fatalf("download subscriber received wingman event %+v", env)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOldestWhenBufferFull(t *testing.T) {
	bus := eventbus.New(
		eventbus.WithLogger(quietLogger()),
		eventbus.WithTopicBuffer(eventbus.TopicDownloadItems, 1),
	)
	defer bus.Shutdown()

	// Raw subscription: nothing reads until both publishes are done, so the
	// one-slot buffer has to evict.
	sub := bus.Subscribe(eventbus.TopicDownloadItems)
	defer sub.Close()

	eventbus.Publish(context.Background(), bus, eventbus.Downloads.Items, eventbus.SourceReconciler,
		downloadEvent("a.bin", status.DownloadDownloading, 1))
	eventbus.Publish(context.Background(), bus, eventbus.Downloads.Items, eventbus.SourceReconciler,
		downloadEvent("a.bin", status.DownloadComplete, 2))

	env := <-sub.C()
	payload, ok := env.Payload.(eventbus.DownloadChangeEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", env.Payload)
	}
	if payload.Version != 2 {
		t.Fatalf("expected the freshest event to survive, got version %d", payload.Version)
	}

	metrics := bus.Metrics()
	if metrics.PublishTotal != 2 {
		t.Fatalf("expected 2 publishes, got %d", metrics.PublishTotal)
	}
	if metrics.DroppedTotal != 1 {
		t.Fatalf("expected 1 drop, got %d", metrics.DroppedTotal)
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	bus := eventbus.New(eventbus.WithLogger(quietLogger()))
	defer bus.Shutdown()

	sub := eventbus.SubscribeTo(bus, eventbus.Downloads.Items)
	sub.Close()
	sub.Close()

	if _, ok := <-sub.C(); ok {
		t.Fatal("expected closed channel after Close")
	}
}

func TestWithContextClosesSubscription(t *testing.T) {
	bus := eventbus.New(eventbus.WithLogger(quietLogger()))
	defer bus.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sub := eventbus.SubscribeTo(bus, eventbus.Downloads.Items, eventbus.WithContext(ctx))

	cancel()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("expected channel closure, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after context cancellation")
	}
}

func TestShutdownClosesAllSubscriptions(t *testing.T) {
	bus := eventbus.New(eventbus.WithLogger(quietLogger()))

	downloads := eventbus.SubscribeTo(bus, eventbus.Downloads.Items)
	wingman := eventbus.SubscribeTo(bus, eventbus.Wingman.Items)

	bus.Shutdown()

	for _, ch := range []func() bool{
		func() bool { _, ok := <-downloads.C(); return ok },
		func() bool { _, ok := <-wingman.C(); return ok },
	} {
		if ch() {
			t.Fatal("expected all channels closed after Shutdown")
		}
	}
}

func TestSubscriptionGroupCloseAll(t *testing.T) {
	bus := eventbus.New(eventbus.WithLogger(quietLogger()))
	defer bus.Shutdown()

	var group eventbus.SubscriptionGroup
	downloads := eventbus.SubscribeTo(bus, eventbus.Downloads.Items)
	transportState := eventbus.SubscribeTo(bus, eventbus.Transport.State)
	group.Add(downloads, transportState, nil)

	group.CloseAll()

	if _, ok := <-downloads.C(); ok {
		t.Fatal("expected downloads subscription closed")
	}
	if _, ok := <-transportState.C(); ok {
		t.Fatal("expected transport subscription closed")
	}

	// A second CloseAll on the emptied group is harmless.
	group.CloseAll()
}

func TestConsumeForwardsPayloads(t *testing.T) {
	bus := eventbus.New(eventbus.WithLogger(quietLogger()))
	defer bus.Shutdown()

	sub := eventbus.SubscribeTo(bus, eventbus.Downloads.Items)

	var wg sync.WaitGroup
	wg.Add(1)
	received := make(chan eventbus.DownloadChangeEvent, 1)
	go eventbus.Consume(context.Background(), sub, &wg, func(ev eventbus.DownloadChangeEvent) {
		received <- ev
	})

	eventbus.Publish(context.Background(), bus, eventbus.Downloads.Items, eventbus.SourceReconciler,
		downloadEvent("a.bin", status.DownloadComplete, 7))

	select {
	case ev := <-received:
		if ev.Version != 7 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}

	sub.Close()
	wg.Wait()
}

func TestTypedSubscriptionSkipsMismatchedPayloads(t *testing.T) {
	bus := eventbus.New(eventbus.WithLogger(quietLogger()))
	defer bus.Shutdown()

	// Typed view over a topic that also carries another payload type via the
	// raw API. The mismatched payload is skipped, not delivered as zero value.
	sub := eventbus.Subscribe[eventbus.DownloadChangeEvent](bus, eventbus.TopicDownloadItems)
	defer sub.Close()

	eventbus.Publish(context.Background(), bus,
		eventbus.NewTopicDef[string](eventbus.TopicDownloadItems), eventbus.SourceUnknown, "noise")
	eventbus.Publish(context.Background(), bus, eventbus.Downloads.Items, eventbus.SourceReconciler,
		downloadEvent("a.bin", status.DownloadQueued, 3))

	select {
	case env := <-sub.C():
		if env.Payload.Version != 3 {
			t.Fatalf("expected the typed event, got %+v", env.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for typed event")
	}
}
