package transport_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/curtisgray/wingman-sub001/internal/api"
	"github.com/curtisgray/wingman-sub001/internal/status"
	"github.com/curtisgray/wingman-sub001/internal/transport"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// pushServer upgrades every request and hands the connection to serve.
func pushServer(t *testing.T, serve func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitForState(t *testing.T, a *transport.Adapter, want transport.State) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if a.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, currently %s", want, a.State())
}

func TestConnectDeliversDecodedMessages(t *testing.T) {
	server := pushServer(t, func(conn *websocket.Conn) {
		frames := []string{
			`{"isa":"DownloadItem","modelRepo":"acme/a","filePath":"a.bin","status":"queued"}`,
			`{"event":"wingmanItems","data":[{"alias":"llama","modelRepo":"acme/a","filePath":"a.bin","status":"inferring"}]}`,
		}
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	adapter := transport.New(wsURL(server), transport.WithLogger(quietLogger()))
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer adapter.Close()

	waitForState(t, adapter, transport.StateOpen)

	first := receiveMessage(t, adapter)
	item, ok := first.(api.DownloadItemMessage)
	if !ok {
		t.Fatalf("expected DownloadItemMessage first, got %T", first)
	}
	if item.Item.Status != status.DownloadQueued {
		t.Fatalf("unexpected status %s", item.Item.Status)
	}

	second := receiveMessage(t, adapter)
	if _, ok := second.(api.WingmanItemMessage); !ok {
		t.Fatalf("expected WingmanItemMessage second, got %T", second)
	}
}

func TestMalformedFramesAreDroppedNotFatal(t *testing.T) {
	server := pushServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"isa":"Mystery"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"isa":"DownloadItem","modelRepo":"acme/a","filePath":"a.bin","status":"queued"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	adapter := transport.New(wsURL(server), transport.WithLogger(quietLogger()))
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer adapter.Close()

	// The bad frame is skipped; the good one still arrives.
	msg := receiveMessage(t, adapter)
	if _, ok := msg.(api.DownloadItemMessage); !ok {
		t.Fatalf("expected DownloadItemMessage, got %T", msg)
	}
}

func TestSendRequiresOpenChannel(t *testing.T) {
	adapter := transport.New("ws://127.0.0.1:1/socket", transport.WithLogger(quietLogger()))

	if err := adapter.Send(map[string]string{"hello": "world"}); err != transport.ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestSendReachesServer(t *testing.T) {
	received := make(chan string, 1)
	server := pushServer(t, func(conn *websocket.Conn) {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(payload)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	adapter := transport.New(wsURL(server), transport.WithLogger(quietLogger()))
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer adapter.Close()

	waitForState(t, adapter, transport.StateOpen)

	if err := adapter.Send(map[string]string{"action": "refresh"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case payload := <-received:
		if !strings.Contains(payload, "refresh") {
			t.Fatalf("unexpected payload %s", payload)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server never received the message")
	}
}

func TestReconnectAfterServerDrop(t *testing.T) {
	var connects atomic.Int32
	server := pushServer(t, func(conn *websocket.Conn) {
		n := connects.Add(1)
		if n == 1 {
			// First session: drop immediately to force a redial.
			return
		}
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"isa":"DownloadItem","modelRepo":"acme/a","filePath":"a.bin","status":"queued"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	adapter := transport.New(wsURL(server),
		transport.WithLogger(quietLogger()),
		transport.WithReconnectInterval(10*time.Millisecond, 50*time.Millisecond),
	)
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer adapter.Close()

	// The message only exists on the second session, so receiving it proves
	// the adapter redialled on its own.
	msg := receiveMessage(t, adapter)
	if _, ok := msg.(api.DownloadItemMessage); !ok {
		t.Fatalf("expected DownloadItemMessage, got %T", msg)
	}
	if connects.Load() < 2 {
		t.Fatalf("expected at least 2 connections, got %d", connects.Load())
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	server := pushServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	adapter := transport.New(wsURL(server), transport.WithLogger(quietLogger()))
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	defer adapter.Close()

	waitForState(t, adapter, transport.StateOpen)
}

func TestCloseShutsDownCleanly(t *testing.T) {
	server := pushServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	adapter := transport.New(wsURL(server), transport.WithLogger(quietLogger()))
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitForState(t, adapter, transport.StateOpen)

	if err := adapter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := adapter.State(); got != transport.StateClosed {
		t.Fatalf("expected closed after Close, got %s", got)
	}

	// The events channel is closed, not left dangling.
	for {
		_, ok := <-adapter.Events()
		if !ok {
			break
		}
	}

	if err := adapter.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestContextCancellationStopsRedialling(t *testing.T) {
	adapter := transport.New("ws://127.0.0.1:1/socket",
		transport.WithLogger(quietLogger()),
		transport.WithReconnectInterval(10*time.Millisecond, 20*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	if err := adapter.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	cancel()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if adapter.State() == transport.StateClosed {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("adapter kept running after context cancellation")
}

func receiveMessage(t *testing.T, a *transport.Adapter) api.Message {
	t.Helper()

	select {
	case msg, ok := <-a.Events():
		if !ok {
			t.Fatal("events channel closed unexpectedly")
		}
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}
