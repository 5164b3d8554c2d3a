package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"github.com/jpalmerr/halolight/internal/notify"
	"github.com/jpalmerr/halolight/internal/theme"
)

// parseSSEEvents extracts the events from an SSE body.
func parseSSEEvents(body string) []Event {
	var events []Event
	for _, line := range strings.Split(body, "\n") {
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(data), &ev); err == nil {
			events = append(events, ev)
		}
	}
	return events
}

func hasEvent(events []Event, typ EventType) bool {
	for _, ev := range events {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

func TestHandleSSE_Snapshot(t *testing.T) {
	srv := newTestServer(t, newTestDeps(t))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	events := parseSSEEvents(rec.Body.String())
	for _, typ := range []EventType{EventSession, EventTheme, EventSettings, EventTabs, EventLayout, EventShell, EventInbox, EventPushStatus} {
		if !hasEvent(events, typ) {
			t.Errorf("snapshot missing %q event", typ)
		}
	}
}

func TestHandleSSE_Headers(t *testing.T) {
	srv := newTestServer(t, newTestDeps(t))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}
}

func TestHandleSSE_StreamsUpdates(t *testing.T) {
	deps := newTestDeps(t)
	srv := newTestServer(t, deps)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// let the handler subscribe
	time.Sleep(50 * time.Millisecond)
	deps.Theme.ToggleTheme(context.Background())

	<-done

	count := 0
	for _, ev := range parseSSEEvents(rec.Body.String()) {
		if ev.Type == EventTheme {
			count++
		}
	}
	if count < 2 {
		t.Errorf("got %d theme events, want snapshot plus update", count)
	}
}

func TestSubscribe_ForwardsStoreChangesInOrder(t *testing.T) {
	deps := newTestDeps(t)
	srv := newTestServer(t, deps)
	ctx := context.Background()

	events, cancel := srv.subscribe(8)
	deps.Theme.ToggleTheme(ctx)
	deps.Theme.ToggleTheme(ctx)

	for _, wantDark := range []bool{true, false} {
		select {
		case ev := <-events:
			st, ok := ev.Data.(theme.State)
			if ev.Type != EventTheme || !ok || st.IsDark != wantDark {
				t.Fatalf("event = %+v, want theme isDark=%v", ev, wantDark)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for theme event")
		}
	}

	cancel()
	deps.Theme.ToggleTheme(ctx)

	select {
	case ev := <-events:
		t.Errorf("received %+v after cancel", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleSSE_ClientDisconnect(t *testing.T) {
	srv := newTestServer(t, newTestDeps(t))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// simulate client disconnect
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("handler did not exit after client disconnect")
	}
}

func TestHandleSSE_ConcurrentClientsShutdown(t *testing.T) {
	srv := newTestServer(t, newTestDeps(t))

	serverCtx, serverCancel := context.WithCancel(context.Background())

	const numClients = 10
	var wg sync.WaitGroup
	for range numClients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(serverCtx)
			srv.handleSSE(httptest.NewRecorder(), req)
		}()
	}

	// give handlers time to subscribe
	time.Sleep(100 * time.Millisecond)
	serverCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("not all handlers exited after shutdown")
	}
}

// nonFlushWriter is a ResponseWriter without http.Flusher.
type nonFlushWriter struct {
	header http.Header
	code   int
}

func (n *nonFlushWriter) Header() http.Header {
	return n.header
}

func (n *nonFlushWriter) Write(b []byte) (int, error) {
	return len(b), nil
}

func (n *nonFlushWriter) WriteHeader(statusCode int) {
	n.code = statusCode
}

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv := newTestServer(t, newTestDeps(t))

	w := &nonFlushWriter{header: make(http.Header)}
	srv.handleSSE(w, httptest.NewRequest(http.MethodGet, "/api/stream", nil))

	if w.code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.code)
	}
}

// TestSSE_LiveNotificationIntegration runs the full router: login connects
// the push source, and its notifications reach the stream and the inbox.
func TestSSE_LiveNotificationIntegration(t *testing.T) {
	deps := newTestDeps(t,
		notify.WithInterval(10*time.Millisecond),
		notify.WithProbability(1),
		notify.WithRandom(func() float64 { return 0 }),
	)
	srv := newTestServer(t, deps)
	base := serve(t, srv)
	token := login(t, base)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/stream?access_token="+token, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		events := parseSSEEvents(scanner.Text())
		if len(events) == 1 && events[0].Type == EventNotification {
			return
		}
	}
	t.Fatalf("no notification event before the stream ended: %v", scanner.Err())
}

func TestSSE_RequiresToken(t *testing.T) {
	base := serve(t, newTestServer(t, newTestDeps(t)))

	resp, err := http.Get(base + "/api/stream")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

// --- WebSocket ---

func dialWS(t *testing.T, base, token, origin string) (*websocket.Conn, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(base, "http") + "/api/ws?access_token=" + token
	return websocket.Dial(url, "", origin)
}

// receiveUntil reads events until match returns true or the deadline passes.
func receiveUntil(t *testing.T, conn *websocket.Conn, match func(Event) bool) Event {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	for {
		var ev Event
		if err := websocket.JSON.Receive(conn, &ev); err != nil {
			t.Fatalf("receive: %v", err)
		}
		if match(ev) {
			return ev
		}
	}
}

func TestWebSocket_SnapshotAndNavigate(t *testing.T) {
	deps := newTestDeps(t)
	base := serve(t, newTestServer(t, deps))
	token := login(t, base)

	conn, err := dialWS(t, base, token, "http://localhost/")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	receiveUntil(t, conn, func(ev Event) bool { return ev.Type == EventPushStatus })

	if err := websocket.JSON.Send(conn, wsCommand{Type: "navigate", Path: "/analytics"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	receiveUntil(t, conn, func(ev Event) bool {
		if ev.Type != EventShell {
			return false
		}
		raw, _ := json.Marshal(ev.Data)
		return strings.Contains(string(raw), `"path":"/analytics"`)
	})

	if got := deps.Shell.Get().Location.Path; got != "/analytics" {
		t.Errorf("shell path = %q, want /analytics", got)
	}
}

func TestWebSocket_UnknownCommand(t *testing.T) {
	base := serve(t, newTestServer(t, newTestDeps(t)))
	token := login(t, base)

	conn, err := dialWS(t, base, token, "http://localhost/")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if err := websocket.JSON.Send(conn, wsCommand{Type: "teleport"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	ev := receiveUntil(t, conn, func(ev Event) bool { return ev.Type == EventError })
	raw, _ := json.Marshal(ev.Data)
	if !strings.Contains(string(raw), "unknown command") {
		t.Errorf("error event = %s", raw)
	}
}

func TestWebSocket_OriginRejected(t *testing.T) {
	deps := newTestDeps(t)
	deps.AllowedOrigin = "http://console.example"
	base := serve(t, newTestServer(t, deps))
	token := login(t, base)

	if _, err := dialWS(t, base, token, "http://elsewhere.example"); err == nil {
		t.Fatal("dial from a foreign origin should fail")
	}

	conn, err := dialWS(t, base, token, "http://console.example")
	if err != nil {
		t.Fatalf("dial from the allowed origin: %v", err)
	}
	_ = conn.Close()
}
