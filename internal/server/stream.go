package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/jpalmerr/halolight/internal/auth"
	"github.com/jpalmerr/halolight/internal/model"
	"github.com/jpalmerr/halolight/internal/notify"
	"github.com/jpalmerr/halolight/internal/router"
	"github.com/jpalmerr/halolight/internal/shell"
	"github.com/jpalmerr/halolight/internal/store"
	"github.com/jpalmerr/halolight/internal/tabs"
	"github.com/jpalmerr/halolight/internal/theme"
	"github.com/jpalmerr/halolight/internal/uisettings"
	"github.com/jpalmerr/halolight/internal/widgets"
)

// EventType names what an [Event] carries.
type EventType string

const (
	EventSession      EventType = "session"
	EventTheme        EventType = "theme"
	EventTabs         EventType = "tabs"
	EventSettings     EventType = "ui-settings"
	EventLayout       EventType = "layout"
	EventInbox        EventType = "inbox"
	EventShell        EventType = "shell"
	EventNotification EventType = "notification"
	EventPushStatus   EventType = "push-status"
	EventError        EventType = "error"
)

// Event is one message on the SSE and WebSocket streams. Store events carry
// the full new state.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

const (
	// streamBuffer is the per-client event queue. Events beyond it are
	// dropped for that client.
	streamBuffer = 64

	// heartbeatInterval keeps idle SSE connections open through proxies.
	heartbeatInterval = 25 * time.Second
)

// snapshot returns the current state of everything the streams carry.
func (s *Server) snapshot() []Event {
	return []Event{
		{Type: EventSession, Data: publicSession(s.deps.Auth.Get())},
		{Type: EventTheme, Data: s.deps.Theme.Get()},
		{Type: EventSettings, Data: s.deps.Settings.Get()},
		{Type: EventTabs, Data: s.deps.Tabs.Get()},
		{Type: EventLayout, Data: s.deps.Layout.Get()},
		{Type: EventShell, Data: s.deps.Shell.Get()},
		{Type: EventInbox, Data: s.deps.Inbox.Get()},
		{Type: EventPushStatus, Data: s.deps.Push.Status()},
	}
}

// subscribe merges every store and the push source into one channel. Store
// changes arrive through Watch views, one forwarder per store, so events of
// one store keep their order. Sends never block; a full channel drops the
// event. The channel is never closed: stop reading once cancel has returned.
func (s *Server) subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	send := func(ev Event) {
		select {
		case ch <- ev:
		default:
			s.logger.Debug("stream event dropped", "type", ev.Type)
		}
	}

	var wg sync.WaitGroup
	cancels := []func(){
		forward(&wg, s.deps.Auth, buffer, send, func(st auth.State) Event { return Event{EventSession, publicSession(st)} }),
		forward(&wg, s.deps.Theme, buffer, send, func(st theme.State) Event { return Event{EventTheme, st} }),
		forward(&wg, s.deps.Settings, buffer, send, func(st uisettings.State) Event { return Event{EventSettings, st} }),
		forward(&wg, s.deps.Tabs, buffer, send, func(st tabs.State) Event { return Event{EventTabs, st} }),
		forward(&wg, s.deps.Layout, buffer, send, func(st widgets.State) Event { return Event{EventLayout, st} }),
		forward(&wg, s.deps.Shell, buffer, send, func(st shell.State) Event { return Event{EventShell, st} }),
		forward(&wg, s.deps.Inbox, buffer, send, func(st notify.InboxState) Event { return Event{EventInbox, st} }),
		s.deps.Push.OnMessage(func(n model.Notification) { send(Event{EventNotification, n}) }),
		s.deps.Push.OnStatus(func(st notify.Status) { send(Event{EventPushStatus, st}) }),
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			for _, cancel := range cancels {
				cancel()
			}
			wg.Wait()
		})
	}
}

// forward relays changes of o into send until the returned cancel is called.
func forward[S any](wg *sync.WaitGroup, o store.Observable[S], buffer int, send func(Event), wrap func(S) Event) func() {
	changes, cancel := o.Watch(buffer)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for st := range changes {
			send(wrap(st))
		}
	}()
	return cancel
}

// handleSSE streams console events via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked write would prevent the
// handler from noticing context cancellation.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	write := func(format string, args ...any) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, format, args...); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	writeEvent := func(ev Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("failed to encode stream event", "type", ev.Type, "error", err)
			return nil
		}
		return write("data: %s\n\n", data)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// subscribe before the snapshot so no change slips between them
	events, cancel := s.subscribe(streamBuffer)
	defer cancel()

	s.metrics.StreamOpened("sse")
	defer s.metrics.StreamClosed("sse")

	for _, ev := range s.snapshot() {
		if err := writeEvent(ev); err != nil {
			return
		}
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case ev := <-events:
			if err := writeEvent(ev); err != nil {
				return
			}

		case <-heartbeat.C:
			if err := write(": ping\n\n"); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}

// wsCommand is a client message on the WebSocket. It carries the in-app
// navigation events: navigate with a path or a route and params, back and
// forward.
type wsCommand struct {
	Type   string            `json:"type"`
	Path   string            `json:"path,omitempty"`
	Route  string            `json:"route,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

// handleWebSocket streams the same events as handleSSE and accepts
// navigation commands.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws := websocket.Server{
		Handshake: s.checkOrigin,
		Handler: func(conn *websocket.Conn) {
			s.serveWebSocket(r.Context(), conn)
		},
	}
	ws.ServeHTTP(w, r)
}

// checkOrigin accepts any origin when CORS is open, and only the configured
// origin otherwise.
func (s *Server) checkOrigin(config *websocket.Config, req *http.Request) error {
	allowed := s.deps.AllowedOrigin
	if allowed == "" || allowed == "*" {
		return nil
	}
	origin, err := websocket.Origin(config, req)
	if err != nil {
		return err
	}
	if origin == nil || origin.String() != allowed {
		return errors.New("origin not allowed")
	}
	config.Origin = origin
	return nil
}

func (s *Server) serveWebSocket(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, unsubscribe := s.subscribe(streamBuffer)
	defer unsubscribe()

	s.metrics.StreamOpened("ws")
	defer s.metrics.StreamClosed("ws")

	replies := make(chan Event, 4)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		s.readCommands(ctx, conn, replies)
	}()
	defer func() {
		// unblocks the reader
		_ = conn.Close()
		wg.Wait()
	}()

	send := func(ev Event) error {
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return err
		}
		return websocket.JSON.Send(conn, ev)
	}

	for _, ev := range s.snapshot() {
		if err := send(ev); err != nil {
			return
		}
	}

	for {
		var ev Event
		select {
		case ev = <-events:
		case ev = <-replies:
		case <-ctx.Done():
			return
		}
		if err := send(ev); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}

// readCommands runs client commands until the connection fails. Failed
// commands are answered with an error event on replies.
func (s *Server) readCommands(ctx context.Context, conn *websocket.Conn, replies chan<- Event) {
	for {
		var cmd wsCommand
		if err := websocket.JSON.Receive(conn, &cmd); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.reply(replies, fmt.Errorf("%w: %v", errInvalidBody, err))
				continue
			}
			return
		}

		if err := s.runCommand(ctx, cmd); err != nil {
			s.reply(replies, err)
		}
	}
}

func (s *Server) runCommand(ctx context.Context, cmd wsCommand) error {
	switch cmd.Type {
	case "navigate":
		if cmd.Path != "" {
			s.deps.Shell.Navigate(ctx, cmd.Path)
			return nil
		}
		_, err := s.deps.Shell.NavigateTo(ctx, router.Route(cmd.Route), cmd.Params)
		return err
	case "back":
		s.deps.Shell.Back(ctx)
		return nil
	case "forward":
		s.deps.Shell.Forward(ctx)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errInvalidBody, cmd.Type)
	}
}

func (s *Server) reply(replies chan<- Event, err error) {
	ev := Event{Type: EventError, Data: envelope{Code: statusFor(err), Message: err.Error()}}
	select {
	case replies <- ev:
	default:
	}
}
