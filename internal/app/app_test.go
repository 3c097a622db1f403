package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"

	"unpod-notifier/internal/api"
	"unpod-notifier/internal/config"
	"unpod-notifier/internal/dispatch"
	"unpod-notifier/internal/logging"
	"unpod-notifier/internal/notify"
	"unpod-notifier/internal/realtime"
	"unpod-notifier/internal/runstatus"
)

func quietLogger() *logging.Logger {
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

type feedEntry struct {
	title   string
	body    string
	token   string
	created string
	read    bool
}

// notificationBackend fakes the Unpod API plus its realtime endpoint. The
// websocket side is a real server speaking the production wire protocol, so
// sessions under test run the same dial/handshake/subscribe path they run
// against the live service.
type notificationBackend struct {
	server *httptest.Server

	mu           sync.Mutex
	items        []feedEntry // newest first, as the API serves it
	unread       int
	rtEnabled    bool
	rtURL        string
	rtChannel    string
	feedAuthFail bool

	feedCalls      atomic.Int32
	updateCalls    atomic.Int32
	connTokenCalls atomic.Int32
	chanTokenCalls atomic.Int32

	ready chan *backendSocket
}

type backendSocket struct {
	conn             *websocket.Conn
	connectToken     string
	clientName       string
	subscribeChannel string
	subscribeToken   string
}

type wsCommand struct {
	ID      uint32 `json:"id"`
	Connect *struct {
		Token string `json:"token"`
		Name  string `json:"name"`
	} `json:"connect"`
	Subscribe *struct {
		Channel string `json:"channel"`
		Token   string `json:"token"`
	} `json:"subscribe"`
}

func newNotificationBackend(t *testing.T) *notificationBackend {
	t.Helper()
	b := &notificationBackend{
		rtEnabled: true,
		rtChannel: "user:42",
		ready:     make(chan *backendSocket, 4),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.serveHTTP))
	b.rtURL = b.server.URL + "/connection/websocket"
	t.Cleanup(b.server.Close)
	return b
}

func (b *notificationBackend) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") && r.Header.Get("Authorization") != "Bearer test-token" {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	switch r.URL.Path {
	case "/api/notifications/":
		b.handleFeed(w)
	case "/api/notifications/update/":
		b.updateCalls.Add(1)
		writeData(w, map[string]any{})
	case "/api/notifications/realtime/config/":
		b.mu.Lock()
		cfg := map[string]any{"enabled": b.rtEnabled, "url": b.rtURL, "user_channel": b.rtChannel}
		b.mu.Unlock()
		writeData(w, cfg)
	case "/api/notifications/realtime/token/":
		b.connTokenCalls.Add(1)
		writeData(w, map[string]any{"token": "conn-tok", "expires_in": 300})
	case "/api/notifications/realtime/subscription-token/":
		b.chanTokenCalls.Add(1)
		writeData(w, map[string]any{"token": "chan-tok", "channel": b.rtChannel, "expires_in": 300})
	case "/connection/websocket":
		b.handleSocket(w, r)
	default:
		http.NotFound(w, r)
	}
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (b *notificationBackend) handleFeed(w http.ResponseWriter) {
	b.feedCalls.Add(1)
	b.mu.Lock()
	if b.feedAuthFail {
		b.mu.Unlock()
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	items := make([]map[string]any, 0, len(b.items))
	for _, item := range b.items {
		items = append(items, map[string]any{
			"title":   item.title,
			"body":    item.body,
			"event":   "notification",
			"token":   item.token,
			"read":    item.read,
			"created": item.created,
		})
	}
	unread := b.unread
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":         items,
		"count":        len(items),
		"unread_count": unread,
	})
}

// handleSocket stays on the handler goroutine until the connection dies;
// the hijacked conn belongs to us once Accept returns.
func (b *notificationBackend) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 20)

	sock := &backendSocket{conn: conn}
	ctx := context.Background()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		switch {
		case cmd.Connect != nil:
			sock.connectToken = cmd.Connect.Token
			sock.clientName = cmd.Connect.Name
			b.reply(conn, fmt.Sprintf(`{"id":%d,"connect":{"client":"srv-1","ping":25}}`, cmd.ID))
		case cmd.Subscribe != nil:
			sock.subscribeChannel = cmd.Subscribe.Channel
			sock.subscribeToken = cmd.Subscribe.Token
			b.reply(conn, fmt.Sprintf(`{"id":%d,"subscribe":{}}`, cmd.ID))
			select {
			case b.ready <- sock:
			default:
			}
		}
	}
}

func (b *notificationBackend) reply(conn *websocket.Conn, frame string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, []byte(frame))
}

func (b *notificationBackend) awaitSocket(t *testing.T) *backendSocket {
	t.Helper()
	select {
	case sock := <-b.ready:
		return sock
	case <-time.After(5 * time.Second):
		t.Fatal("no websocket connection arrived")
		return nil
	}
}

func (b *notificationBackend) push(t *testing.T, sock *backendSocket, payload string) {
	t.Helper()
	b.mu.Lock()
	channel := b.rtChannel
	b.mu.Unlock()
	frame := fmt.Sprintf(`{"push":{"channel":%q,"pub":{"data":%s}}}`, channel, payload)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sock.conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
		t.Fatalf("push write: %v", err)
	}
}

func (b *notificationBackend) drop(sock *backendSocket) {
	_ = sock.conn.Close(websocket.StatusInternalError, "backend restart")
}

func (b *notificationBackend) setFeed(unread int, items ...feedEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = items
	b.unread = unread
}

func (b *notificationBackend) setUnread(count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unread = count
}

func (b *notificationBackend) setRealtime(enabled bool, url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rtEnabled = enabled
	if url != "" {
		b.rtURL = url
	}
}

type appRecorder struct {
	mu       sync.Mutex
	statuses []string
	unreads  []int
	notes    []dispatch.Notification
}

func (r *appRecorder) callbacks() Callbacks {
	return Callbacks{
		OnStatusChange: func(status string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.statuses = append(r.statuses, status)
		},
		OnUnread: func(count int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.unreads = append(r.unreads, count)
		},
		OnNotification: func(n dispatch.Notification) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.notes = append(r.notes, n)
		},
	}
}

func (r *appRecorder) statusSeen(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, status := range r.statuses {
		if status == name {
			return true
		}
	}
	return false
}

func (r *appRecorder) statusList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

func (r *appRecorder) unreadSeen(count int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, seen := range r.unreads {
		if seen == count {
			return true
		}
	}
	return false
}

func (r *appRecorder) lastUnread() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.unreads) == 0 {
		return -1
	}
	return r.unreads[len(r.unreads)-1]
}

func (r *appRecorder) noteTitled(title string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		if n.Title == title {
			return true
		}
	}
	return false
}

type recordingBridge struct {
	mu     sync.Mutex
	toasts []string
	badges []int
}

func (b *recordingBridge) NativeHost() bool { return false }

func (b *recordingBridge) Notify(title, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toasts = append(b.toasts, title)
	return nil
}

func (b *recordingBridge) SetBadge(count int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.badges = append(b.badges, count)
	return nil
}

func (b *recordingBridge) RequestPermission(context.Context) (notify.PermissionState, error) {
	return notify.PermissionGranted, nil
}

func (b *recordingBridge) hasToast(title string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, toast := range b.toasts {
		if toast == title {
			return true
		}
	}
	return false
}

func (b *recordingBridge) toastList() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.toasts...)
}

func newTestApp(t *testing.T, backend *notificationBackend, opts config.Options, bridge notify.Bridge, rec *appRecorder) *NotifierApp {
	t.Helper()
	endpoints, err := config.BuildEndpoints(backend.server.URL)
	if err != nil {
		t.Fatalf("BuildEndpoints() error = %v", err)
	}
	logger := quietLogger()
	httpClient := backend.server.Client()
	return New(opts, api.New(httpClient, "test-token", endpoints, logger), httpClient, bridge, logger, rec.callbacks())
}

func runApp(ctx context.Context, a *NotifierApp) chan error {
	done := make(chan error, 1)
	go func() {
		done <- a.RunContext(ctx)
	}()
	return done
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("RunContext did not return")
		return nil
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestRunContext_DeliversRealtimeNotifications(t *testing.T) {
	backend := newNotificationBackend(t)
	backend.setFeed(1, feedEntry{
		title: "Deploy finished", body: "staging is live", token: "ntf-1",
		created: "2026-02-10T10:00:00Z",
	})

	rec := &appRecorder{}
	bridge := &recordingBridge{}
	app := newTestApp(t, backend, config.Options{BaseURL: backend.server.URL, Token: "test-token"}, bridge, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runApp(ctx, app)

	sock := backend.awaitSocket(t)
	if sock.connectToken != "conn-tok" {
		t.Fatalf("connect token = %q, want conn-tok", sock.connectToken)
	}
	if sock.clientName != "unpod-notifier" {
		t.Fatalf("client name = %q, want unpod-notifier", sock.clientName)
	}
	if sock.subscribeChannel != "user:42" || sock.subscribeToken != "chan-tok" {
		t.Fatalf("subscribe = %q/%q, want user:42/chan-tok", sock.subscribeChannel, sock.subscribeToken)
	}
	waitUntil(t, 2*time.Second, func() bool { return rec.statusSeen(runstatus.Connected) })
	waitUntil(t, 2*time.Second, func() bool { return rec.unreadSeen(1) })

	backend.push(t, sock, `{"event":"notification","data":{"title":"Build green","body":"pipeline done","token":"ntf-9"}}`)

	waitUntil(t, 2*time.Second, func() bool { return rec.noteTitled("Build green") })
	waitUntil(t, 2*time.Second, func() bool { return rec.unreadSeen(2) })
	if !bridge.hasToast("Build green") {
		t.Fatalf("bridge toasts = %v, want Build green", bridge.toastList())
	}

	recent := app.Recent()
	if len(recent) == 0 || recent[0].Title != "Build green" {
		t.Fatalf("recent[0] = %+v, want Build green first", recent)
	}

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("RunContext() error = %v, want nil", err)
	}
	if !rec.statusSeen(runstatus.Stopped) {
		t.Fatalf("statuses = %v, want %q present", rec.statusList(), runstatus.Stopped)
	}
}

func TestRunContext_AuthFailureStopsStartup(t *testing.T) {
	backend := newNotificationBackend(t)
	backend.mu.Lock()
	backend.feedAuthFail = true
	backend.mu.Unlock()

	rec := &appRecorder{}
	app := newTestApp(t, backend, config.Options{}, &recordingBridge{}, rec)

	err := waitDone(t, runApp(context.Background(), app))
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("RunContext() error = %v, want ErrAuthenticationFailed", err)
	}
	if !rec.statusSeen(runstatus.DisconnectedAuth) {
		t.Fatalf("statuses = %v, want %q present", rec.statusList(), runstatus.DisconnectedAuth)
	}
	if got := backend.connTokenCalls.Load(); got != 0 {
		t.Fatalf("connection token calls = %d, want 0", got)
	}
}

func TestRunContext_RealtimeDisabledPollsFeed(t *testing.T) {
	backend := newNotificationBackend(t)
	backend.setRealtime(false, "")
	backend.setFeed(1, feedEntry{
		title: "Older news", body: "already seen", token: "ntf-1",
		created: "2026-02-10T10:00:00Z",
	})

	rec := &appRecorder{}
	bridge := &recordingBridge{}
	app := newTestApp(t, backend, config.Options{PollInterval: 1}, bridge, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runApp(ctx, app)

	waitUntil(t, 2*time.Second, func() bool { return rec.statusSeen(runstatus.Polling) })
	if !rec.statusSeen(runstatus.RealtimeOff) {
		t.Fatalf("statuses = %v, want %q present", rec.statusList(), runstatus.RealtimeOff)
	}

	backend.setFeed(2,
		feedEntry{title: "Release shipped", body: "v2 is out", token: "ntf-2", created: "2026-02-10T11:00:00Z"},
		feedEntry{title: "Older news", body: "already seen", token: "ntf-1", created: "2026-02-10T10:00:00Z"},
	)

	waitUntil(t, 4*time.Second, func() bool { return rec.noteTitled("Release shipped") })
	waitUntil(t, 2*time.Second, func() bool { return rec.unreadSeen(2) })
	if !bridge.hasToast("Release shipped") {
		t.Fatalf("bridge toasts = %v, want Release shipped", bridge.toastList())
	}
	if rec.noteTitled("Older news") {
		t.Fatal("poller re-delivered an item older than the startup feed")
	}
	if got := backend.connTokenCalls.Load(); got != 0 {
		t.Fatalf("connection token calls = %d, want 0 with realtime disabled", got)
	}

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("RunContext() error = %v, want nil", err)
	}
	if !rec.statusSeen(runstatus.Stopped) {
		t.Fatalf("statuses = %v, want %q present", rec.statusList(), runstatus.Stopped)
	}
}

func TestRunContext_ReconnectExhaustionDegradesToPolling(t *testing.T) {
	backend := newNotificationBackend(t)
	backend.setFeed(0)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	deadURL := "http://" + listener.Addr().String() + "/connection/websocket"
	_ = listener.Close()
	backend.setRealtime(true, deadURL)

	rec := &appRecorder{}
	app := newTestApp(t, backend, config.Options{PollInterval: 1}, &recordingBridge{}, rec)
	app.policy = realtime.ReconnectPolicy{MaxAttempts: 2, Delay: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runApp(ctx, app)

	waitUntil(t, 3*time.Second, func() bool { return rec.statusSeen(runstatus.Polling) })
	if !rec.statusSeen(runstatus.Connecting) {
		t.Fatalf("statuses = %v, want %q present", rec.statusList(), runstatus.Connecting)
	}
	if !rec.statusSeen(runstatus.DisconnectedError) {
		t.Fatalf("statuses = %v, want %q present", rec.statusList(), runstatus.DisconnectedError)
	}
	if rec.statusSeen(runstatus.Connected) {
		t.Fatalf("statuses = %v, connected should never appear", rec.statusList())
	}

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("RunContext() error = %v, want nil after degrading to polling", err)
	}
}

func TestRunContext_ReconnectReanchorsUnread(t *testing.T) {
	backend := newNotificationBackend(t)
	backend.setFeed(2, feedEntry{
		title: "Deploy finished", body: "staging is live", token: "ntf-1",
		created: "2026-02-10T10:00:00Z",
	})

	rec := &appRecorder{}
	app := newTestApp(t, backend, config.Options{}, &recordingBridge{}, rec)
	app.policy = realtime.ReconnectPolicy{MaxAttempts: 5, Delay: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runApp(ctx, app)

	first := backend.awaitSocket(t)
	waitUntil(t, 2*time.Second, func() bool { return rec.statusSeen(runstatus.Connected) })

	// Deliveries land while the socket is down; the reconnect has to pick
	// the new count up from the backend.
	backend.setUnread(9)
	backend.drop(first)

	second := backend.awaitSocket(t)
	if second == first {
		t.Fatal("expected a fresh websocket connection after the drop")
	}
	waitUntil(t, 3*time.Second, func() bool { return rec.unreadSeen(9) })

	if !rec.statusSeen(runstatus.Reconnecting) {
		t.Fatalf("statuses = %v, want %q present", rec.statusList(), runstatus.Reconnecting)
	}
	if got := backend.connTokenCalls.Load(); got != 2 {
		t.Fatalf("connection token calls = %d, want one per attempt", got)
	}
	if got := backend.chanTokenCalls.Load(); got != 2 {
		t.Fatalf("channel token calls = %d, want one per attempt", got)
	}

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("RunContext() error = %v, want nil", err)
	}
}

func TestMarkAllRead_ClearsBackendAndBadge(t *testing.T) {
	backend := newNotificationBackend(t)
	rec := &appRecorder{}
	app := newTestApp(t, backend, config.Options{}, &recordingBridge{}, rec)

	app.dispatcher.SetUnread(5)
	if err := app.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	if got := backend.updateCalls.Load(); got != 1 {
		t.Fatalf("feed update calls = %d, want 1", got)
	}
	if got := app.Unread(); got != 0 {
		t.Fatalf("Unread() = %d, want 0", got)
	}
	if got := rec.lastUnread(); got != 0 {
		t.Fatalf("last unread callback = %d, want 0", got)
	}
}
