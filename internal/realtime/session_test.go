package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"unpod-notifier/internal/logging"
)

func quietLogger() *logging.Logger {
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

// fakeLink plays the server side of the wire protocol in-process. Writes are
// answered synchronously through respond (or a permissive default), so
// handshakes never depend on test timing.
type fakeLink struct {
	mu         sync.Mutex
	incoming   chan []byte
	closed     bool
	closeErr   error
	closeCode  int
	pongs      int
	connects   []connectRequest
	subscribes []subscribeRequest
	respond    func(cmd clientCommand) *serverReply
}

func newFakeLink() *fakeLink {
	return &fakeLink{incoming: make(chan []byte, 64)}
}

func (l *fakeLink) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-l.incoming:
		if !ok {
			l.mu.Lock()
			err := l.closeErr
			l.mu.Unlock()
			if err == nil {
				err = errors.New("link dropped")
			}
			return nil, err
		}
		return data, nil
	}
}

func (l *fakeLink) Write(ctx context.Context, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("write on closed link")
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("{}")) {
		l.pongs++
		return nil
	}
	var cmd clientCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return err
	}
	if cmd.Connect != nil {
		l.connects = append(l.connects, *cmd.Connect)
	}
	if cmd.Subscribe != nil {
		l.subscribes = append(l.subscribes, *cmd.Subscribe)
	}
	reply := l.replyFor(cmd)
	if reply == nil {
		return nil
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	select {
	case l.incoming <- payload:
		return nil
	default:
		return errors.New("fake link buffer full")
	}
}

// replyFor falls back to accepting any command when respond declines one.
func (l *fakeLink) replyFor(cmd clientCommand) *serverReply {
	if l.respond != nil {
		if reply := l.respond(cmd); reply != nil {
			return reply
		}
	}
	switch {
	case cmd.Connect != nil:
		return &serverReply{ID: cmd.ID, Connect: &connectResult{Client: "fake-client", Ping: 25}}
	case cmd.Subscribe != nil:
		return &serverReply{ID: cmd.ID, Subscribe: &subscribeResult{}}
	}
	return nil
}

func (l *fakeLink) Close(code int, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.closeCode = code
	l.closeErr = &CloseError{Code: code, Reason: reason}
	close(l.incoming)
	return nil
}

// drop simulates the server dropping the connection with the given error.
func (l *fakeLink) drop(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.closeErr = err
	close(l.incoming)
}

func (l *fakeLink) push(channel, data string) {
	frame := serverReply{Push: &pushFrame{
		Channel: channel,
		Pub:     &publication{Data: json.RawMessage(data)},
	}}
	payload, err := json.Marshal(frame)
	if err != nil {
		panic(err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.incoming <- payload
}

func (l *fakeLink) ping() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.incoming <- []byte("{}")
}

func (l *fakeLink) pongCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pongs
}

func (l *fakeLink) sentConnects() []connectRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]connectRequest(nil), l.connects...)
}

func (l *fakeLink) sentSubscribes() []subscribeRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]subscribeRequest(nil), l.subscribes...)
}

type fakeDialer struct {
	mu      sync.Mutex
	dials   int
	links   []*fakeLink
	script  func(attempt int) error
	respond func(cmd clientCommand) *serverReply
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Link, error) {
	d.mu.Lock()
	d.dials++
	attempt := d.dials
	script := d.script
	respond := d.respond
	d.mu.Unlock()

	if script != nil {
		if err := script(attempt); err != nil {
			return nil, err
		}
	}
	link := newFakeLink()
	link.respond = respond
	d.mu.Lock()
	d.links = append(d.links, link)
	d.mu.Unlock()
	return link, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) link(i int) *fakeLink {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.links) {
		return nil
	}
	return d.links[i]
}

func (d *fakeDialer) lastLink() *fakeLink {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.links) == 0 {
		return nil
	}
	return d.links[len(d.links)-1]
}

type fakeTokens struct {
	mu        sync.Mutex
	connToken string
	connErr   error
	chanToken string
	chanErr   error
	connCalls int
	chanCalls []string
}

func (f *fakeTokens) ConnectionToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connCalls++
	if f.connErr != nil {
		return "", f.connErr
	}
	return f.connToken, nil
}

func (f *fakeTokens) ChannelToken(ctx context.Context, channel string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chanCalls = append(f.chanCalls, channel)
	if f.chanErr != nil {
		return "", f.chanErr
	}
	return f.chanToken, nil
}

func (f *fakeTokens) connectionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connCalls
}

type capturedPub struct {
	channel string
	data    string
}

type sessionRecorder struct {
	mu     sync.Mutex
	states []ConnState
	subs   []string
	errs   []error
	pubs   []capturedPub
}

func (r *sessionRecorder) handlers() Handlers {
	return Handlers{
		OnStateChange: func(state ConnState) {
			r.mu.Lock()
			r.states = append(r.states, state)
			r.mu.Unlock()
		},
		OnSubscriptionChange: func(channel string, state SubState) {
			r.mu.Lock()
			r.subs = append(r.subs, fmt.Sprintf("%s=%s", channel, state))
			r.mu.Unlock()
		},
		OnPublication: func(channel string, data json.RawMessage) {
			r.mu.Lock()
			r.pubs = append(r.pubs, capturedPub{channel: channel, data: string(data)})
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
	}
}

func (r *sessionRecorder) stateSeq() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	parts := make([]string, len(r.states))
	for i, state := range r.states {
		parts[i] = state.String()
	}
	return strings.Join(parts, ",")
}

func (r *sessionRecorder) stateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *sessionRecorder) countErrorsIs(target error) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, err := range r.errs {
		if errors.Is(err, target) {
			n++
		}
	}
	return n
}

func (r *sessionRecorder) countTokenErrors(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, err := range r.errs {
		var tokenErr *TokenFetchError
		if errors.As(err, &tokenErr) && tokenErr.Op == op {
			n++
		}
	}
	return n
}

func (r *sessionRecorder) countErrorsContaining(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, err := range r.errs {
		if strings.Contains(err.Error(), substr) {
			n++
		}
	}
	return n
}

func (r *sessionRecorder) publications() []capturedPub {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]capturedPub(nil), r.pubs...)
}

func newTestSession(t *testing.T, mutate func(*SessionConfig)) (*Session, *fakeDialer, *fakeTokens, *sessionRecorder) {
	t.Helper()
	dialer := &fakeDialer{}
	tokens := &fakeTokens{connToken: "conn-token", chanToken: "chan-token"}
	rec := &sessionRecorder{}
	cfg := SessionConfig{
		URL:      "wss://rt.unpod.example/connection/websocket",
		Channels: []string{"user:42"},
		Tokens:   tokens,
		Dialer:   dialer,
		Policy:   ReconnectPolicy{MaxAttempts: 3, Delay: 10 * time.Millisecond},
		Handlers: rec.handlers(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewSession(cfg, quietLogger()), dialer, tokens, rec
}

func startSession(s *Session) chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	return done
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop in time")
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

func TestRunConnectsAndSubscribes(t *testing.T) {
	s, dialer, tokens, _ := newTestSession(t, nil)
	done := startSession(s)

	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })

	if got := dialer.dialCount(); got != 1 {
		t.Fatalf("dialCount() = %d, want 1", got)
	}
	if got := tokens.connectionCalls(); got != 1 {
		t.Fatalf("connectionCalls() = %d, want 1", got)
	}

	link := dialer.link(0)
	connects := link.sentConnects()
	if len(connects) != 1 || connects[0].Token != "conn-token" {
		t.Fatalf("connects = %+v, want one with conn-token", connects)
	}
	subscribes := link.sentSubscribes()
	if len(subscribes) != 1 || subscribes[0].Channel != "user:42" || subscribes[0].Token != "chan-token" {
		t.Fatalf("subscribes = %+v, want one for user:42 with chan-token", subscribes)
	}
	if state, ok := s.SubscriptionState("user:42"); !ok || state != SubSubscribed {
		t.Fatalf("SubscriptionState(user:42) = %s, %v, want subscribed", state, ok)
	}

	s.Close()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if got := s.State(); got != StateDisconnected {
		t.Fatalf("State() after close = %s, want disconnected", got)
	}
	if state, _ := s.SubscriptionState("user:42"); state != SubUnsubscribed {
		t.Fatalf("SubscriptionState(user:42) after close = %s, want unsubscribed", state)
	}
}

func TestChannelNamesAreNormalized(t *testing.T) {
	s, dialer, _, _ := newTestSession(t, func(cfg *SessionConfig) {
		cfg.Channels = []string{" user:42 ", "user:42", "", "alerts"}
	})
	done := startSession(s)

	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })

	subscribes := dialer.link(0).sentSubscribes()
	if len(subscribes) != 2 || subscribes[0].Channel != "user:42" || subscribes[1].Channel != "alerts" {
		t.Fatalf("subscribes = %+v, want user:42 then alerts", subscribes)
	}
	if _, ok := s.SubscriptionState(""); ok {
		t.Fatal("SubscriptionState(\"\") reported a tracked channel")
	}

	s.Close()
	waitDone(t, done)
}

func TestAbnormalCloseReconnectsWithFreshToken(t *testing.T) {
	s, dialer, tokens, rec := newTestSession(t, nil)
	done := startSession(s)

	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })

	dialer.link(0).drop(&CloseError{Code: 1006, Reason: "abnormal closure"})

	waitUntil(t, 2*time.Second, func() bool { return rec.stateCount() >= 5 })
	want := "connecting,connected,disconnected,connecting,connected"
	if got := rec.stateSeq(); got != want {
		t.Fatalf("state sequence = %s, want %s", got, want)
	}
	if got := dialer.dialCount(); got != 2 {
		t.Fatalf("dialCount() = %d, want 2", got)
	}
	if got := tokens.connectionCalls(); got != 2 {
		t.Fatalf("connectionCalls() = %d, want 2", got)
	}

	// Subscriptions are rebuilt from scratch on the new connection.
	waitUntil(t, 2*time.Second, func() bool {
		link := dialer.link(1)
		return link != nil && len(link.sentSubscribes()) == 1
	})

	s.Close()
	waitDone(t, done)
}

func TestShutdownCloseSuppressesReconnect(t *testing.T) {
	s, dialer, _, rec := newTestSession(t, nil)
	done := startSession(s)

	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })

	dialer.link(0).drop(&CloseError{Code: CloseCodeShutdown, Reason: "shutdown"})

	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if got := dialer.dialCount(); got != 1 {
		t.Fatalf("dialCount() = %d, want 1 (no reconnect)", got)
	}
	if got := rec.countErrorsIs(ErrReconnectExhausted); got != 0 {
		t.Fatalf("exhausted errors = %d, want 0", got)
	}
}

func TestReconnectBudgetResetsAfterSuccess(t *testing.T) {
	s, dialer, tokens, rec := newTestSession(t, func(cfg *SessionConfig) {
		cfg.Policy = ReconnectPolicy{MaxAttempts: 3, Delay: 5 * time.Millisecond}
	})
	failedDials := map[int]bool{2: true, 3: true, 5: true, 6: true}
	dialer.script = func(attempt int) error {
		if failedDials[attempt] {
			return errors.New("dial refused")
		}
		return nil
	}
	done := startSession(s)

	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })
	dialer.lastLink().drop(&CloseError{Code: 1006, Reason: "abnormal closure"})

	// Two failed attempts, then success on the third of three.
	waitUntil(t, 2*time.Second, func() bool {
		return dialer.dialCount() == 4 && s.State() == StateConnected
	})
	dialer.lastLink().drop(&CloseError{Code: 1006, Reason: "abnormal closure"})

	// The budget is fresh for the new outage, so two more failures still
	// leave room to succeed.
	waitUntil(t, 2*time.Second, func() bool {
		return dialer.dialCount() == 7 && s.State() == StateConnected
	})

	if got := rec.countErrorsIs(ErrReconnectExhausted); got != 0 {
		t.Fatalf("exhausted errors = %d, want 0", got)
	}
	if got := tokens.connectionCalls(); got != 7 {
		t.Fatalf("connectionCalls() = %d, want 7 (fresh token per attempt)", got)
	}

	s.Close()
	waitDone(t, done)
}

func TestReconnectExhaustionReportedOnce(t *testing.T) {
	s, dialer, _, rec := newTestSession(t, func(cfg *SessionConfig) {
		cfg.Policy = ReconnectPolicy{MaxAttempts: 3, Delay: 5 * time.Millisecond}
	})
	dialer.script = func(int) error { return errors.New("dial refused") }
	done := startSession(s)

	err := waitDone(t, done)
	if !errors.Is(err, ErrReconnectExhausted) {
		t.Fatalf("Run() = %v, want ErrReconnectExhausted", err)
	}
	if got := dialer.dialCount(); got != 4 {
		t.Fatalf("dialCount() = %d, want 4 (initial + 3 retries)", got)
	}
	if got := rec.countErrorsIs(ErrReconnectExhausted); got != 1 {
		t.Fatalf("exhausted errors = %d, want exactly 1", got)
	}
	if got := s.State(); got != StateDisconnected {
		t.Fatalf("State() = %s, want disconnected", got)
	}
}

func TestConnectionTokenFailureCountsAgainstBudget(t *testing.T) {
	s, dialer, tokens, rec := newTestSession(t, func(cfg *SessionConfig) {
		cfg.Policy = ReconnectPolicy{MaxAttempts: 2, Delay: 5 * time.Millisecond}
	})
	tokens.connErr = errors.New("token endpoint down")
	done := startSession(s)

	err := waitDone(t, done)
	if !errors.Is(err, ErrReconnectExhausted) {
		t.Fatalf("Run() = %v, want ErrReconnectExhausted", err)
	}
	if got := dialer.dialCount(); got != 0 {
		t.Fatalf("dialCount() = %d, want 0 (token fetch precedes dial)", got)
	}
	if got := tokens.connectionCalls(); got != 3 {
		t.Fatalf("connectionCalls() = %d, want 3 (initial + 2 retries)", got)
	}
	if got := rec.countTokenErrors("connection"); got != 3 {
		t.Fatalf("connection token errors = %d, want 3", got)
	}
}

func TestChannelTokenFailureSubscribesWithoutToken(t *testing.T) {
	s, dialer, tokens, rec := newTestSession(t, nil)
	tokens.chanErr = errors.New("token endpoint down")
	done := startSession(s)

	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })

	subscribes := dialer.link(0).sentSubscribes()
	if len(subscribes) != 1 || subscribes[0].Token != "" {
		t.Fatalf("subscribes = %+v, want one with blank token", subscribes)
	}
	if state, _ := s.SubscriptionState("user:42"); state != SubSubscribed {
		t.Fatalf("SubscriptionState(user:42) = %s, want subscribed", state)
	}
	if got := rec.countTokenErrors("subscription"); got != 1 {
		t.Fatalf("subscription token errors = %d, want 1", got)
	}

	s.Close()
	waitDone(t, done)
}

func TestSubscriptionRejectionParksChannelInError(t *testing.T) {
	s, dialer, _, rec := newTestSession(t, nil)
	dialer.respond = func(cmd clientCommand) *serverReply {
		if cmd.Subscribe != nil {
			return &serverReply{ID: cmd.ID, Error: &replyError{Code: 103, Message: "permission denied"}}
		}
		return nil
	}
	done := startSession(s)

	// A rejected channel must not take the connection down with it.
	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })

	if state, _ := s.SubscriptionState("user:42"); state != SubError {
		t.Fatalf("SubscriptionState(user:42) = %s, want error", state)
	}
	if got := rec.countErrorsContaining("permission denied"); got != 1 {
		t.Fatalf("rejection errors = %d, want 1", got)
	}

	s.Close()
	waitDone(t, done)
}

func TestPublicationsPassThroughVerbatim(t *testing.T) {
	s, dialer, _, rec := newTestSession(t, nil)
	done := startSession(s)

	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })

	payload := `{"event":"notification","data":{"title":"Build finished","meta":[1,2,3]},"timestamp":"2026-08-25T10:00:00Z"}`
	dialer.link(0).push("user:42", payload)

	waitUntil(t, 2*time.Second, func() bool { return len(rec.publications()) == 1 })
	pub := rec.publications()[0]
	if pub.channel != "user:42" {
		t.Fatalf("publication channel = %q, want user:42", pub.channel)
	}
	if pub.data != payload {
		t.Fatalf("publication data = %s, want untouched payload", pub.data)
	}

	s.Close()
	waitDone(t, done)
}

func TestServerPingIsEchoed(t *testing.T) {
	s, dialer, _, _ := newTestSession(t, nil)
	done := startSession(s)

	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })

	link := dialer.link(0)
	link.ping()
	waitUntil(t, 2*time.Second, func() bool { return link.pongCount() == 1 })

	s.Close()
	waitDone(t, done)
}

func TestRunWhileRunningIsRejected(t *testing.T) {
	s, dialer, _, _ := newTestSession(t, nil)
	done := startSession(s)

	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })

	if err := s.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Run() = %v, want ErrAlreadyRunning", err)
	}

	s.Close()
	waitDone(t, done)

	// A stopped session can run again.
	done = startSession(s)
	waitUntil(t, 2*time.Second, func() bool {
		return dialer.dialCount() == 2 && s.State() == StateConnected
	})
	s.Close()
	waitDone(t, done)
}

func TestCloseCancelsPendingReconnect(t *testing.T) {
	s, dialer, _, _ := newTestSession(t, func(cfg *SessionConfig) {
		cfg.Policy = ReconnectPolicy{MaxAttempts: 5, Delay: time.Hour}
	})
	done := startSession(s)

	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })
	dialer.link(0).drop(&CloseError{Code: 1006, Reason: "abnormal closure"})
	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateDisconnected })

	// The session is now waiting out a one hour delay; Close must not.
	s.Close()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if got := dialer.dialCount(); got != 1 {
		t.Fatalf("dialCount() = %d, want 1", got)
	}
}

func TestParentContextCancelStopsSession(t *testing.T) {
	s, _, _, _ := newTestSession(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitUntil(t, 2*time.Second, func() bool { return s.State() == StateConnected })
	cancel()

	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if got := s.State(); got != StateDisconnected {
		t.Fatalf("State() = %s, want disconnected", got)
	}
}
