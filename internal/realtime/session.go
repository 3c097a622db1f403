package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"unpod-notifier/internal/logging"
	"unpod-notifier/internal/runctx"
)

const (
	connectTimeout = 15 * time.Second
	sendTimeout    = 10 * time.Second
)

// Session owns one realtime connection lifecycle: token fetch, dial,
// connect handshake, channel subscriptions, and the reconnect cycle.
type Session struct {
	cfg    SessionConfig
	logger *logging.Logger

	connState *machine[ConnState]
	subs      map[string]*machine[SubState]
	cmdID     atomic.Uint32

	mu        sync.Mutex
	running   bool
	cancelRun context.CancelFunc
}

func NewSession(cfg SessionConfig, logger *logging.Logger) *Session {
	if logger == nil {
		panic("realtime.NewSession: logger must not be nil")
	}
	if cfg.Tokens == nil {
		panic("realtime.NewSession: token source must not be nil")
	}
	if cfg.Dialer == nil {
		cfg.Dialer = WebsocketDialer{}
	}
	defaults := DefaultReconnectPolicy()
	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.Policy.Delay <= 0 {
		cfg.Policy.Delay = defaults.Delay
	}
	if strings.TrimSpace(cfg.ClientName) == "" {
		cfg.ClientName = "unpod-notifier"
	}

	subs := map[string]*machine[SubState]{}
	channels := make([]string, 0, len(cfg.Channels))
	for _, channel := range cfg.Channels {
		name := strings.TrimSpace(channel)
		if name == "" {
			continue
		}
		if _, ok := subs[name]; ok {
			continue
		}
		subs[name] = newMachine(SubUnsubscribed, subTransitions)
		channels = append(channels, name)
	}
	cfg.Channels = channels

	return &Session{
		cfg:       cfg,
		logger:    logger,
		connState: newMachine(StateDisconnected, connTransitions),
		subs:      subs,
	}
}

func (s *Session) State() ConnState {
	return s.connState.current()
}

// Close cancels the running session. The pending reconnect wait and any
// in-flight token fetch hang off the run context, so both stop with it.
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancelRun
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run drives the session until the context ends, the server closes with the
// shutdown code, or the reconnect budget is spent. Calling Run on a live
// session is a no-op error.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancelRun = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.running = false
		s.cancelRun = nil
		s.mu.Unlock()
		s.resetSubscriptions()
		s.setConnState(StateDisconnected)
	}()

	link, err := s.connectOnce(runCtx)
	if err != nil {
		if runCtx.Err() != nil {
			return nil
		}
		// A failed first attempt is the disconnect that opens the cycle.
		link, err = s.reconnectCycle(runCtx)
		if err != nil {
			if runCtx.Err() != nil {
				return nil
			}
			return err
		}
	}

	for {
		pumpErr := s.pump(runCtx, link)
		if runCtx.Err() != nil {
			_ = link.Close(CloseCodeShutdown, "client shutdown")
			return nil
		}
		_ = link.Close(CloseCodeShutdown, "client reconnect")
		s.resetSubscriptions()
		s.setConnState(StateDisconnected)

		if isShutdownClose(pumpErr) {
			s.logger.Info("realtime connection closed for shutdown")
			return nil
		}
		s.logger.Warn("realtime connection lost", logging.Field("error", pumpErr))

		link, err = s.reconnectCycle(runCtx)
		if err != nil {
			if runCtx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// reconnectCycle schedules connect attempts until one succeeds or the policy
// budget is spent. The whole cycle runs on the session goroutine, so at most
// one reconnect timer is ever pending.
func (s *Session) reconnectCycle(ctx context.Context) (Link, error) {
	// Every attempt, including the cycle's first, lands one delay after the
	// disconnect that triggered it.
	if !runctx.SleepOrDone(ctx, "reconnect delay", s.logger, s.cfg.Policy.Delay) {
		return nil, ctx.Err()
	}

	attempt := 0
	operation := func() (Link, error) {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		attempt++
		s.logger.Info("reconnecting realtime session",
			logging.Field("attempt", attempt),
			logging.Field("max_attempts", s.cfg.Policy.MaxAttempts),
		)
		return s.connectOnce(ctx)
	}

	link, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.cfg.Policy.Delay)),
		backoff.WithMaxTries(uint(s.cfg.Policy.MaxAttempts)),
		backoff.WithNotify(func(attemptErr error, next time.Duration) {
			s.logger.Debug("reconnect attempt failed",
				logging.Field("error", attemptErr),
				logging.Field("next_retry", next.String()),
			)
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Error("realtime reconnect attempts exhausted",
			logging.Field("attempts", s.cfg.Policy.MaxAttempts),
		)
		s.reportError(ErrReconnectExhausted)
		return nil, ErrReconnectExhausted
	}
	return link, nil
}

// connectOnce runs one full connect attempt: fresh connection token, dial,
// connect handshake, channel subscriptions.
func (s *Session) connectOnce(ctx context.Context) (Link, error) {
	s.setConnState(StateConnecting)
	// A retried attempt may follow a partial subscribe; start clean.
	s.resetSubscriptions()

	token, err := s.cfg.Tokens.ConnectionToken(ctx)
	if err != nil {
		tokenErr := &TokenFetchError{Op: "connection", Err: err}
		s.logger.Warn("connection token fetch failed", logging.Field("error", err))
		s.reportError(tokenErr)
		return nil, tokenErr
	}

	attemptCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	link, err := s.cfg.Dialer.Dial(attemptCtx, s.cfg.URL)
	if err != nil {
		s.logger.Warn("realtime dial failed",
			logging.Field("url", s.cfg.URL),
			logging.Field("error", err),
		)
		return nil, err
	}

	s.cmdID.Store(0)
	if err := s.handshake(attemptCtx, link, token); err != nil {
		_ = link.Close(CloseCodeShutdown, "handshake failed")
		s.logger.Warn("realtime handshake failed", logging.Field("error", err))
		return nil, err
	}
	if err := s.subscribeAll(attemptCtx, link); err != nil {
		_ = link.Close(CloseCodeShutdown, "subscribe failed")
		s.logger.Warn("realtime subscribe failed", logging.Field("error", err))
		return nil, err
	}

	s.setConnState(StateConnected)
	s.logger.Info("realtime connected",
		logging.Field("channels", len(s.cfg.Channels)),
	)
	return link, nil
}

func (s *Session) handshake(ctx context.Context, link Link, token string) error {
	id := s.nextID()
	if err := s.send(ctx, link, clientCommand{
		ID:      id,
		Connect: &connectRequest{Token: token, Name: s.cfg.ClientName},
	}); err != nil {
		return err
	}
	reply, err := s.awaitReply(ctx, link, id)
	if err != nil {
		return err
	}
	if reply.Error != nil {
		return fmt.Errorf("connect rejected: %s (code %d)", reply.Error.Message, reply.Error.Code)
	}
	if reply.Connect != nil {
		s.logger.Debug("connect established",
			logging.Field("client", reply.Connect.Client),
			logging.Field("ping", reply.Connect.Ping),
		)
	}
	return nil
}

// pump answers pings and delivers pushes until the link drops.
func (s *Session) pump(ctx context.Context, link Link) error {
	for {
		data, err := link.Read(ctx)
		if err != nil {
			return err
		}
		reply, err := s.handleFrame(ctx, link, data)
		if err != nil {
			return err
		}
		if reply != nil {
			s.logger.Debugf("ignoring stray reply for command %d", reply.ID)
		}
	}
}

// handleFrame decodes one frame. Pings are answered inline and pushes
// dispatched; command replies are returned for correlation.
func (s *Session) handleFrame(ctx context.Context, link Link, data []byte) (*serverReply, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if bytes.Equal(trimmed, []byte("{}")) {
		return nil, s.sendRaw(ctx, link, []byte("{}"))
	}

	var reply serverReply
	if err := json.Unmarshal(trimmed, &reply); err != nil {
		s.logger.Debug("discarding unparseable realtime frame",
			logging.Field("error", err),
			logging.Field("frame", logging.Truncate(string(trimmed))),
		)
		return nil, nil
	}
	if reply.Push != nil {
		s.handlePush(reply.Push)
		return nil, nil
	}
	return &reply, nil
}

func (s *Session) handlePush(push *pushFrame) {
	if push.Pub == nil {
		s.logger.Debug("ignoring non-publication push", logging.Field("channel", push.Channel))
		return
	}
	// Publication payloads pass through untouched; interpretation is the
	// dispatcher's concern.
	if s.cfg.Handlers.OnPublication != nil {
		s.cfg.Handlers.OnPublication(push.Channel, push.Pub.Data)
	}
}

func (s *Session) awaitReply(ctx context.Context, link Link, id uint32) (*serverReply, error) {
	for {
		data, err := link.Read(ctx)
		if err != nil {
			return nil, err
		}
		reply, err := s.handleFrame(ctx, link, data)
		if err != nil {
			return nil, err
		}
		if reply == nil {
			continue
		}
		if reply.ID == id {
			return reply, nil
		}
		s.logger.Debugf("ignoring reply for command %d while waiting for %d", reply.ID, id)
	}
}

func (s *Session) send(ctx context.Context, link Link, cmd clientCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return s.sendRaw(ctx, link, payload)
}

func (s *Session) sendRaw(ctx context.Context, link Link, payload []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return link.Write(writeCtx, payload)
}

func (s *Session) nextID() uint32 {
	return s.cmdID.Add(1)
}

func (s *Session) setConnState(next ConnState) {
	prev, changed := s.connState.to(next)
	if !changed {
		if prev != next {
			s.logger.Debugf("ignoring connection transition %s -> %s", prev, next)
		}
		return
	}
	s.logger.Debug("realtime connection state",
		logging.Field("from", prev),
		logging.Field("to", next),
	)
	if s.cfg.Handlers.OnStateChange != nil {
		s.cfg.Handlers.OnStateChange(next)
	}
}

func (s *Session) reportError(err error) {
	if err == nil {
		return
	}
	if s.cfg.Handlers.OnError != nil {
		s.cfg.Handlers.OnError(err)
	}
}
