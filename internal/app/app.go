package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"unpod-notifier/internal/api"
	"unpod-notifier/internal/config"
	"unpod-notifier/internal/dispatch"
	"unpod-notifier/internal/logging"
	"unpod-notifier/internal/notify"
	"unpod-notifier/internal/realtime"
	"unpod-notifier/internal/runstatus"
)

const (
	defaultPollInterval = 60 * time.Second
	feedPageSize        = 20
)

type NotifierApp struct {
	opts       config.Options
	client     *api.UnpodClient
	httpClient *http.Client
	dispatcher *dispatch.Dispatcher
	logger     *logging.Logger
	hooks      Callbacks
	status     runtimeStatusState
	policy     realtime.ReconnectPolicy
}

type Callbacks struct {
	OnStatusChange func(string)
	OnUnread       func(int)
	OnNotification func(dispatch.Notification)
}

func New(opts config.Options, client *api.UnpodClient, httpClient *http.Client, bridge notify.Bridge, logger *logging.Logger, hooks Callbacks) *NotifierApp {
	if client == nil {
		panic("app.New: client must not be nil")
	}
	if httpClient == nil {
		panic("app.New: http client must not be nil")
	}
	if logger == nil {
		panic("app.New: logger must not be nil")
	}
	a := &NotifierApp{
		opts:       opts,
		client:     client,
		httpClient: httpClient,
		logger:     logger,
		hooks:      hooks,
		policy:     realtime.DefaultReconnectPolicy(),
	}
	a.dispatcher = dispatch.New(bridge, dispatch.Hooks{
		OnUnread:       a.notifyUnread,
		OnNotification: a.notifyNotification,
	}, logger)
	return a
}

func (a *NotifierApp) Run() error {
	return a.RunContext(context.Background())
}

func (a *NotifierApp) RunContext(ctx context.Context) error {
	a.logger.Info("notifier starting", logging.Field("base_url", a.opts.BaseURL))

	// The first feed fetch doubles as the credential check and anchors the
	// badge to the backend's unread count.
	feed, err := a.client.FetchFeed(ctx, feedPageSize)
	if err != nil {
		if api.IsUnauthorized(err) {
			a.setRuntimeStatus(runstatus.DisconnectedAuth)
			return fmt.Errorf("verifying credentials: %w", ErrAuthenticationFailed)
		}
		return fmt.Errorf("initial feed fetch: %w", err)
	}
	a.dispatcher.Seed(feedNotifications(feed.Items))
	a.dispatcher.SetUnread(feed.UnreadCount)
	a.logger.Info("feed primed",
		logging.Field("unread", feed.UnreadCount),
		logging.Field("items", len(feed.Items)),
	)

	rtCfg := a.resolveRealtimeConfig(ctx)
	channel := strings.TrimSpace(rtCfg.UserChannel)
	if !rtCfg.Enabled || strings.TrimSpace(rtCfg.URL) == "" || channel == "" {
		a.setRuntimeStatus(runstatus.RealtimeOff)
		a.logger.Info("realtime transport off, using feed polling")
		return a.pollForRemainder(ctx, newestCreated(feed.Items))
	}

	// The websocket rides a copy of the API transport with the per-request
	// timeout stripped; the connection is long-lived.
	streamHTTP := *a.httpClient
	streamHTTP.Timeout = 0

	session := realtime.NewSession(realtime.SessionConfig{
		URL:        rtCfg.URL,
		Channels:   []string{channel},
		ClientName: "unpod-notifier",
		Tokens:     &apiTokenSource{client: a.client},
		Dialer:     realtime.WebsocketDialer{HTTPClient: &streamHTTP},
		Policy:     a.policy,
		Handlers:   a.sessionHandlers(ctx),
	}, a.logger)

	a.logger.Info("realtime transport selected",
		logging.Field("url", rtCfg.URL),
		logging.Field("channel", channel),
	)

	runErr := session.Run(ctx)
	switch {
	case runErr == nil:
		a.setRuntimeStatus(runstatus.Stopped)
		a.logger.Info("notifier stopped")
		return nil
	case errors.Is(runErr, realtime.ErrReconnectExhausted):
		a.setRuntimeStatus(runstatus.DisconnectedError)
		a.logger.Warn("realtime reconnect exhausted, degrading to feed polling")
		return a.pollForRemainder(ctx, "")
	default:
		a.setRuntimeStatus(runstatus.DisconnectedError)
		return runErr
	}
}

// MarkAllRead clears the backend feed and the local badge together.
func (a *NotifierApp) MarkAllRead(ctx context.Context) error {
	if err := a.client.MarkAllRead(ctx); err != nil {
		return err
	}
	a.dispatcher.Reset()
	return nil
}

func (a *NotifierApp) Unread() int {
	return a.dispatcher.Unread()
}

func (a *NotifierApp) Recent() []dispatch.Notification {
	return a.dispatcher.Recent()
}

// resolveRealtimeConfig runs once per session. Fail closed: any fetch
// trouble means no realtime, and the poller still covers the badge.
func (a *NotifierApp) resolveRealtimeConfig(ctx context.Context) api.RealtimeConfig {
	cfg, err := a.client.FetchRealtimeConfig(ctx)
	if err != nil {
		a.logger.Warn("realtime config fetch failed, treating realtime as disabled",
			logging.Field("error", err))
		return api.RealtimeConfig{}
	}
	return cfg
}

func (a *NotifierApp) sessionHandlers(ctx context.Context) realtime.Handlers {
	// Both closures run on the session goroutine, so these flags need no lock.
	everConnected := false
	exhausted := false
	return realtime.Handlers{
		OnStateChange: func(state realtime.ConnState) {
			switch state {
			case realtime.StateConnecting:
				if everConnected {
					a.setRuntimeStatus(runstatus.Reconnecting)
				} else {
					a.setRuntimeStatus(runstatus.Connecting)
				}
			case realtime.StateConnected:
				reanchor := everConnected
				everConnected = true
				a.setRuntimeStatus(runstatus.Connected)
				// The startup fetch anchored the first connect; later ones
				// may have missed deliveries to account for.
				if reanchor {
					go a.syncUnread(ctx)
				}
			case realtime.StateDisconnected:
				if ctx.Err() == nil && !exhausted {
					a.setRuntimeStatus(runstatus.Reconnecting)
				}
			}
		},
		OnPublication: func(channel string, data json.RawMessage) {
			a.dispatcher.HandlePublication(channel, data)
		},
		OnError: func(err error) {
			var tokenErr *realtime.TokenFetchError
			if errors.As(err, &tokenErr) && api.IsUnauthorized(tokenErr.Err) {
				a.setRuntimeStatus(runstatus.DisconnectedAuth)
				return
			}
			if errors.Is(err, realtime.ErrReconnectExhausted) {
				// Surfaced through the Run return value.
				exhausted = true
				return
			}
			a.logger.Debug("realtime session error", logging.Field("error", err))
		},
	}
}

func (a *NotifierApp) syncUnread(ctx context.Context) {
	feed, err := a.client.FetchFeed(ctx, feedPageSize)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Warn("unread re-anchor failed", logging.Field("error", err))
		}
		return
	}
	a.dispatcher.SetUnread(feed.UnreadCount)
}

func (a *NotifierApp) pollForRemainder(ctx context.Context, lastSeen string) error {
	if err := a.runPoller(ctx, lastSeen); err != nil {
		return err
	}
	a.setRuntimeStatus(runstatus.Stopped)
	a.logger.Info("notifier stopped")
	return nil
}

// runPoller is the degraded transport: fetch the feed on an interval,
// re-anchor the badge, and toast items newer than the last sweep.
func (a *NotifierApp) runPoller(ctx context.Context, lastSeen string) error {
	interval := time.Duration(a.opts.PollInterval) * time.Second
	if interval <= 0 {
		interval = defaultPollInterval
	}
	a.setRuntimeStatus(runstatus.Polling)
	a.logger.Info("feed polling started", logging.Field("interval", interval.String()))

	if lastSeen == "" {
		feed, err := a.client.FetchFeed(ctx, feedPageSize)
		switch {
		case err == nil:
			lastSeen = newestCreated(feed.Items)
			a.dispatcher.SetUnread(feed.UnreadCount)
		case api.IsUnauthorized(err):
			a.setRuntimeStatus(runstatus.DisconnectedAuth)
			return fmt.Errorf("feed polling: %w", ErrAuthenticationFailed)
		case ctx.Err() != nil:
			return nil
		default:
			a.logger.Warn("feed poll failed", logging.Field("error", err))
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("stopping feed poller: context canceled", logging.Field("error", ctx.Err()))
			return nil
		case <-ticker.C:
			next, err := a.pollOnce(ctx, lastSeen)
			if err != nil {
				if api.IsUnauthorized(err) {
					a.setRuntimeStatus(runstatus.DisconnectedAuth)
					return fmt.Errorf("feed polling: %w", ErrAuthenticationFailed)
				}
				if ctx.Err() != nil {
					return nil
				}
				a.logger.Warn("feed poll failed", logging.Field("error", err))
				continue
			}
			lastSeen = next
		}
	}
}

func (a *NotifierApp) pollOnce(ctx context.Context, lastSeen string) (string, error) {
	feed, err := a.client.FetchFeed(ctx, feedPageSize)
	if err != nil {
		return lastSeen, err
	}
	if lastSeen != "" {
		fresh := 0
		// Oldest first, so toasts land in arrival order.
		for i := len(feed.Items) - 1; i >= 0; i-- {
			item := feed.Items[i]
			if item.Created <= lastSeen || item.Read {
				continue
			}
			a.dispatcher.Deliver(feedNotification(item))
			fresh++
		}
		if fresh > 0 {
			a.logger.Info("feed poll delivered notifications", logging.Field("count", fresh))
		}
	}
	a.dispatcher.SetUnread(feed.UnreadCount)
	if newest := newestCreated(feed.Items); newest > lastSeen {
		lastSeen = newest
	}
	return lastSeen, nil
}

type apiTokenSource struct {
	client *api.UnpodClient
}

func (t *apiTokenSource) ConnectionToken(ctx context.Context) (string, error) {
	token, err := t.client.FetchConnectionToken(ctx)
	if err != nil {
		return "", err
	}
	return token.Token, nil
}

func (t *apiTokenSource) ChannelToken(ctx context.Context, channel string) (string, error) {
	token, err := t.client.FetchChannelToken(ctx, channel)
	if err != nil {
		return "", err
	}
	return token.Token, nil
}

func feedNotification(item api.FeedItem) dispatch.Notification {
	n := dispatch.Notification{
		Title: item.Title,
		Body:  item.Body,
		Event: item.Event,
		Token: item.Token,
		Raw:   item.EventData,
	}
	if ts, err := time.Parse(time.RFC3339Nano, item.Created); err == nil {
		n.Received = ts
	}
	return n
}

func feedNotifications(items []api.FeedItem) []dispatch.Notification {
	ns := make([]dispatch.Notification, 0, len(items))
	for _, item := range items {
		ns = append(ns, feedNotification(item))
	}
	return ns
}

func newestCreated(items []api.FeedItem) string {
	newest := ""
	for _, item := range items {
		if item.Created > newest {
			newest = item.Created
		}
	}
	return newest
}

type runtimeStatusState struct {
	mu      sync.Mutex
	current string
}

func (s *runtimeStatusState) update(status string) (string, string, bool) {
	trimmed := strings.TrimSpace(status)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == trimmed {
		return s.current, trimmed, false
	}
	previous := s.current
	s.current = trimmed
	return previous, trimmed, true
}

func (a *NotifierApp) setRuntimeStatus(status string) {
	previous, next, changed := a.status.update(status)
	if !changed {
		return
	}
	a.logger.Debug("runtime status transition",
		logging.Field("from", previous),
		logging.Field("to", next),
	)
	a.notifyStatus(status)
}

func (a *NotifierApp) notifyStatus(status string) {
	if a.hooks.OnStatusChange == nil {
		return
	}
	a.hooks.OnStatusChange(status)
}

func (a *NotifierApp) notifyUnread(count int) {
	if a.hooks.OnUnread == nil {
		return
	}
	a.hooks.OnUnread(count)
}

func (a *NotifierApp) notifyNotification(n dispatch.Notification) {
	if a.hooks.OnNotification == nil {
		return
	}
	a.hooks.OnNotification(n)
}
