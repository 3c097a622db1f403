package runtime

import (
	"context"
	"net/http"
	"time"

	"unpod-notifier/internal/api"
	"unpod-notifier/internal/app"
	"unpod-notifier/internal/config"
	"unpod-notifier/internal/dispatch"
	"unpod-notifier/internal/logging"
	"unpod-notifier/internal/notify"
)

const defaultHTTPTimeout = 10 * time.Second

type Service interface {
	RunContext(ctx context.Context) error
	MarkAllRead(ctx context.Context) error
	Unread() int
	Recent() []dispatch.Notification
}

func NewService(opts config.Options, bridge notify.Bridge, logger *logging.Logger) (Service, error) {
	return NewServiceWithHooks(opts, bridge, logger, StartHooks{})
}

func NewServiceWithHooks(opts config.Options, bridge notify.Bridge, logger *logging.Logger, hooks StartHooks) (Service, error) {
	if logger == nil {
		panic("runtime.NewServiceWithHooks: logger must not be nil")
	}
	if err := config.ValidateRequired(opts); err != nil {
		return nil, err
	}

	endpoints, err := config.BuildEndpoints(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	logger.Debug("constructed API endpoints",
		logging.Field("realtime_config_url", endpoints.RealtimeConfigURL),
		logging.Field("connection_token_url", endpoints.ConnectionTokenURL),
		logging.Field("subscription_token_url", endpoints.SubscriptionTokenURL),
		logging.Field("feed_url", endpoints.FeedURL),
		logging.Field("feed_update_url", endpoints.FeedUpdateURL),
	)

	httpClient := &http.Client{Timeout: defaultHTTPTimeout}
	unpodClient := api.New(httpClient, opts.Token, endpoints, logger)
	return app.New(opts, unpodClient, httpClient, bridge, logger, app.Callbacks{
		OnStatusChange: hooks.OnStatus,
		OnUnread:       hooks.OnUnread,
		OnNotification: hooks.OnNotification,
	}), nil
}
