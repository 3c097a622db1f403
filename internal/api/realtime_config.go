package api

import (
	"context"
	"net/http"
	"strings"

	"unpod-notifier/internal/logging"
)

// FetchRealtimeConfig asks the backend whether realtime delivery is enabled
// for this user and where to connect.
func (c *UnpodClient) FetchRealtimeConfig(ctx context.Context) (RealtimeConfig, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoints.RealtimeConfigURL, nil)
	if err != nil {
		return RealtimeConfig{}, err
	}
	resp, err := c.do(req, "realtime config fetch")
	if err != nil {
		return RealtimeConfig{}, err
	}
	defer resp.Body.Close()

	var cfg RealtimeConfig
	if err := decodeDataEnvelope(resp.Body, &cfg); err != nil {
		return RealtimeConfig{}, err
	}
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.UserChannel = strings.TrimSpace(cfg.UserChannel)
	c.logger.Debug("realtime config received",
		logging.Field("enabled", cfg.Enabled),
		logging.Field("channel", cfg.UserChannel),
	)
	return cfg, nil
}
