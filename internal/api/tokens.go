package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// FetchConnectionToken requests a fresh realtime connection token. Every
// call hits the network; token lifetime is the server's concern.
func (c *UnpodClient) FetchConnectionToken(ctx context.Context) (ConnectionToken, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoints.ConnectionTokenURL, nil)
	if err != nil {
		return ConnectionToken{}, err
	}
	resp, err := c.do(req, "connection token fetch")
	if err != nil {
		return ConnectionToken{}, err
	}
	defer resp.Body.Close()

	var token ConnectionToken
	if err := decodeDataEnvelope(resp.Body, &token); err != nil {
		return ConnectionToken{}, err
	}
	token.Token = strings.TrimSpace(token.Token)
	if token.Token == "" {
		return ConnectionToken{}, errors.New("connection token response missing token")
	}
	return token, nil
}

// FetchChannelToken requests a fresh subscription token for one channel.
func (c *UnpodClient) FetchChannelToken(ctx context.Context, channel string) (ChannelToken, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.SubscriptionTokenURL, map[string]string{"channel": channel})
	if err != nil {
		return ChannelToken{}, err
	}
	resp, err := c.do(req, "channel token fetch")
	if err != nil {
		return ChannelToken{}, err
	}
	defer resp.Body.Close()

	var token ChannelToken
	if err := decodeDataEnvelope(resp.Body, &token); err != nil {
		return ChannelToken{}, err
	}
	token.Token = strings.TrimSpace(token.Token)
	if token.Token == "" {
		return ChannelToken{}, errors.New("channel token response missing token")
	}
	if token.Channel == "" {
		token.Channel = channel
	}
	return token, nil
}
