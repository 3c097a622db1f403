package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"unpod-notifier/internal/logging"
)

// FetchFeed returns the newest page of the notification feed along with the
// backend's authoritative total and unread counts.
func (c *UnpodClient) FetchFeed(ctx context.Context, pageSize int) (Feed, error) {
	url := c.endpoints.FeedURL
	if pageSize > 0 {
		url = fmt.Sprintf("%s?page_size=%d", url, pageSize)
	}
	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Feed{}, err
	}
	resp, err := c.do(req, "feed fetch")
	if err != nil {
		return Feed{}, err
	}
	defer resp.Body.Close()

	// count and unread_count ride alongside data, not inside it.
	var payload struct {
		Data        []FeedItem `json:"data"`
		Count       int        `json:"count"`
		UnreadCount int        `json:"unread_count"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return Feed{}, err
	}
	c.logger.Debug("feed received",
		logging.Field("items", len(payload.Data)),
		logging.Field("unread", payload.UnreadCount),
	)
	return Feed{Items: payload.Data, Count: payload.Count, UnreadCount: payload.UnreadCount}, nil
}

// MarkRead flags a single notification, identified by its feed token, as read.
func (c *UnpodClient) MarkRead(ctx context.Context, token string) error {
	return c.updateFeed(ctx, map[string]any{"token": token})
}

// MarkAllRead flags every unread notification as read.
func (c *UnpodClient) MarkAllRead(ctx context.Context) error {
	return c.updateFeed(ctx, map[string]any{"read_all": true})
}

func (c *UnpodClient) updateFeed(ctx context.Context, payload map[string]any) error {
	req, err := c.newRequest(ctx, http.MethodPut, c.endpoints.FeedUpdateURL, payload)
	if err != nil {
		return err
	}
	resp, err := c.do(req, "feed update")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
	return nil
}
