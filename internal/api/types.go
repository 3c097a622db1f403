package api

import "encoding/json"

type RealtimeConfig struct {
	Enabled     bool   `json:"enabled"`
	URL         string `json:"url"`
	UserChannel string `json:"user_channel"`
}

type ConnectionToken struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

type ChannelToken struct {
	Token     string `json:"token"`
	Channel   string `json:"channel"`
	ExpiresIn int64  `json:"expires_in"`
}

type FeedItem struct {
	Title      string          `json:"title"`
	Body       string          `json:"body"`
	ObjectType string          `json:"object_type"`
	Event      string          `json:"event"`
	EventData  json.RawMessage `json:"event_data"`
	Token      string          `json:"token"`
	Expired    bool            `json:"expired"`
	Read       bool            `json:"read"`
	Created    string          `json:"created"`
}

type Feed struct {
	Items       []FeedItem
	Count       int
	UnreadCount int
}
