package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"unpod-notifier/internal/config"
	"unpod-notifier/internal/logging"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
	}
}

func quietLogger() *logging.Logger {
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

func testEndpoints(t *testing.T) config.APIEndpoints {
	t.Helper()
	endpoints, err := config.BuildEndpoints("https://app.unpod.example")
	if err != nil {
		t.Fatalf("BuildEndpoints() error = %v", err)
	}
	return endpoints
}

func TestFetchRealtimeConfig_DecodesEnvelopeAndAuthHeader(t *testing.T) {
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
				t.Fatalf("Authorization = %q, want Bearer token-123", got)
			}
			return jsonResponse(r, http.StatusOK, `{"data":{"enabled":true,"url":"wss://rt.unpod.example/connection/websocket","user_channel":"user:42"}}`), nil
		}),
	}

	c := New(httpClient, "token-123", testEndpoints(t), quietLogger())
	cfg, err := c.FetchRealtimeConfig(context.Background())
	if err != nil {
		t.Fatalf("FetchRealtimeConfig() error = %v", err)
	}
	if !cfg.Enabled {
		t.Fatalf("Enabled = false, want true")
	}
	if cfg.UserChannel != "user:42" {
		t.Fatalf("UserChannel = %q, want user:42", cfg.UserChannel)
	}
}

func TestFetchRealtimeConfig_HTTPError(t *testing.T) {
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(r, http.StatusInternalServerError, `{"error":"Unable to fetch realtime config"}`), nil
		}),
	}

	c := New(httpClient, "token-123", testEndpoints(t), quietLogger())
	if _, err := c.FetchRealtimeConfig(context.Background()); err == nil {
		t.Fatalf("FetchRealtimeConfig() expected error on HTTP 500")
	}
}

func TestFetchConnectionToken_FreshNetworkCallEachTime(t *testing.T) {
	var calls atomic.Int32
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls.Add(1)
			return jsonResponse(r, http.StatusOK, `{"data":{"token":"conn-jwt","expires_in":3600}}`), nil
		}),
	}

	c := New(httpClient, "token-123", testEndpoints(t), quietLogger())
	for i := 0; i < 3; i++ {
		token, err := c.FetchConnectionToken(context.Background())
		if err != nil {
			t.Fatalf("FetchConnectionToken() error = %v", err)
		}
		if token.Token != "conn-jwt" {
			t.Fatalf("Token = %q, want conn-jwt", token.Token)
		}
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("transport calls = %d, want 3 (no caching)", got)
	}
}

func TestFetchConnectionToken_MissingTokenIsError(t *testing.T) {
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(r, http.StatusOK, `{"data":{"expires_in":3600}}`), nil
		}),
	}

	c := New(httpClient, "token-123", testEndpoints(t), quietLogger())
	if _, err := c.FetchConnectionToken(context.Background()); err == nil {
		t.Fatalf("FetchConnectionToken() expected error on blank token")
	}
}

func TestFetchChannelToken_PostsChannelBody(t *testing.T) {
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Method != http.MethodPost {
				t.Fatalf("method = %q, want POST", r.Method)
			}
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode request body: %v", err)
			}
			if body["channel"] != "user:42" {
				t.Fatalf("channel = %q, want user:42", body["channel"])
			}
			return jsonResponse(r, http.StatusOK, `{"data":{"token":"sub-jwt","channel":"user:42","expires_in":600}}`), nil
		}),
	}

	c := New(httpClient, "token-123", testEndpoints(t), quietLogger())
	token, err := c.FetchChannelToken(context.Background(), "user:42")
	if err != nil {
		t.Fatalf("FetchChannelToken() error = %v", err)
	}
	if token.Token != "sub-jwt" || token.Channel != "user:42" {
		t.Fatalf("ChannelToken = %#v", token)
	}
}

func TestFetchFeed_ParsesCountsBesideData(t *testing.T) {
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if got := r.URL.Query().Get("page_size"); got != "20" {
				t.Fatalf("page_size = %q, want 20", got)
			}
			return jsonResponse(r, http.StatusOK, `{
				"data": [
					{"title":"Invite","body":"You were invited","event":"invitation","token":"t1","read":false},
					{"title":"Note","body":"Hello","event":"notification","token":"t2","read":true}
				],
				"count": 2,
				"unread_count": 1
			}`), nil
		}),
	}

	c := New(httpClient, "token-123", testEndpoints(t), quietLogger())
	feed, err := c.FetchFeed(context.Background(), 20)
	if err != nil {
		t.Fatalf("FetchFeed() error = %v", err)
	}
	if len(feed.Items) != 2 || feed.Count != 2 || feed.UnreadCount != 1 {
		t.Fatalf("Feed = %#v", feed)
	}
	if feed.Items[0].Title != "Invite" || feed.Items[1].Read != true {
		t.Fatalf("Feed items = %#v", feed.Items)
	}
}

func TestMarkAllRead_SendsReadAllBody(t *testing.T) {
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Method != http.MethodPut {
				t.Fatalf("method = %q, want PUT", r.Method)
			}
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode request body: %v", err)
			}
			if body["read_all"] != true {
				t.Fatalf("read_all = %v, want true", body["read_all"])
			}
			return jsonResponse(r, http.StatusOK, `{"message":"Notification Read Updated"}`), nil
		}),
	}

	c := New(httpClient, "token-123", testEndpoints(t), quietLogger())
	if err := c.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
}
