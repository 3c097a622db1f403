package config

import "testing"

func TestBuildEndpoints_NormalizeAPIBaseURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{name: "root host", base: "http://127.0.0.1:8000", want: "http://127.0.0.1:8000/api"},
		{name: "already api", base: "http://127.0.0.1:8000/api", want: "http://127.0.0.1:8000/api"},
		{name: "api with trailing", base: "http://127.0.0.1:8000/api/", want: "http://127.0.0.1:8000/api"},
		{name: "pasted config endpoint", base: "http://127.0.0.1:8000/api/notifications/realtime/config/", want: "http://127.0.0.1:8000/api"},
		{name: "pasted token endpoint", base: "http://127.0.0.1:8000/api/notifications/realtime/token/", want: "http://127.0.0.1:8000/api"},
		{name: "subpath api endpoint drops extra path", base: "https://example.com/unpod/api/notifications/", want: "https://example.com/api"},
		{name: "query fragment dropped", base: "https://example.com/anything?x=1#y", want: "https://example.com/api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoints, err := BuildEndpoints(tt.base)
			if err != nil {
				t.Fatalf("BuildEndpoints failed: %v", err)
			}
			if endpoints.BaseURL != tt.want {
				t.Fatalf("BaseURL = %q, want %q", endpoints.BaseURL, tt.want)
			}
			if endpoints.RealtimeConfigURL != tt.want+"/notifications/realtime/config/" {
				t.Fatalf("RealtimeConfigURL = %q", endpoints.RealtimeConfigURL)
			}
			if endpoints.ConnectionTokenURL != tt.want+"/notifications/realtime/token/" {
				t.Fatalf("ConnectionTokenURL = %q", endpoints.ConnectionTokenURL)
			}
			if endpoints.SubscriptionTokenURL != tt.want+"/notifications/realtime/subscription-token/" {
				t.Fatalf("SubscriptionTokenURL = %q", endpoints.SubscriptionTokenURL)
			}
			if endpoints.FeedURL != tt.want+"/notifications/" {
				t.Fatalf("FeedURL = %q", endpoints.FeedURL)
			}
			if endpoints.FeedUpdateURL != tt.want+"/notifications/update/" {
				t.Fatalf("FeedUpdateURL = %q", endpoints.FeedUpdateURL)
			}
		})
	}
}

func TestBuildEndpoints_InvalidScheme(t *testing.T) {
	tests := []string{
		"ftp://example.com",
		"ws://example.com",
		"file:///tmp/unpod",
	}
	for _, base := range tests {
		t.Run(base, func(t *testing.T) {
			if _, err := BuildEndpoints(base); err == nil {
				t.Fatalf("expected error for %q", base)
			}
		})
	}
}
