package api

import (
	"fmt"
	"testing"
)

func TestIsUnauthorized(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "401", err: &HTTPStatusError{StatusCode: 401, Status: "401 Unauthorized"}, want: true},
		{name: "403", err: &HTTPStatusError{StatusCode: 403, Status: "403 Forbidden"}, want: true},
		{name: "500", err: &HTTPStatusError{StatusCode: 500, Status: "500 Internal Server Error"}, want: false},
		{name: "wrapped 401", err: fmt.Errorf("feed fetch: %w", &HTTPStatusError{StatusCode: 401}), want: true},
		{name: "plain error", err: fmt.Errorf("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnauthorized(tt.err); got != tt.want {
				t.Fatalf("IsUnauthorized(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
