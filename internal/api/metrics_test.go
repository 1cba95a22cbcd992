package api

import "testing"

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/api/relay/v1/health", "/api/relay/v1/health"},
		{"/uploads/tickets/T-1/file.png", "/uploads/tickets/T-1/file.png"},
		{"/uploads/tickets/T-1/a/b/c.png", "/uploads/tickets/T-1/a/..."},
		{"/api//relay/../relay/v1/rooms", "/api/relay/v1/rooms"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.in); got != tt.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
