package forwarded

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"testing"
)

func TestStateFromRequest_SchemeInference(t *testing.T) {
	tests := []struct {
		name string
		req  *http.Request
		want string
	}{
		{
			name: "explicit URL scheme wins",
			req:  &http.Request{URL: &url.URL{Scheme: "https"}},
			want: "https",
		},
		{
			name: "TLS connection implies https",
			req:  &http.Request{URL: &url.URL{}, TLS: &tls.ConnectionState{}},
			want: "https",
		},
		{
			name: "plain connection implies http",
			req:  &http.Request{URL: &url.URL{}},
			want: "http",
		},
		{
			name: "nil URL falls back to connection state",
			req:  &http.Request{},
			want: "http",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := stateFromRequest(tt.req)
			if state.Scheme != tt.want {
				t.Errorf("Scheme = %q, want %q", state.Scheme, tt.want)
			}
		})
	}
}

func TestStateFromRequest_CopiesRequestFields(t *testing.T) {
	req := newTestRequest("127.0.0.1:4711")
	req.Header.Set("X-Forwarded-For", "127.0.0.2")

	state := stateFromRequest(req)

	if state.RemoteAddr != "127.0.0.1:4711" {
		t.Errorf("RemoteAddr = %q, want request value", state.RemoteAddr)
	}
	if state.Host != "internal.example" {
		t.Errorf("Host = %q, want request value", state.Host)
	}
	if state.Header.Get("X-Forwarded-For") != "127.0.0.2" {
		t.Error("Header does not alias the request headers")
	}
}
