package forge

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAuthorizationScheme(t *testing.T) {
	tests := []struct {
		scheme string
		want   string
	}{
		{"token", "token secret"},
		{"Bearer", "Bearer secret"},
	}

	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.want, r.Header.Get("Authorization"))
				assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
				assert.Equal(t, "Etc/UTC", r.Header.Get("Time-Zone"))
				w.WriteHeader(http.StatusTeapot)
			}))
			defer server.Close()

			c := NewClient(KindGitHub, "secret", tt.scheme, server.Client())
			c.SetHeader("Time-Zone", "Etc/UTC")

			resp, err := c.Do(context.Background(), http.MethodGet, server.URL, nil)
			require.NoError(t, err)
			require.Equal(t, http.StatusTeapot, resp.StatusCode)
		})
	}
}

func TestClientJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"read":true}`, string(body))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := NewClient(KindGitea, "t", "token", server.Client())
	resp, err := c.Do(context.Background(), http.MethodPut, server.URL, map[string]bool{"read": true})
	require.NoError(t, err)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, resp.Decode(KindGitea, &out))
	require.True(t, out.OK)
}

func TestResponseDecodeMalformed(t *testing.T) {
	resp := &Response{StatusCode: 200, Body: []byte("<html>")}
	var v map[string]any
	require.ErrorIs(t, resp.Decode(KindGitHub, &v), ErrUnexpected)
}

func TestClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(KindGitHub, "t", "token", nil)
	_, err := c.Do(context.Background(), http.MethodGet, url, nil)
	require.Error(t, err)
	require.False(t, IsAuthError(err))
}
