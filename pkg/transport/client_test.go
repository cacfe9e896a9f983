package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSendsBearerTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))
		assert.Equal(t, "/v2/things", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"a"}`, string(body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"name":"b"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/v2/", "secret", Options{Headers: map[string]string{"X-Extra": "yes"}})

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/things", map[string]string{"name": "a"}, &out))
	assert.Equal(t, "b", out.Name)
}

func TestDoErrorHeuristics(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		fail   bool
	}{
		{"ok", http.StatusOK, `{"ok":true}`, false},
		{"no content", http.StatusNoContent, ``, false},
		{"error in body", http.StatusOK, `{"id":"error_rate_limited"}`, true},
		{"bad status", http.StatusNotFound, `{"id":"not_found"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(srv.URL, "t", Options{}).Do(context.Background(), http.MethodGet, "x", nil, nil)
			if tt.fail {
				assert.ErrorIs(t, err, ErrProviderError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDoConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url, "t", Options{}).Do(context.Background(), http.MethodGet, "x", nil, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProviderError)
}

func TestURL(t *testing.T) {
	c := New("https://api.example.com/v2/", "t", Options{})
	assert.Equal(t, "https://api.example.com/v2/domains", c.URL("domains"))
	assert.Equal(t, "https://api.example.com/v2/domains", c.URL("/domains"))
	assert.Equal(t, "https://api.example.com/v2/domains?page=2", c.URL("https://api.example.com/v2/domains?page=2"))
}
