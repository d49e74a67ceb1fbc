package analyzer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Analyze(t *testing.T) {
	var gotName, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/oddpub", r.URL.Path)

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName, gotBody = header.Filename, string(data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"article": "paper.txt",
			"is_open_data": true,
			"open_data_category": "field-specific repository",
			"is_reuse": false,
			"is_open_code": null,
			"das": "Data are available at GEO.",
			"open_data_statements": "deposited in GEO"
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", WithRateLimit(0))
	result, err := client.Analyze(context.Background(), "/data/in/paper.pdf", strings.NewReader("%PDF-1.4 body"))
	require.NoError(t, err)

	assert.Equal(t, "paper.pdf", gotName)
	assert.Equal(t, "%PDF-1.4 body", gotBody)
	assert.Equal(t, "paper.txt", result.Article)
	assert.True(t, result.IsOpenData)
	assert.False(t, result.IsOpenCode)
	assert.Equal(t, "field-specific repository", result.OpenDataCategory)
	assert.Equal(t, "Data are available at GEO.", result.DAS)
}

func TestClient_WithPath(t *testing.T) {
	tests := []struct {
		name string
		opt  ClientOption
		want string
	}{
		{"default", nil, "/oddpub"},
		{"analyze", WithPath("/analyze"), "/analyze"},
		{"no leading slash", WithPath("analyze"), "/analyze"},
		{"empty keeps default", WithPath(""), "/oddpub"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				_, _ = io.WriteString(w, `{"article": "a.txt"}`)
			}))
			defer server.Close()

			opts := []ClientOption{WithRateLimit(0)}
			if tt.opt != nil {
				opts = append(opts, tt.opt)
			}
			_, err := NewClient(server.URL, opts...).Analyze(context.Background(), "a.pdf", strings.NewReader("%PDF"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, gotPath)
		})
	}
}

func TestClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "R session crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRateLimit(0))
	_, err := client.Analyze(context.Background(), "paper.pdf", strings.NewReader("x"))
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "R session crashed")
}

func TestClient_InvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>proxy error</html>")
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRateLimit(0))
	_, err := client.Analyze(context.Background(), "paper.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, WithRateLimit(0), WithTimeout(time.Second))
	_, err := client.Analyze(context.Background(), "paper.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNetworkError)
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", WithRateLimit(0.001))
	// Drain the single burst token.
	require.True(t, client.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Analyze(ctx, "paper.pdf", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}
