// Package analyzer is a client for the ODDPub open-data detection service.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

const (
	// DefaultTimeout is the default HTTP request timeout. Text extraction on
	// large PDFs is slow.
	DefaultTimeout = 5 * time.Minute

	// DefaultRateLimit is requests per second sent to the service.
	DefaultRateLimit = 2.0

	// DefaultPath is the route the bundled oddpub service serves.
	DefaultPath = "/oddpub"
)

var (
	// ErrNetworkError indicates the service could not be reached.
	ErrNetworkError = errors.New("network error communicating with analyzer")

	// ErrInvalidResponse indicates the service answered with a body that is not a result.
	ErrInvalidResponse = errors.New("invalid response from analyzer")
)

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("analyzer returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("analyzer returned status %d: %s", e.StatusCode, e.Body)
}

// Client is a rate-limited HTTP client for the ODDPub service.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	path       string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit sets the number of requests per second. Zero or less disables limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithPath sets the route files are posted to, e.g. /analyze. Empty keeps
// DefaultPath.
func WithPath(path string) ClientOption {
	return func(c *Client) {
		if path == "" {
			return
		}
		c.path = "/" + strings.TrimLeft(path, "/")
	}
}

// NewClient creates a client for the service at baseURL, e.g. http://localhost:8071.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       DefaultPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ paperledger.Analyzer = (*Client)(nil)

// Analyze uploads one PDF and decodes the indicators the service computed.
func (c *Client) Analyze(ctx context.Context, filename string, body io.Reader) (*paperledger.OddpubResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(filename))
		if err == nil {
			_, err = io.Copy(part, body)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var result paperledger.OddpubResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &result, nil
}
