package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client speaks the server's JSON API.
type Client struct {
	baseURL string
	client  *http.Client
	verbose bool
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithVerbose logs each request with its status and duration to stderr.
func WithVerbose(v bool) Option {
	return func(c *Client) {
		c.verbose = v
	}
}

// NewClient creates a client for the given server address. A bare
// host:port gets an http:// scheme.
func NewClient(server string, opts ...Option) *Client {
	baseURL := server
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	return c.do(req)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req)
}

// Download streams a raw (non-envelope) response body, such as a CSV
// export, to w. Error responses still arrive as JSON envelopes and are
// mapped the same way as ParseResponse.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, responseError(resp)
	}

	return io.Copy(w, resp.Body)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	if c.verbose {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			fmt.Fprintf(os.Stderr, "> %s %s failed after %s: %v\n", req.Method, req.URL.Path, elapsed, err)
		} else {
			fmt.Fprintf(os.Stderr, "> %s %s -> %d (%s)\n", req.Method, req.URL.Path, resp.StatusCode, elapsed)
		}
	}
	return resp, err
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "rollcall-cli/1.0")
}

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Details   string          `json:"details"`
	Data      json.RawMessage `json:"data"`
}

// ParseResponse unwraps the server's JSON envelope. Error statuses
// become "[CODE] message" errors; on success the envelope's data field
// is decoded into target (which may be nil when no payload is wanted).
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}

	if target == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("response carried no data")
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("parse response data: %w", err)
	}
	return nil
}

// responseError extracts the error envelope from a failed response.
func responseError(resp *http.Response) error {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Message != "" {
		if env.Details != "" {
			return fmt.Errorf("[%s] %s: %s", env.Code, env.Message, env.Details)
		}
		return fmt.Errorf("[%s] %s", env.Code, env.Message)
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}
