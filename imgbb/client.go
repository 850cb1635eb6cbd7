// Package imgbb uploads images to the ImgBB hosting API.
package imgbb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://api.imgbb.com/1/upload"
	DefaultTimeout  = 60 * time.Second
)

// StatusError reports an upload the API did not accept: a non-200 status,
// or a 200 whose body lacks the success flag.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("imgbb rejected upload with status %d", e.StatusCode)
}

// Image is the hosted image as described by a successful upload response.
type Image struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	DisplayURL string `json:"display_url"`
	DeleteURL  string `json:"delete_url"`
}

type uploadResponse struct {
	Success bool  `json:"success"`
	Status  int   `json:"status"`
	Data    Image `json:"data"`
}

// Client posts images to a single ImgBB endpoint with one API key.
type Client struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
	timeout    time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithEndpoint overrides the upload URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithTimeout bounds each upload request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a client for the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload sends one image and returns its hosted URL. It makes exactly one
// request; callers decide what a failure means.
func (c *Client) Upload(ctx context.Context, filename string, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	formData := url.Values{}
	formData.Set("key", c.apiKey)
	formData.Set("image", base64.StdEncoding.EncodeToString(image))
	formData.Set("name", filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(formData.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("imgbb request failed", "filename", filename, "error", err)
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused by the next upload in the batch.
		_, _ = io.Copy(io.Discard, resp.Body)
		slog.Warn("imgbb returned non-200", "filename", filename, "status", resp.StatusCode)
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	var body uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}

	if !body.Success {
		slog.Warn("imgbb response missing success flag", "filename", filename, "status", resp.StatusCode)
		return "", &StatusError{StatusCode: resp.StatusCode}
	}
	if body.Data.URL == "" {
		return "", errors.New("upload response has no image url")
	}

	slog.Debug("imgbb upload accepted", "filename", filename, "id", body.Data.ID, "url", body.Data.URL)
	return body.Data.URL, nil
}
