// Package httpc provides a shared HTTP client with sensible defaults
// and helpers for fetching model artifacts.
package httpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout         = 60 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// MaxArtifactSize caps a single downloaded artifact (256MB).
const MaxArtifactSize int64 = 256 << 20

// ErrTooLarge is returned when a download exceeds its size limit.
var ErrTooLarge = errors.New("httpc: response exceeds size limit")

// Client is a shared HTTP client with production-ready defaults.
// Use this instead of http.DefaultClient.
var Client = NewClient(DefaultTimeout)

// NewClient creates a new HTTP client with the specified timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       DefaultIdleConnTimeout,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("httpc: GET %s: status %d", e.URL, e.StatusCode)
}

// Download fetches url with the shared client and returns the body.
// Bodies larger than limit fail with ErrTooLarge; limit <= 0 means MaxArtifactSize.
func Download(ctx context.Context, url string, limit int64) ([]byte, error) {
	return DownloadWith(ctx, Client, url, limit)
}

// DownloadWith is Download using a caller supplied client.
func DownloadWith(ctx context.Context, client *http.Client, url string, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = MaxArtifactSize
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpc: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpc: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	// Read one byte past the limit to detect oversize bodies
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("httpc: read %s: %w", url, err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
