package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/mesh-intelligence/kennel/pkg/types"
)

// maxBodyBytes caps how much of a response body is read. The full breed
// list is a few hundred kilobytes.
const maxBodyBytes = 8 << 20

// apiKeyHeader carries the optional API key.
const apiKeyHeader = "x-api-key"

// getJSON issues a GET for url and returns the response body of a 2xx
// response. Any failure is returned as a *types.NetworkError. The request is
// bound to ctx, so a context deadline cancels it and releases the
// connection.
func (f *Fetcher) getJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.NetworkError{Kind: types.NetworkConnectionFailed, URL: url, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		req.Header.Set(apiKeyHeader, f.apiKey)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, classify(url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(url, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &types.NetworkError{
			Kind:       types.NetworkHTTPStatus,
			StatusCode: resp.StatusCode,
			URL:        url,
			Err:        errors.New(strings.TrimSpace(string(raw))),
		}
	}
	return raw, nil
}

// classify turns a transport error into a NetworkError, separating timeouts
// from other connection failures.
func classify(url string, err error) *types.NetworkError {
	var ne *types.NetworkError
	if errors.As(err, &ne) {
		return ne
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.NetworkError{Kind: types.NetworkTimeout, URL: url, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &types.NetworkError{Kind: types.NetworkTimeout, URL: url, Err: err}
	}
	return &types.NetworkError{Kind: types.NetworkConnectionFailed, URL: url, Err: err}
}
