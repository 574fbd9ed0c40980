package shell

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// BypassHeader marks requests made by the cache itself so the middleware
// passes them straight to the real handler
const BypassHeader = "X-Shell-Bypass"

// maxAssetSize caps how much of one response is kept
const maxAssetSize = 16 << 20

// HTTPNetwork fetches assets over HTTP
type HTTPNetwork struct {
	client *http.Client
}

func NewHTTPNetwork(timeout time.Duration) *HTTPNetwork {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPNetwork{client: &http.Client{Timeout: timeout}}
}

func (n *HTTPNetwork) Fetch(ctx context.Context, method, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(BypassHeader, "1")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
