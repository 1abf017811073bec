package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FetchTimeout bounds a single media retrieval.
const FetchTimeout = 120 * time.Second

// maxMediaBytes caps one download; provider MMS media is far smaller.
const maxMediaBytes = 32 << 20

// HTTPFetcher implements ports.MediaFetcher over plain HTTP GET.
type HTTPFetcher struct {
	httpClient *http.Client
}

// NewHTTPFetcher returns a fetcher with the media timeout applied.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{httpClient: &http.Client{Timeout: FetchTimeout}}
}

// Fetch downloads url. Non-200 responses return their status and no body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}
