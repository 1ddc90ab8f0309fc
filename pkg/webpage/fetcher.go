// Package webpage fetches web pages and reduces them to visible text.
package webpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// userAgent mimics a desktop browser; many sites serve bots an empty shell.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 OPR/107.0.0.0"

const maxBodyBytes = 10 << 20 // 10 MiB

type Fetcher struct {
	hc *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		hc: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchText downloads the page at url and returns its visible text.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: unexpected status code %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading body of %s: %w", url, err)
	}

	return ExtractText(string(body)), nil
}
