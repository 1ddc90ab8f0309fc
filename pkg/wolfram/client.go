// Package wolfram wraps the WolframAlpha LLM API.
package wolfram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.wolframalpha.com/v1/llm-api"

type Client struct {
	appID   string
	baseURL string
	hc      *http.Client
}

func NewClient(appID string) *Client {
	return &Client{
		appID:   appID,
		baseURL: defaultBaseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Query sends input to WolframAlpha and returns the plaintext answer.
// The LLM API answers 501 for queries it cannot interpret; that body is
// still a usable textual explanation, so it is returned as the answer.
func (c *Client) Query(ctx context.Context, input string) (string, error) {
	params := url.Values{
		"appid":  {c.appID},
		"output": {"plaintext"},
		"input":  {input},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("querying wolfram: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading wolfram response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotImplemented {
		return "", fmt.Errorf("querying wolfram: status %d: %s", resp.StatusCode, string(body))
	}

	return string(body), nil
}
