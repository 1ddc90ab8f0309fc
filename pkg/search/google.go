// Package search wraps the Google Custom Search JSON API.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://content-customsearch.googleapis.com/customsearch/v1"

// Result is a single search hit.
type Result struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Client struct {
	engineID string
	apiKey   string
	baseURL  string
	hc       *http.Client
}

func NewClient(engineID, apiKey string) *Client {
	return &Client{
		engineID: engineID,
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		hc:       &http.Client{Timeout: 15 * time.Second},
	}
}

type googleResponse struct {
	Items []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"items"`
}

// Search returns up to 10 results for the given page (1-based). A query
// with no hits yields an empty slice, not an error.
func (c *Client) Search(ctx context.Context, query string, page int) ([]Result, error) {
	if page < 1 {
		page = 1
	}

	params := url.Values{
		"cx":    {c.engineID},
		"key":   {c.apiKey},
		"q":     {query},
		"start": {strconv.Itoa((page-1)*10 + 1)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("searching %q: status %d: %s", query, resp.StatusCode, string(body))
	}

	var gr googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := make([]Result, 0, len(gr.Items))
	for _, item := range gr.Items {
		results = append(results, Result{Title: item.Title, URL: item.Link})
	}
	return results, nil
}
