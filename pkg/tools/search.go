package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai/jsonschema"

	googlesearch "github.com/thedimas/gpt4-telegram-bot/pkg/search"
)

type search struct {
	client SearchClient
}

func NewSearch(client SearchClient) *search {
	return &search{client: client}
}

func (s *search) Name() string {
	return "search"
}

func (s *search) Description() string {
	return "Search a prompt online. Returns up to 10 results as a JSON array of objects with url and title. " +
		"Better send multiple prompts as separate messages at once. " +
		"Don't use it for general knowledge and obvious, basic questions"
}

func (s *search) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"query": {
				Type:        jsonschema.String,
				Description: "The query that will be searched",
			},
			"page": {
				Type:        jsonschema.Integer,
				Description: "Page of search results. Default: 1",
			},
		},
		Required: []string{"query"},
	}
}

func (s *search) Function() any {
	return func(ctx context.Context, chatID int64, query string, page int) (string, error) {
		if page < 1 {
			page = 1
		}

		slog.InfoContext(ctx, "Searching", "query", query, "page", page, "chatID", chatID)

		results, err := s.client.Search(ctx, query, page)
		if err != nil {
			return "", fmt.Errorf("searching %q: %w", query, err)
		}

		// zero hits is a valid answer, the model sees an empty array
		if results == nil {
			results = []googlesearch.Result{}
		}
		data, err := json.Marshal(results)
		if err != nil {
			return "", fmt.Errorf("marshaling search results: %w", err)
		}

		return string(data), nil
	}
}
