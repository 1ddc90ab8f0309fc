package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai/jsonschema"
)

type wolfram struct {
	client KnowledgeClient
}

func NewWolfram(client KnowledgeClient) *wolfram {
	return &wolfram{client: client}
}

func (w *wolfram) Name() string {
	return "wolfram"
}

func (w *wolfram) Description() string {
	return "Ask WolframAlpha-powered GPT model the specified query"
}

func (w *wolfram) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"query": {
				Type:        jsonschema.String,
				Description: "The query that will be asked",
			},
		},
		Required: []string{"query"},
	}
}

func (w *wolfram) Function() any {
	return func(ctx context.Context, chatID int64, query string) (string, error) {
		slog.InfoContext(ctx, "Querying WolframAlpha", "query", query, "chatID", chatID)

		answer, err := w.client.Query(ctx, query)
		if err != nil {
			return "", fmt.Errorf("querying wolfram: %w", err)
		}
		return answer, nil
	}
}
