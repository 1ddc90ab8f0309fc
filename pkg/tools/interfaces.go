package tools

import (
	"context"

	"github.com/thedimas/gpt4-telegram-bot/pkg/domain"
	"github.com/thedimas/gpt4-telegram-bot/pkg/openai"
	googlesearch "github.com/thedimas/gpt4-telegram-bot/pkg/search"
)

type PageFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, model string, messages []domain.Message, tools []openai.Tool) (*openai.Completion, error)
}

type SearchClient interface {
	Search(ctx context.Context, query string, page int) ([]googlesearch.Result, error)
}

type KnowledgeClient interface {
	Query(ctx context.Context, input string) (string, error)
}
