package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thedimas/gpt4-telegram-bot/pkg/domain"
	"github.com/thedimas/gpt4-telegram-bot/pkg/openai"
	"github.com/thedimas/gpt4-telegram-bot/pkg/repository"
)

type scriptedLLM struct {
	completions []*openai.Completion
	calls       int
	models      []string
}

func (s *scriptedLLM) CreateChatCompletion(ctx context.Context, model string, messages []domain.Message, tools []openai.Tool) (*openai.Completion, error) {
	s.models = append(s.models, model)
	s.calls++
	if s.calls > len(s.completions) {
		// repeat the last scripted round, lets tests drive the round limit
		return s.completions[len(s.completions)-1], nil
	}
	return s.completions[s.calls-1], nil
}

func (s *scriptedLLM) CreateTitle(ctx context.Context, text string) (string, error) {
	return "Test chat", nil
}

type scriptedExecutor struct {
	results     map[string]domain.ToolResult
	resultsByID map[string]domain.ToolResult
	executed    []domain.ToolCall
}

func (s *scriptedExecutor) Tools() []openai.Tool { return nil }

func (s *scriptedExecutor) Execute(ctx context.Context, chatID int64, call domain.ToolCall) domain.ToolResult {
	s.executed = append(s.executed, call)
	if result, ok := s.resultsByID[call.ID]; ok {
		return result
	}
	if result, ok := s.results[call.Function.Name]; ok {
		return result
	}
	return domain.ToolResult{Content: "done"}
}

type noSettings struct{}

func (noSettings) Save(ctx context.Context, settings domain.Settings) error { return nil }
func (noSettings) GetByChatID(ctx context.Context, chatID int64) (*domain.Settings, error) {
	return nil, domain.ErrNotFound
}

func textCompletion(text string, usage domain.Usage) *openai.Completion {
	return &openai.Completion{
		Message: domain.NewAssistantMessage(text),
		Usage:   usage,
	}
}

func toolCompletion(usage domain.Usage, calls ...domain.ToolCall) *openai.Completion {
	return &openai.Completion{
		Message: domain.NewAssistantToolCallMessage(calls),
		Usage:   usage,
	}
}

func newTestRepo(t *testing.T) ChatRepository {
	t.Helper()
	repo, err := repository.NewChatRepository(filepath.Join(t.TempDir(), "chats.json"))
	require.NoError(t, err)
	return repo
}

func toolCall(id, name, args string) domain.ToolCall {
	return domain.ToolCall{
		ID:   id,
		Type: "function",
		Function: domain.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestTextService_ToolRoundThenAnswer(t *testing.T) {
	llm := &scriptedLLM{completions: []*openai.Completion{
		toolCompletion(domain.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
			toolCall("call_1", "search", `{"query":"weather"}`)),
		textCompletion("No results came up.", domain.Usage{PromptTokens: 150, CompletionTokens: 10, TotalTokens: 160}),
	}}
	executor := &scriptedExecutor{results: map[string]domain.ToolResult{
		"search": {Content: "[]"},
	}}
	repo := newTestRepo(t)

	svc := NewTextService(llm, repo, noSettings{}, executor, domain.DefaultCostTable(), 0, 0)

	session := &domain.Session{UserID: 42, ChatUID: -1}
	result, err := svc.HandleTurn(context.Background(), session, "what's the weather?", "")
	require.NoError(t, err)

	assert.Equal(t, result.ChatUID, session.ChatUID)
	require.NotEmpty(t, result.Segments)
	assert.Contains(t, result.Segments[0], "No results came up.")
	assert.Equal(t, domain.Usage{PromptTokens: 250, CompletionTokens: 30, TotalTokens: 280}, result.Usage)
	assert.Greater(t, result.Price, 0.0)

	messages, err := repo.GetMessages(result.ChatUID)
	require.NoError(t, err)
	require.Len(t, messages, 5)
	assert.Equal(t, domain.RoleSystem, messages[0].Role)
	assert.Equal(t, domain.RoleUser, messages[1].Role)
	assert.Equal(t, domain.RoleAssistant, messages[2].Role)
	require.Len(t, messages[2].ToolCalls, 1)
	assert.Equal(t, domain.RoleTool, messages[3].Role)
	assert.Equal(t, "call_1", messages[3].ToolCallID)
	assert.Equal(t, "[]", messages[3].Content)
	assert.Equal(t, domain.RoleAssistant, messages[4].Role)
}

func TestTextService_EmptyResponse(t *testing.T) {
	llm := &scriptedLLM{completions: []*openai.Completion{
		{Message: domain.Message{Role: domain.RoleAssistant}},
	}}
	repo := newTestRepo(t)

	svc := NewTextService(llm, repo, noSettings{}, &scriptedExecutor{}, domain.DefaultCostTable(), 0, 0)

	session := &domain.Session{UserID: 42, ChatUID: -1}
	_, err := svc.HandleTurn(context.Background(), session, "hello", "")
	require.ErrorIs(t, err, domain.ErrEmptyResponse)

	// nothing past the user message is recorded for a failed turn
	chats, err := repo.GetChats(42)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	messages := chats[0].Messages
	require.Len(t, messages, 2)
	assert.Equal(t, domain.RoleSystem, messages[0].Role)
	assert.Equal(t, domain.RoleUser, messages[1].Role)
}

func TestTextService_MultipleToolCallsInOrder(t *testing.T) {
	llm := &scriptedLLM{completions: []*openai.Completion{
		toolCompletion(domain.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			toolCall("call_1", "search", `{"query":"gophers"}`),
			toolCall("call_2", "add_image", `{"url":"https://example.com/gopher.png"}`),
		),
		textCompletion("Here you go.", domain.Usage{PromptTokens: 20, CompletionTokens: 5, TotalTokens: 25}),
	}}
	executor := &scriptedExecutor{results: map[string]domain.ToolResult{
		"search":    {Content: `[{"title":"Gophers","url":"https://example.com"}]`, SourceURL: "https://example.com"},
		"add_image": {Content: "Image added successfully", ImageURL: "https://example.com/gopher.png"},
	}}
	repo := newTestRepo(t)

	svc := NewTextService(llm, repo, noSettings{}, executor, domain.DefaultCostTable(), 0, 0)

	session := &domain.Session{UserID: 7, ChatUID: -1}
	result, err := svc.HandleTurn(context.Background(), session, "show me a gopher", "")
	require.NoError(t, err)

	require.Len(t, executor.executed, 2)
	assert.Equal(t, "search", executor.executed[0].Function.Name)
	assert.Equal(t, "add_image", executor.executed[1].Function.Name)

	assert.Equal(t, []string{"https://example.com/gopher.png"}, result.ImageURLs)
	assert.Equal(t, []string{"https://example.com"}, result.SourceURLs)

	messages, err := repo.GetMessages(result.ChatUID)
	require.NoError(t, err)
	require.Len(t, messages, 6)
	assert.Equal(t, "call_1", messages[3].ToolCallID)
	assert.Equal(t, "call_2", messages[4].ToolCallID)
}

func TestTextService_RoundLimit(t *testing.T) {
	llm := &scriptedLLM{completions: []*openai.Completion{
		toolCompletion(domain.Usage{TotalTokens: 1}, toolCall("call_1", "search", `{"query":"loop"}`)),
	}}
	repo := newTestRepo(t)

	svc := NewTextService(llm, repo, noSettings{}, &scriptedExecutor{}, domain.DefaultCostTable(), 3, 0)

	session := &domain.Session{UserID: 1, ChatUID: -1}
	_, err := svc.HandleTurn(context.Background(), session, "loop forever", "")
	require.ErrorIs(t, err, domain.ErrMaxRoundsExceeded)
	assert.Equal(t, 3, llm.calls)
}

func TestTextService_ReusesSelectedChat(t *testing.T) {
	llm := &scriptedLLM{completions: []*openai.Completion{
		textCompletion("first", domain.Usage{TotalTokens: 1}),
		textCompletion("second", domain.Usage{TotalTokens: 1}),
	}}
	repo := newTestRepo(t)

	svc := NewTextService(llm, repo, noSettings{}, &scriptedExecutor{}, domain.DefaultCostTable(), 0, 0)

	session := &domain.Session{UserID: 1, ChatUID: -1}
	first, err := svc.HandleTurn(context.Background(), session, "hello", "")
	require.NoError(t, err)

	second, err := svc.HandleTurn(context.Background(), session, "and again", "")
	require.NoError(t, err)
	assert.Equal(t, first.ChatUID, second.ChatUID)

	messages, err := repo.GetMessages(second.ChatUID)
	require.NoError(t, err)
	require.Len(t, messages, 5) // system, user, assistant, user, assistant
}

func TestTextService_ImageCap(t *testing.T) {
	state := &turnState{}
	for i := 0; i < maxImagesPerTurn+5; i++ {
		state.addImage(context.Background(), "https://example.com/img.png")
	}
	assert.Len(t, state.images, maxImagesPerTurn)
}

func TestTextService_SourceDeduplication(t *testing.T) {
	state := &turnState{}
	state.addSource("https://a.example")
	state.addSource("https://b.example")
	state.addSource("https://a.example")
	state.addSource("")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, state.sources)
}

func TestTextService_TitleFailureFailsTurn(t *testing.T) {
	llm := &failingTitleLLM{}
	repo := newTestRepo(t)

	svc := NewTextService(llm, repo, noSettings{}, &scriptedExecutor{}, domain.DefaultCostTable(), 0, 0)

	session := &domain.Session{UserID: 1, ChatUID: -1}
	_, err := svc.HandleTurn(context.Background(), session, "hello", "")
	require.Error(t, err)

	chats, err := repo.GetChats(1)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

type failingTitleLLM struct{}

func (failingTitleLLM) CreateChatCompletion(ctx context.Context, model string, messages []domain.Message, tools []openai.Tool) (*openai.Completion, error) {
	return nil, errors.New("unreachable")
}

func (failingTitleLLM) CreateTitle(ctx context.Context, text string) (string, error) {
	return "", errors.New("title model unavailable")
}

func TestTextService_UsesSelectedModel(t *testing.T) {
	llm := &scriptedLLM{completions: []*openai.Completion{
		textCompletion("done", domain.Usage{TotalTokens: 1}),
	}}
	store := newSettingsStore()
	store.saved[100] = domain.Settings{ChatID: 100, Model: "gpt-4-turbo", Premium: true}
	repo := newTestRepo(t)

	svc := NewTextService(llm, repo, store, &scriptedExecutor{}, domain.DefaultCostTable(), 0, 0)

	// the telegram chat differs from the user, like any group chat
	session := &domain.Session{UserID: 42, ChatID: 100, ChatUID: -1}
	_, err := svc.HandleTurn(context.Background(), session, "hello", "")
	require.NoError(t, err)

	require.Len(t, llm.models, 1)
	assert.Equal(t, "gpt-4-turbo", llm.models[0])
}

func TestTextService_DefaultModelWithoutSettings(t *testing.T) {
	llm := &scriptedLLM{completions: []*openai.Completion{
		textCompletion("done", domain.Usage{TotalTokens: 1}),
	}}
	repo := newTestRepo(t)

	svc := NewTextService(llm, repo, noSettings{}, &scriptedExecutor{}, domain.DefaultCostTable(), 0, 0)

	session := &domain.Session{UserID: 42, ChatID: 100, ChatUID: -1}
	_, err := svc.HandleTurn(context.Background(), session, "hello", "")
	require.NoError(t, err)

	require.Len(t, llm.models, 1)
	assert.Equal(t, domain.DefaultModel, llm.models[0])
}

func TestTextService_TwoImagesInOneRound(t *testing.T) {
	llm := &scriptedLLM{completions: []*openai.Completion{
		toolCompletion(domain.Usage{TotalTokens: 10},
			toolCall("call_1", "add_image", `{"url":"https://example.com/first.png"}`),
			toolCall("call_2", "add_image", `{"url":"https://example.com/second.png"}`),
		),
		textCompletion("Two pictures attached.", domain.Usage{TotalTokens: 5}),
	}}
	executor := &scriptedExecutor{resultsByID: map[string]domain.ToolResult{
		"call_1": {Content: "Image added successfully", ImageURL: "https://example.com/first.png"},
		"call_2": {Content: "Image added successfully", ImageURL: "https://example.com/second.png"},
	}}
	repo := newTestRepo(t)

	svc := NewTextService(llm, repo, noSettings{}, executor, domain.DefaultCostTable(), 0, 0)

	session := &domain.Session{UserID: 7, ChatUID: -1}
	result, err := svc.HandleTurn(context.Background(), session, "two gophers please", "")
	require.NoError(t, err)

	// both attachments survive, in call order
	assert.Equal(t, []string{
		"https://example.com/first.png",
		"https://example.com/second.png",
	}, result.ImageURLs)

	messages, err := repo.GetMessages(result.ChatUID)
	require.NoError(t, err)
	require.Len(t, messages, 6)
	assert.Equal(t, "call_1", messages[3].ToolCallID)
	assert.Equal(t, "call_2", messages[4].ToolCallID)
}
