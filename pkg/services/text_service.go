package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/thedimas/gpt4-telegram-bot/pkg/domain"
	"github.com/thedimas/gpt4-telegram-bot/pkg/markdown"
	"github.com/thedimas/gpt4-telegram-bot/pkg/openai"
)

// systemPrompt seeds every new chat as its first message.
const systemPrompt = "You are a helpful assistant. Answer concisely and use the " +
	"available tools when the user's request needs fresh information, " +
	"calculations or web content. Format answers in Markdown."

// DefaultMaxToolRounds bounds how many consecutive tool-calling rounds a
// single user turn may trigger before the turn is aborted.
const DefaultMaxToolRounds = 10

// maxImagesPerTurn caps how many tool-attached images a single answer may
// carry, matching the Telegram media group limit.
const maxImagesPerTurn = 10

type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, model string, messages []domain.Message, tools []openai.Tool) (*openai.Completion, error)
	CreateTitle(ctx context.Context, text string) (string, error)
}

type ChatRepository interface {
	CreateChat(owner int64, title string) (domain.Chat, error)
	GetChat(uid int64) (domain.Chat, error)
	GetChats(owner int64) ([]domain.Chat, error)
	DeleteChat(uid int64) error
	AppendMessage(chatUID int64, message domain.Message) error
	GetMessages(chatUID int64) ([]domain.Message, error)
}

type SettingsRepository interface {
	Save(ctx context.Context, settings domain.Settings) error
	GetByChatID(ctx context.Context, chatID int64) (*domain.Settings, error)
}

type ToolExecutor interface {
	Tools() []openai.Tool
	Execute(ctx context.Context, chatID int64, call domain.ToolCall) domain.ToolResult
}

type textService struct {
	llm          OpenAIClient
	chatRepo     ChatRepository
	settingsRepo SettingsRepository
	tools        ToolExecutor
	costs        domain.CostTable
	maxRounds    int
	chunkSize    int

	mu        sync.Mutex
	chatLocks map[int64]*sync.Mutex
}

func NewTextService(
	llm OpenAIClient,
	chatRepo ChatRepository,
	settingsRepo SettingsRepository,
	tools ToolExecutor,
	costs domain.CostTable,
	maxRounds int,
	chunkSize int,
) *textService {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}
	if chunkSize <= 0 {
		chunkSize = markdown.DefaultChunkSize
	}
	return &textService{
		llm:          llm,
		chatRepo:     chatRepo,
		settingsRepo: settingsRepo,
		tools:        tools,
		costs:        costs,
		maxRounds:    maxRounds,
		chunkSize:    chunkSize,
		chatLocks:    map[int64]*sync.Mutex{},
	}
}

// turnState accumulates what the tool rounds of a single turn produce.
type turnState struct {
	usage   domain.Usage
	images  []string
	sources []string
}

func (s *turnState) addImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if len(s.images) >= maxImagesPerTurn {
		slog.WarnContext(ctx, "Image limit reached, dropping image", "url", url)
		return
	}
	s.images = append(s.images, url)
}

func (s *turnState) addSource(url string) {
	if url == "" {
		return
	}
	for _, known := range s.sources {
		if known == url {
			return
		}
	}
	s.sources = append(s.sources, url)
}

// HandleTurn runs one full user turn: it resolves or creates the session's
// chat, appends the user message and keeps requesting completions until the
// model answers with text, executing any tool calls in between. On success
// the session points at the chat the turn ran in.
func (t *textService) HandleTurn(ctx context.Context, session *domain.Session, prompt, imageURL string) (*domain.TurnResult, error) {
	chatUID, err := t.resolveChat(ctx, session, prompt)
	if err != nil {
		return nil, err
	}

	lock := t.lockFor(chatUID)
	lock.Lock()
	defer lock.Unlock()

	userMessage := domain.NewUserMessage(prompt)
	if imageURL != "" {
		userMessage = domain.NewUserImageMessage(prompt, imageURL)
	}
	if err := t.chatRepo.AppendMessage(chatUID, userMessage); err != nil {
		return nil, fmt.Errorf("appending user message: %w", err)
	}

	model := t.modelFor(ctx, session.ChatID)

	state := &turnState{}
	answer, err := t.generate(ctx, chatUID, model, state, 0)
	if err != nil {
		return nil, err
	}

	price, err := t.costs.Price(model, state.usage.PromptTokens, state.usage.CompletionTokens)
	if err != nil {
		slog.WarnContext(ctx, "Unable to price turn", "model", model, "err", err)
	}

	session.ChatUID = chatUID

	return &domain.TurnResult{
		ChatUID:    chatUID,
		Segments:   markdown.Chunk(markdown.ToTelegramHTML(answer), t.chunkSize),
		ImageURLs:  state.images,
		SourceURLs: state.sources,
		Usage:      state.usage,
		Price:      price,
	}, nil
}

// generate performs one model round. Text answers terminate the turn, tool
// calls are executed in order with their results appended pairwise before
// recursing into the next round.
func (t *textService) generate(ctx context.Context, chatUID int64, model string, state *turnState, depth int) (string, error) {
	if depth >= t.maxRounds {
		return "", fmt.Errorf("after %d tool rounds: %w", t.maxRounds, domain.ErrMaxRoundsExceeded)
	}

	messages, err := t.chatRepo.GetMessages(chatUID)
	if err != nil {
		return "", fmt.Errorf("loading chat history: %w", err)
	}

	completion, err := t.llm.CreateChatCompletion(ctx, model, messages, t.tools.Tools())
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}
	state.usage.Add(completion.Usage)

	message := completion.Message
	switch {
	case message.TextContent() != "":
		if err := t.chatRepo.AppendMessage(chatUID, domain.NewAssistantMessage(message.TextContent())); err != nil {
			return "", fmt.Errorf("appending assistant message: %w", err)
		}
		return message.TextContent(), nil

	case message.HasToolCalls():
		if err := t.chatRepo.AppendMessage(chatUID, domain.NewAssistantToolCallMessage(message.ToolCalls)); err != nil {
			return "", fmt.Errorf("appending tool call message: %w", err)
		}
		for _, call := range message.ToolCalls {
			slog.InfoContext(ctx, "Executing tool call",
				"tool", call.Function.Name, "args", call.Function.Arguments, "chatUID", chatUID, "round", depth)

			result := t.tools.Execute(ctx, chatUID, call)

			if err := t.chatRepo.AppendMessage(chatUID, domain.NewToolMessage(call.ID, call.Function.Name, result.Content)); err != nil {
				return "", fmt.Errorf("appending tool result: %w", err)
			}
			state.addSource(result.SourceURL)
			state.addImage(ctx, result.ImageURL)
		}
		return t.generate(ctx, chatUID, model, state, depth+1)

	default:
		return "", domain.ErrEmptyResponse
	}
}

func (t *textService) resolveChat(ctx context.Context, session *domain.Session, prompt string) (int64, error) {
	if session.ChatUID >= 0 {
		if _, err := t.chatRepo.GetChat(session.ChatUID); err == nil {
			return session.ChatUID, nil
		}
		// the selected chat is gone, fall through and start a fresh one
		slog.WarnContext(ctx, "Selected chat no longer exists", "chatUID", session.ChatUID)
	}

	title, err := t.llm.CreateTitle(ctx, prompt)
	if err != nil {
		return 0, fmt.Errorf("creating chat title: %w", err)
	}

	chat, err := t.chatRepo.CreateChat(session.UserID, title)
	if err != nil {
		return 0, fmt.Errorf("creating chat: %w", err)
	}

	if err := t.chatRepo.AppendMessage(chat.UID, domain.NewSystemMessage(systemPrompt)); err != nil {
		return 0, fmt.Errorf("appending system message: %w", err)
	}

	return chat.UID, nil
}

func (t *textService) modelFor(ctx context.Context, chatID int64) string {
	settings, err := t.settingsRepo.GetByChatID(ctx, chatID)
	if err != nil {
		return domain.DefaultModel
	}
	return settings.Model
}

func (t *textService) lockFor(chatUID int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.chatLocks[chatUID]
	if !ok {
		lock = &sync.Mutex{}
		t.chatLocks[chatUID] = lock
	}
	return lock
}
