package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/thedimas/gpt4-telegram-bot/pkg/domain"
	"github.com/thedimas/gpt4-telegram-bot/pkg/logger"
)

type TurnService interface {
	HandleTurn(ctx context.Context, session *domain.Session, prompt, imageURL string) (*domain.TurnResult, error)
}

type ChatService interface {
	SendGreeting(ctx context.Context, chatID int64)
	SendHelp(ctx context.Context, chatID int64)
	SendResetConfirmation(ctx context.Context, chatID int64)
	SendChats(ctx context.Context, chatID, userID int64, page int)
	SendChatInfo(ctx context.Context, chatID, userID, chatUID int64)
	LoadChat(ctx context.Context, chatID, userID, chatUID int64) (domain.Chat, error)
	DeleteChat(ctx context.Context, chatID, userID, chatUID int64)
	SendModels(ctx context.Context, chatID int64)
	SetModel(ctx context.Context, chatID int64, modelRaw string)
}

type ToolRunner interface {
	Execute(ctx context.Context, chatID int64, call domain.ToolCall) domain.ToolResult
}

type FileResolver interface {
	FileURL(fileID string) (string, error)
}

type handler struct {
	turnService TurnService
	chatService ChatService
	tools       ToolRunner
	files       FileResolver
	responseCh  chan<- domain.Response

	mu       sync.Mutex
	sessions map[int64]*domain.Session
}

func NewHandler(
	turnService TurnService,
	chatService ChatService,
	tools ToolRunner,
	files FileResolver,
	responseCh chan<- domain.Response,
) *handler {
	return &handler{
		turnService: turnService,
		chatService: chatService,
		tools:       tools,
		files:       files,
		responseCh:  responseCh,
		sessions:    map[int64]*domain.Session{},
	}
}

func (h *handler) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)

	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *handler) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID
	data := callback.Data

	switch {
	case strings.HasPrefix(data, domain.SetModelCallbackPrefix):
		h.chatService.SetModel(ctx, chatID, data)

	case strings.HasPrefix(data, domain.ChatPageCallbackPrefix):
		page, err := strconv.Atoi(strings.TrimPrefix(data, domain.ChatPageCallbackPrefix))
		if err != nil {
			slog.WarnContext(ctx, "Malformed page callback", "data", data)
			return
		}
		h.chatService.SendChats(ctx, chatID, userID, page)

	case strings.HasPrefix(data, domain.ChatInfoCallbackPrefix):
		if uid, ok := parseChatUID(ctx, data, domain.ChatInfoCallbackPrefix); ok {
			h.chatService.SendChatInfo(ctx, chatID, userID, uid)
		}

	case strings.HasPrefix(data, domain.LoadChatCallbackPrefix):
		uid, ok := parseChatUID(ctx, data, domain.LoadChatCallbackPrefix)
		if !ok {
			return
		}
		if _, err := h.chatService.LoadChat(ctx, chatID, userID, uid); err == nil {
			h.session(userID).ChatUID = uid
		}

	case strings.HasPrefix(data, domain.DeleteChatCallbackPrefix):
		uid, ok := parseChatUID(ctx, data, domain.DeleteChatCallbackPrefix)
		if !ok {
			return
		}
		h.chatService.DeleteChat(ctx, chatID, userID, uid)
		if session := h.session(userID); session.ChatUID == uid {
			session.ChatUID = -1
		}

	case data == domain.NoopCallback:
		// page indicator button, nothing to do

	default:
		slog.WarnContext(ctx, "Unhandled callback", "data", data)
	}
}

func (h *handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch {
	case msg.Photo != nil:
		fileID := msg.Photo[len(msg.Photo)-1].FileID
		imageURL, err := h.files.FileURL(fileID)
		if err != nil {
			h.responseCh <- domain.Response{ChatID: chatID, Err: fmt.Errorf("resolving photo: %w", err)}
			return
		}
		h.runTurn(ctx, chatID, userID, msg.Caption, imageURL)

	case isCommand(msg.Text):
		h.handleCommand(ctx, chatID, userID, msg.Text)

	default:
		h.runTurn(ctx, chatID, userID, msg.Text, "")
	}
}

func (h *handler) handleCommand(ctx context.Context, chatID, userID int64, text string) {
	fields := strings.Fields(strings.TrimSpace(text))
	// only the command word is case-insensitive, arguments keep their casing
	cmd := strings.ToLower(strings.Split(fields[0], "@")[0])
	args := fields[1:]

	switch cmd {
	case "/start":
		h.chatService.SendGreeting(ctx, chatID)

	case "/help":
		h.chatService.SendHelp(ctx, chatID)

	case "/reset":
		h.session(userID).ChatUID = -1
		h.chatService.SendResetConfirmation(ctx, chatID)

	case "/chats":
		h.chatService.SendChats(ctx, chatID, userID, 1)

	case "/model":
		h.chatService.SendModels(ctx, chatID)

	case "/askweb":
		h.runAskWebpage(ctx, chatID, args)

	default:
		slog.WarnContext(ctx, "Unhandled command", "cmd", cmd)
	}
}

// runAskWebpage answers a question about one page directly, without a model
// round deciding to call the tool first.
func (h *handler) runAskWebpage(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		h.responseCh <- domain.Response{ChatID: chatID, Text: "Usage: /askweb <url> <prompt>"}
		return
	}

	payload, err := json.Marshal(map[string]string{
		"url":    args[0],
		"prompt": strings.Join(args[1:], " "),
	})
	if err != nil {
		h.responseCh <- domain.Response{ChatID: chatID, Err: fmt.Errorf("encoding arguments: %w", err)}
		return
	}

	result := h.tools.Execute(ctx, chatID, domain.ToolCall{
		ID:   "askweb_command",
		Type: "function",
		Function: domain.FunctionCall{
			Name:      "ask_webpage",
			Arguments: string(payload),
		},
	})
	h.responseCh <- domain.Response{ChatID: chatID, Text: result.Content}
}

func (h *handler) runTurn(ctx context.Context, chatID, userID int64, prompt, imageURL string) {
	if prompt == "" && imageURL == "" {
		return
	}
	if prompt == "" {
		prompt = "Describe this image."
	}

	session := h.session(userID)
	session.ChatID = chatID

	result, err := h.turnService.HandleTurn(ctx, session, prompt, imageURL)
	if err != nil {
		slog.ErrorContext(ctx, "Turn failed", "chatID", chatID, "userID", userID, logger.Err(err))
		h.responseCh <- domain.Response{ChatID: chatID, Err: err}
		return
	}

	for _, segment := range result.Segments {
		h.responseCh <- domain.Response{ChatID: chatID, Text: segment}
	}
	if len(result.SourceURLs) > 0 {
		h.responseCh <- domain.Response{ChatID: chatID, Text: formatSources(result.SourceURLs)}
	}
	if len(result.ImageURLs) > 0 {
		h.responseCh <- domain.Response{ChatID: chatID, ImageURLs: result.ImageURLs}
	}
	h.responseCh <- domain.Response{ChatID: chatID, Text: formatUsage(result.Usage, result.Price)}
}

// session returns the user's session, creating one with no chat selected
// on first contact.
func (h *handler) session(userID int64) *domain.Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[userID]
	if !ok {
		session = &domain.Session{UserID: userID, ChatUID: -1}
		h.sessions[userID] = session
	}
	return session
}

func parseChatUID(ctx context.Context, data, prefix string) (int64, bool) {
	uid, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		slog.WarnContext(ctx, "Malformed chat callback", "data", data)
		return 0, false
	}
	return uid, true
}

func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

func formatSources(urls []string) string {
	var sb strings.Builder
	sb.WriteString("🔗 Sources:")
	for _, url := range urls {
		sb.WriteString("\n")
		sb.WriteString(url)
	}
	return sb.String()
}

func formatUsage(usage domain.Usage, price float64) string {
	return fmt.Sprintf("📊 Used tokens: %d (%d prompt, %d completion)\n💸 Price: $%.2f",
		usage.TotalTokens, usage.PromptTokens, usage.CompletionTokens, price)
}
