package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/thedimas/gpt4-telegram-bot/pkg/domain"
)

// chatsPerPage is how many saved chats one keyboard page lists.
const chatsPerPage = 5

type chatService struct {
	chatRepo        ChatRepository
	settingsRepo    SettingsRepository
	supportedModels []string
	costs           domain.CostTable
	responseCh      chan<- domain.Response
}

func NewChatService(
	chatRepo ChatRepository,
	settingsRepo SettingsRepository,
	supportedModels []string,
	costs domain.CostTable,
	responseCh chan<- domain.Response,
) *chatService {
	return &chatService{
		chatRepo:        chatRepo,
		settingsRepo:    settingsRepo,
		supportedModels: supportedModels,
		costs:           costs,
		responseCh:      responseCh,
	}
}

func (c *chatService) SendGreeting(ctx context.Context, chatID int64) {
	c.responseCh <- domain.Response{
		ChatID: chatID,
		Text: "👋 Hi! Send me a message and I will answer using GPT.\n" +
			"I can browse web pages, search the web and query WolframAlpha along the way.\n\n" +
			"Use /help to see all commands.",
	}
}

func (c *chatService) SendHelp(ctx context.Context, chatID int64) {
	c.responseCh <- domain.Response{
		ChatID: chatID,
		Text: "Commands:\n" +
			"/reset — start a new chat\n" +
			"/chats — list saved chats\n" +
			"/model — choose the model\n" +
			"/askweb <url> <prompt> — ask about a web page\n" +
			"/help — this message",
	}
}

func (c *chatService) SendResetConfirmation(ctx context.Context, chatID int64) {
	c.responseCh <- domain.Response{
		ChatID: chatID,
		Text:   "🧹 Chat reset! Your next message starts a new chat. 🚀",
	}
}

// SendChats lists the user's saved chats, newest first, one keyboard page
// at a time with a navigation row underneath.
func (c *chatService) SendChats(ctx context.Context, chatID, userID int64, page int) {
	chats, err := c.chatRepo.GetChats(userID)
	if err != nil {
		c.responseCh <- domain.Response{ChatID: chatID, Err: fmt.Errorf("listing chats: %w", err)}
		return
	}
	if len(chats) == 0 {
		c.responseCh <- domain.Response{ChatID: chatID, Text: "You have no saved chats yet."}
		return
	}

	// newest first
	for i, j := 0, len(chats)-1; i < j; i, j = i+1, j-1 {
		chats[i], chats[j] = chats[j], chats[i]
	}

	pages := (len(chats) + chatsPerPage - 1) / chatsPerPage
	page = min(max(page, 1), pages)

	start := (page - 1) * chatsPerPage
	end := min(start+chatsPerPage, len(chats))

	var rows [][]domain.Button
	for _, chat := range chats[start:end] {
		rows = append(rows, []domain.Button{{
			Label: chat.Title,
			Data:  domain.ChatInfoCallbackPrefix + strconv.FormatInt(chat.UID, 10),
		}})
	}
	rows = append(rows, []domain.Button{
		{Label: "«", Data: pageCallback(page - 1)},
		{Label: fmt.Sprintf("%d/%d", page, pages), Data: domain.NoopCallback},
		{Label: "»", Data: pageCallback(page + 1)},
	})

	c.responseCh <- domain.Response{
		ChatID: chatID,
		Keyboard: &domain.Keyboard{
			Title: "💬 Your chats:",
			Rows:  rows,
		},
	}
}

func pageCallback(page int) string {
	if page < 1 {
		return domain.NoopCallback
	}
	return domain.ChatPageCallbackPrefix + strconv.Itoa(page)
}

// SendChatInfo shows one chat's details with load and delete actions.
func (c *chatService) SendChatInfo(ctx context.Context, chatID, userID, chatUID int64) {
	chat, err := c.getOwnedChat(userID, chatUID)
	if err != nil {
		c.responseCh <- domain.Response{ChatID: chatID, Err: err}
		return
	}

	uid := strconv.FormatInt(chat.UID, 10)
	c.responseCh <- domain.Response{
		ChatID: chatID,
		Keyboard: &domain.Keyboard{
			Title: fmt.Sprintf("💬 %s\nMessages: %d\nCreated: %s",
				chat.Title,
				len(chat.Messages),
				time.Unix(chat.CreatedAt, 0).UTC().Format("2006-01-02 15:04"),
			),
			Rows: [][]domain.Button{
				{
					{Label: "📂 Load", Data: domain.LoadChatCallbackPrefix + uid},
					{Label: "🗑 Delete", Data: domain.DeleteChatCallbackPrefix + uid},
				},
			},
		},
	}
}

// LoadChat verifies the chat exists and belongs to the user, confirms to
// the user and returns it so the caller can point the session at it.
func (c *chatService) LoadChat(ctx context.Context, chatID, userID, chatUID int64) (domain.Chat, error) {
	chat, err := c.getOwnedChat(userID, chatUID)
	if err != nil {
		c.responseCh <- domain.Response{ChatID: chatID, Err: err}
		return domain.Chat{}, err
	}

	c.responseCh <- domain.Response{
		ChatID: chatID,
		Text:   "📂 Chat loaded: " + chat.Title,
	}
	return chat, nil
}

func (c *chatService) DeleteChat(ctx context.Context, chatID, userID, chatUID int64) {
	chat, err := c.getOwnedChat(userID, chatUID)
	if err != nil {
		c.responseCh <- domain.Response{ChatID: chatID, Err: err}
		return
	}

	if err := c.chatRepo.DeleteChat(chat.UID); err != nil {
		c.responseCh <- domain.Response{ChatID: chatID, Err: fmt.Errorf("deleting chat: %w", err)}
		return
	}

	c.responseCh <- domain.Response{
		ChatID: chatID,
		Text:   "🗑 Chat deleted: " + chat.Title,
	}
}

func (c *chatService) SendModels(ctx context.Context, chatID int64) {
	rows := lo.Map(c.supportedModels, func(model string, _ int) []domain.Button {
		return []domain.Button{{
			Label: model,
			Data:  domain.SetModelCallbackPrefix + model,
		}}
	})

	c.responseCh <- domain.Response{
		ChatID: chatID,
		Keyboard: &domain.Keyboard{
			Title: "⚙️ Choose a model:",
			Rows:  rows,
		},
	}
}

func (c *chatService) SetModel(ctx context.Context, chatID int64, modelRaw string) {
	model, err := c.parseModel(modelRaw)
	if err != nil {
		c.responseCh <- domain.Response{ChatID: chatID, Err: err}
		return
	}

	settings, _ := c.settingsRepo.GetByChatID(ctx, chatID)
	settings, _ = lo.Coalesce(settings, &domain.Settings{ChatID: chatID, Model: domain.DefaultModel})

	if lo.Contains(domain.PremiumModels, model) && !settings.Premium {
		c.responseCh <- domain.Response{
			ChatID: chatID,
			Text:   "🔒 " + model + " is available to premium users only.",
		}
		return
	}

	settings.Model = model
	if err := c.settingsRepo.Save(ctx, *settings); err != nil {
		c.responseCh <- domain.Response{ChatID: chatID, Err: fmt.Errorf("saving settings: %w", err)}
		return
	}

	c.responseCh <- domain.Response{
		ChatID: chatID,
		Text:   "✅ Model set: " + model,
	}
}

func (c *chatService) parseModel(modelRaw string) (string, error) {
	if !strings.HasPrefix(modelRaw, domain.SetModelCallbackPrefix) {
		return "", fmt.Errorf("invalid format, expected prefix '%s'", domain.SetModelCallbackPrefix)
	}

	model := strings.TrimPrefix(modelRaw, domain.SetModelCallbackPrefix)

	if !lo.Contains(c.supportedModels, model) {
		return "", errors.New("unsupported model")
	}
	if _, ok := c.costs[model]; !ok {
		return "", fmt.Errorf("no pricing for model %q", model)
	}
	return model, nil
}

func (c *chatService) getOwnedChat(userID, chatUID int64) (domain.Chat, error) {
	chat, err := c.chatRepo.GetChat(chatUID)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("fetching chat: %w", err)
	}
	if chat.Owner != userID {
		return domain.Chat{}, errors.New("access denied")
	}
	return chat, nil
}
