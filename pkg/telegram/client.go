package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/thedimas/gpt4-telegram-bot/pkg/domain"
	"github.com/thedimas/gpt4-telegram-bot/pkg/logger"
)

type client struct {
	token     string
	bot       *tgbotapi.BotAPI
	updatesCh tgbotapi.UpdatesChannel
}

func NewClient(token string) (*client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating bot api instance: %w", err)
	}

	slog.Info("authorized on telegram", "account", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	return &client{
		token:     token,
		bot:       bot,
		updatesCh: bot.GetUpdatesChan(u),
	}, nil
}

func (c *client) GetUpdates() tgbotapi.UpdatesChannel {
	return c.updatesCh
}

// SendResponse delivers one outbound message: images as a media group,
// keyboards as inline markup, plain responses as HTML text. Failures are
// logged and reported back into the chat, never returned.
func (c *client) SendResponse(ctx context.Context, response *domain.Response) {
	if response == nil {
		return
	}

	if response.Err != nil {
		slog.ErrorContext(ctx, "Sending error response", "chatID", response.ChatID, logger.Err(response.Err))
		c.sendText(ctx, response.ChatID, "⚠️ "+response.Err.Error())
		return
	}

	if len(response.ImageURLs) > 0 {
		c.sendImages(ctx, response.ChatID, response.ImageURLs)
	}

	if response.Keyboard != nil {
		c.sendKeyboard(ctx, response.ChatID, response.Keyboard)
		return
	}

	if response.Text != "" {
		c.sendText(ctx, response.ChatID, response.Text)
	}
}

func (c *client) sendText(ctx context.Context, chatID int64, text string) {
	message := tgbotapi.NewMessage(chatID, text)
	message.ParseMode = tgbotapi.ModeHTML

	if _, err := c.bot.Send(message); err != nil {
		// markup may be rejected, deliver the raw text instead
		slog.WarnContext(ctx, "Sending HTML message failed, retrying as plain text", "chatID", chatID, logger.Err(err))

		message.ParseMode = ""
		if _, err := c.bot.Send(message); err != nil {
			slog.ErrorContext(ctx, "Sending message failed", "chatID", chatID, logger.Err(err))
		}
	}
}

func (c *client) sendImages(ctx context.Context, chatID int64, urls []string) {
	if len(urls) == 1 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(urls[0]))
		if _, err := c.bot.Send(photo); err != nil {
			slog.ErrorContext(ctx, "Sending photo failed", "chatID", chatID, "url", urls[0], logger.Err(err))
		}
		return
	}

	media := make([]interface{}, 0, len(urls))
	for _, url := range urls {
		media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(url)))
	}

	group := tgbotapi.NewMediaGroup(chatID, media)
	if _, err := c.bot.SendMediaGroup(group); err != nil {
		slog.ErrorContext(ctx, "Sending media group failed", "chatID", chatID, logger.Err(err))
	}
}

func (c *client) sendKeyboard(ctx context.Context, chatID int64, keyboard *domain.Keyboard) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard.Rows))
	for _, row := range keyboard.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Data))
		}
		rows = append(rows, buttons)
	}

	message := tgbotapi.NewMessage(chatID, keyboard.Title)
	message.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	if _, err := c.bot.Send(message); err != nil {
		slog.ErrorContext(ctx, "Sending keyboard failed", "chatID", chatID, logger.Err(err))
	}
}

func (c *client) AcknowledgeCallback(ctx context.Context, callbackQueryID string) {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackQueryID, "")); err != nil {
		slog.ErrorContext(ctx, "Acknowledging callback failed", "callbackQueryID", callbackQueryID, logger.Err(err))
	}
}

func (c *client) StartTyping(ctx context.Context, chatID int64) {
	if _, err := c.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.ErrorContext(ctx, "Sending typing action failed", "chatID", chatID, logger.Err(err))
	}
}

// FileURL resolves a telegram file ID into a downloadable URL, used to
// pass user photos to the vision model.
func (c *client) FileURL(fileID string) (string, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("getting file: %w", err)
	}
	return file.Link(c.token), nil
}
