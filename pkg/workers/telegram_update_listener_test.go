package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thedimas/gpt4-telegram-bot/pkg/domain"
)

type fakeTelegramClient struct {
	updates chan tgbotapi.Update

	mu   sync.Mutex
	sent []domain.Response
}

func (f *fakeTelegramClient) GetUpdates() tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeTelegramClient) SendResponse(ctx context.Context, response *domain.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, *response)
}

func (f *fakeTelegramClient) AcknowledgeCallback(ctx context.Context, callbackQueryID string) {}
func (f *fakeTelegramClient) StartTyping(ctx context.Context, chatID int64)                   {}

func (f *fakeTelegramClient) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := make([]string, 0, len(f.sent))
	for _, response := range f.sent {
		texts = append(texts, response.Text)
	}
	return texts
}

type allowAll struct{}

func (allowAll) IsAuthorized(userID int64) bool { return true }

type denyAll struct{}

func (denyAll) IsAuthorized(userID int64) bool { return false }

type handlerFunc func(ctx context.Context, update *tgbotapi.Update)

func (f handlerFunc) HandleUpdate(ctx context.Context, update *tgbotapi.Update) { f(ctx, update) }

func messageUpdate(id int) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			Text: "hello",
			Chat: &tgbotapi.Chat{ID: 100},
			From: &tgbotapi.User{ID: 42},
		},
	}
}

func TestListener_ShutdownDeliversPendingResponses(t *testing.T) {
	client := &fakeTelegramClient{updates: make(chan tgbotapi.Update, 1)}
	responseCh := make(chan domain.Response)

	started := make(chan struct{})
	release := make(chan struct{})
	handler := handlerFunc(func(ctx context.Context, update *tgbotapi.Update) {
		close(started)
		<-release
		responseCh <- domain.Response{ChatID: 100, Text: "late answer"}
	})

	listener := NewTelegramUpdateListener(client, allowAll{}, handler, responseCh)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Start(ctx) }()

	client.updates <- messageUpdate(1)
	<-started

	// cancel while the handler is still mid-turn, then let it finish
	cancel()
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancellation")
	}

	assert.Contains(t, client.sentTexts(), "late answer")
}

func TestListener_UnauthorizedUser(t *testing.T) {
	client := &fakeTelegramClient{updates: make(chan tgbotapi.Update, 1)}
	responseCh := make(chan domain.Response)

	handled := false
	handler := handlerFunc(func(ctx context.Context, update *tgbotapi.Update) { handled = true })

	listener := NewTelegramUpdateListener(client, denyAll{}, handler, responseCh)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Start(ctx) }()

	client.updates <- messageUpdate(1)

	require.Eventually(t, func() bool {
		return len(client.sentTexts()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.False(t, handled)
	assert.Contains(t, client.sentTexts()[0], "not authorized")
}
