package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thedimas/gpt4-telegram-bot/pkg/domain"
)

type settingsStore struct {
	saved map[int64]domain.Settings
}

func newSettingsStore() *settingsStore {
	return &settingsStore{saved: map[int64]domain.Settings{}}
}

func (s *settingsStore) Save(ctx context.Context, settings domain.Settings) error {
	s.saved[settings.ChatID] = settings
	return nil
}

func (s *settingsStore) GetByChatID(ctx context.Context, chatID int64) (*domain.Settings, error) {
	settings, ok := s.saved[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &settings, nil
}

func TestChatService_SendChats(t *testing.T) {
	repo := newTestRepo(t)
	for i := 0; i < 7; i++ {
		_, err := repo.CreateChat(42, fmt.Sprintf("Chat %d", i))
		require.NoError(t, err)
	}

	responseCh := make(chan domain.Response, 10)
	svc := NewChatService(repo, newSettingsStore(), domain.SupportedModels, domain.DefaultCostTable(), responseCh)

	svc.SendChats(context.Background(), 100, 42, 1)

	response := <-responseCh
	require.NotNil(t, response.Keyboard)
	rows := response.Keyboard.Rows
	require.Len(t, rows, chatsPerPage+1) // chats plus the navigation row

	// newest chat first
	assert.Equal(t, "Chat 6", rows[0][0].Label)

	nav := rows[len(rows)-1]
	require.Len(t, nav, 3)
	assert.Equal(t, "1/2", nav[1].Label)
	assert.Equal(t, domain.NoopCallback, nav[0].Data) // no page before the first
	assert.Equal(t, domain.ChatPageCallbackPrefix+"2", nav[2].Data)
}

func TestChatService_SendChats_Empty(t *testing.T) {
	responseCh := make(chan domain.Response, 1)
	svc := NewChatService(newTestRepo(t), newSettingsStore(), domain.SupportedModels, domain.DefaultCostTable(), responseCh)

	svc.SendChats(context.Background(), 100, 42, 1)

	response := <-responseCh
	assert.Nil(t, response.Keyboard)
	assert.NotEmpty(t, response.Text)
}

func TestChatService_SetModel(t *testing.T) {
	t.Run("supported model is saved", func(t *testing.T) {
		store := newSettingsStore()
		responseCh := make(chan domain.Response, 1)
		svc := NewChatService(newTestRepo(t), store, domain.SupportedModels, domain.DefaultCostTable(), responseCh)

		svc.SetModel(context.Background(), 100, domain.SetModelCallbackPrefix+domain.DefaultModel)

		response := <-responseCh
		require.NoError(t, response.Err)
		assert.Equal(t, domain.DefaultModel, store.saved[100].Model)
	})

	t.Run("premium model requires the premium flag", func(t *testing.T) {
		store := newSettingsStore()
		responseCh := make(chan domain.Response, 1)
		svc := NewChatService(newTestRepo(t), store, domain.SupportedModels, domain.DefaultCostTable(), responseCh)

		svc.SetModel(context.Background(), 100, domain.SetModelCallbackPrefix+domain.PremiumModels[0])

		response := <-responseCh
		assert.Contains(t, response.Text, "premium")
		assert.Empty(t, store.saved[100].Model)
	})

	t.Run("premium users can pick premium models", func(t *testing.T) {
		store := newSettingsStore()
		store.saved[100] = domain.Settings{ChatID: 100, Model: domain.DefaultModel, Premium: true}
		responseCh := make(chan domain.Response, 1)
		svc := NewChatService(newTestRepo(t), store, domain.SupportedModels, domain.DefaultCostTable(), responseCh)

		svc.SetModel(context.Background(), 100, domain.SetModelCallbackPrefix+domain.PremiumModels[0])

		response := <-responseCh
		require.NoError(t, response.Err)
		assert.Equal(t, domain.PremiumModels[0], store.saved[100].Model)
	})

	t.Run("unknown model is rejected", func(t *testing.T) {
		responseCh := make(chan domain.Response, 1)
		svc := NewChatService(newTestRepo(t), newSettingsStore(), domain.SupportedModels, domain.DefaultCostTable(), responseCh)

		svc.SetModel(context.Background(), 100, domain.SetModelCallbackPrefix+"gpt-99")

		response := <-responseCh
		assert.Error(t, response.Err)
	})
}

func TestChatService_DeleteChat(t *testing.T) {
	repo := newTestRepo(t)
	chat, err := repo.CreateChat(42, "Doomed")
	require.NoError(t, err)

	responseCh := make(chan domain.Response, 1)
	svc := NewChatService(repo, newSettingsStore(), domain.SupportedModels, domain.DefaultCostTable(), responseCh)

	t.Run("other users cannot delete", func(t *testing.T) {
		svc.DeleteChat(context.Background(), 100, 7, chat.UID)
		response := <-responseCh
		assert.Error(t, response.Err)

		_, err := repo.GetChat(chat.UID)
		assert.NoError(t, err)
	})

	t.Run("owner deletes", func(t *testing.T) {
		svc.DeleteChat(context.Background(), 100, 42, chat.UID)
		response := <-responseCh
		require.NoError(t, response.Err)

		_, err := repo.GetChat(chat.UID)
		assert.Error(t, err)
	})
}
