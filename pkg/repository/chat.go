package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/thedimas/gpt4-telegram-bot/pkg/domain"
)

// chatRepository is a JSON-file-backed chat store. Every mutation rewrites
// the file, matching the simple single-process persistence model. Appends
// within one chat are FIFO and touch last_accessed.
type chatRepository struct {
	mu    sync.Mutex
	path  string
	chats []*domain.Chat
}

func NewChatRepository(path string) (*chatRepository, error) {
	r := &chatRepository{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0o600); err != nil {
			return nil, fmt.Errorf("creating chat store file: %w", err)
		}
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading chat store file: %w", err)
	}

	if err := json.Unmarshal(data, &r.chats); err != nil {
		return nil, fmt.Errorf("parsing chat store file: %w", err)
	}
	return r, nil
}

func (r *chatRepository) CreateChat(owner int64, title string) (domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var maxUID int64 = -1
	for _, c := range r.chats {
		if c.UID > maxUID {
			maxUID = c.UID
		}
	}

	now := time.Now().Unix()
	chat := &domain.Chat{
		UID:          maxUID + 1,
		Owner:        owner,
		Title:        title,
		CreatedAt:    now,
		LastAccessed: now,
	}
	r.chats = append(r.chats, chat)

	if err := r.commitLocked(); err != nil {
		return domain.Chat{}, err
	}
	return cloneChat(chat), nil
}

func (r *chatRepository) GetChat(uid int64) (domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat := r.findLocked(uid)
	if chat == nil {
		return domain.Chat{}, domain.ErrNotFound
	}
	return cloneChat(chat), nil
}

func (r *chatRepository) GetChats(owner int64) ([]domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var chats []domain.Chat
	for _, c := range r.chats {
		if c.Owner == owner {
			chats = append(chats, cloneChat(c))
		}
	}
	return chats, nil
}

func (r *chatRepository) DeleteChat(uid int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.chats {
		if c.UID == uid {
			r.chats = append(r.chats[:i], r.chats[i+1:]...)
			return r.commitLocked()
		}
	}
	return domain.ErrNotFound
}

// AppendMessage appends msg to the chat's message log and touches
// last_accessed. Append order is the order of calls, never reordered.
func (r *chatRepository) AppendMessage(chatUID int64, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat := r.findLocked(chatUID)
	if chat == nil {
		return domain.ErrNotFound
	}

	chat.Messages = append(chat.Messages, msg)
	chat.LastAccessed = time.Now().Unix()

	return r.commitLocked()
}

func (r *chatRepository) GetMessages(chatUID int64) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat := r.findLocked(chatUID)
	if chat == nil {
		return nil, domain.ErrNotFound
	}

	msgs := make([]domain.Message, len(chat.Messages))
	copy(msgs, chat.Messages)
	return msgs, nil
}

func (r *chatRepository) findLocked(uid int64) *domain.Chat {
	for _, c := range r.chats {
		if c.UID == uid {
			return c
		}
	}
	return nil
}

func (r *chatRepository) commitLocked() error {
	data, err := json.MarshalIndent(r.chats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling chat store: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return fmt.Errorf("writing chat store file: %w", err)
	}
	return nil
}

func cloneChat(c *domain.Chat) domain.Chat {
	clone := *c
	clone.Messages = make([]domain.Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	return clone
}
