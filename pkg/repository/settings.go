package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/thedimas/gpt4-telegram-bot/pkg/domain"
)

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *settingsRepository {
	return &settingsRepository{db: db}
}

func (s *settingsRepository) Save(ctx context.Context, settings domain.Settings) error {
	const query = `
		INSERT INTO settings (chat_id, model, premium)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id)
		DO UPDATE SET
			model = EXCLUDED.model,
			premium = EXCLUDED.premium
	`

	_, err := s.db.ExecContext(ctx, query, settings.ChatID, settings.Model, settings.Premium)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	return nil
}

func (s *settingsRepository) GetByChatID(ctx context.Context, chatID int64) (*domain.Settings, error) {
	const query = `
		SELECT chat_id, model, premium
		FROM settings
		WHERE chat_id = $1
	`

	var settings domain.Settings
	err := s.db.QueryRowContext(ctx, query, chatID).
		Scan(&settings.ChatID, &settings.Model, &settings.Premium)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fetching settings by chatID: %w", err)
	}

	return &settings, nil
}
