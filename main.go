package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v9"

	"github.com/thedimas/gpt4-telegram-bot/pkg/auth"
	"github.com/thedimas/gpt4-telegram-bot/pkg/database"
	"github.com/thedimas/gpt4-telegram-bot/pkg/domain"
	"github.com/thedimas/gpt4-telegram-bot/pkg/logger"
	"github.com/thedimas/gpt4-telegram-bot/pkg/openai"
	"github.com/thedimas/gpt4-telegram-bot/pkg/repository"
	"github.com/thedimas/gpt4-telegram-bot/pkg/search"
	"github.com/thedimas/gpt4-telegram-bot/pkg/services"
	"github.com/thedimas/gpt4-telegram-bot/pkg/telegram"
	"github.com/thedimas/gpt4-telegram-bot/pkg/tools"
	"github.com/thedimas/gpt4-telegram-bot/pkg/webpage"
	"github.com/thedimas/gpt4-telegram-bot/pkg/wolfram"
	"github.com/thedimas/gpt4-telegram-bot/pkg/workers"
)

type Config struct {
	OpenAIToken               string  `env:"OPENAI_TOKEN,required"`
	TelegramBotToken          string  `env:"TELEGRAM_BOT_TOKEN,required"`
	TelegramAuthorizedUserIDs []int64 `env:"TELEGRAM_AUTHORIZED_USER_IDS" envSeparator:" "`
	GoogleSearchEngineID      string  `env:"GOOGLE_SEARCH_ID,required"`
	GoogleSearchAPIKey        string  `env:"GOOGLE_SEARCH_TOKEN,required"`
	WolframAppID              string  `env:"WOLFRAM_APP_ID,required"`
	ChatStorePath             string  `env:"CHAT_STORE_PATH" envDefault:"chats.json"`
	MaxToolRounds             int     `env:"MAX_TOOL_ROUNDS" envDefault:"10"`
	SegmentTokens             int     `env:"SEGMENT_TOKENS" envDefault:"10000"`
	MessageChunkSize          int     `env:"MESSAGE_CHUNK_SIZE" envDefault:"3500"`
	PgURL                     string  `env:"DATABASE_URL"`
	PgHost                    string  `env:"DB_HOST" envDefault:"localhost:65432"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	workerGroup, err := setupWorkers()
	if err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return workerGroup.Start(ctx)
}

func setupWorkers() (workers.Group, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	costs := domain.DefaultCostTable()
	if err := costs.Validate(domain.SupportedModels); err != nil {
		return nil, fmt.Errorf("validating cost table: %w", err)
	}

	telegramClient, err := telegram.NewClient(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}
	authenticator := auth.NewAuthenticator(cfg.TelegramAuthorizedUserIDs)

	db, err := database.NewPostgres(cfg.PgURL, cfg.PgHost)
	if err != nil {
		return nil, fmt.Errorf("creating db: %w", err)
	}

	openAIClient, err := openai.NewClient(cfg.OpenAIToken)
	if err != nil {
		return nil, fmt.Errorf("creating open ai client: %w", err)
	}

	chatRepository, err := repository.NewChatRepository(cfg.ChatStorePath)
	if err != nil {
		return nil, fmt.Errorf("creating chat repository: %w", err)
	}
	settingsRepository := repository.NewSettingsRepository(db)

	toolFunctions := []services.ToolFunction{
		tools.NewAskWebpage(webpage.NewFetcher(), openAIClient, cfg.SegmentTokens),
		tools.NewSearch(search.NewClient(cfg.GoogleSearchEngineID, cfg.GoogleSearchAPIKey)),
		tools.NewWolfram(wolfram.NewClient(cfg.WolframAppID)),
		tools.NewAddImage(),
	}

	toolService, err := services.NewToolService(toolFunctions)
	if err != nil {
		return nil, fmt.Errorf("creating tool service: %w", err)
	}

	responseCh := make(chan domain.Response)

	textService := services.NewTextService(
		openAIClient,
		chatRepository,
		settingsRepository,
		toolService,
		costs,
		cfg.MaxToolRounds,
		cfg.MessageChunkSize,
	)

	chatService := services.NewChatService(
		chatRepository,
		settingsRepository,
		domain.SupportedModels,
		costs,
		responseCh,
	)

	handler := telegram.NewHandler(
		textService,
		chatService,
		toolService,
		telegramClient,
		responseCh,
	)

	listener := workers.NewTelegramUpdateListener(
		telegramClient,
		authenticator,
		handler,
		responseCh,
	)

	return workers.Group{listener}, nil
}
