// Package bootstrap wires configuration, infrastructure, adapters, and
// services into a running API.
package bootstrap

import (
	"context"
	"time"

	"smartmail_server/adapter/out/llm"
	"smartmail_server/adapter/out/persistence"
	"smartmail_server/adapter/out/provider/gmail"
	"smartmail_server/config"
	"smartmail_server/core/port/out"
	"smartmail_server/core/service/auth"
	"smartmail_server/core/service/classification"
	"smartmail_server/core/service/email"
	"smartmail_server/core/service/summary"
	"smartmail_server/infra/database"
	"smartmail_server/pkg/logger"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	Config *config.Config
	DB     *sqlx.DB
	Redis  *redis.Client

	// Repositories
	EmailRepo out.EmailRepository
	PollState out.PollStateStore

	// Providers
	GmailProvider *gmail.Adapter
	LLMClient     *llm.Client

	// Services
	TokenIssuer  *auth.TokenIssuer
	EmailService *email.Processor
	Poller       *email.Poller
}

// NewDependencies builds the dependency graph. Redis is optional; without
// it the poll checkpoint lives only in memory.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, poll checkpoint will not survive restarts")
			redisClient = nil
		}
	}

	gmailProvider := gmail.NewAdapter(&gmail.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})

	llmClient := llm.NewClient(llm.ClientConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	})

	emailRepo := persistence.NewEmailAdapter(db)

	var pollState out.PollStateStore
	if redisClient != nil {
		pollState = persistence.NewPollStateRedis(redisClient)
	}

	classifier := classification.NewClassifier(llmClient)
	summarizer := summary.NewSummarizer(llmClient)
	processor := email.NewProcessor(gmailProvider, emailRepo, classifier, summarizer)
	poller := email.NewPoller(gmailProvider, processor, pollState, cfg.PollInterval)

	deps := &Dependencies{
		Config:        cfg,
		DB:            db,
		Redis:         redisClient,
		EmailRepo:     emailRepo,
		PollState:     pollState,
		GmailProvider: gmailProvider,
		LLMClient:     llmClient,
		TokenIssuer:   auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL),
		EmailService:  processor,
		Poller:        poller,
	}

	cleanup := func() {
		poller.Stop()
		if redisClient != nil {
			redisClient.Close()
		}
		db.Close()
	}

	return deps, cleanup, nil
}
