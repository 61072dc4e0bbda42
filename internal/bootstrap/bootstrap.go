// Package bootstrap wires configured components for the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finansmanager/internal/advice"
	"github.com/dvloznov/finansmanager/internal/config"
	"github.com/dvloznov/finansmanager/internal/infra/bigquery"
	"github.com/dvloznov/finansmanager/internal/infra/sqlite"
	"github.com/dvloznov/finansmanager/internal/llm"
	"github.com/dvloznov/finansmanager/internal/session"
	"github.com/dvloznov/finansmanager/internal/store"
	"github.com/dvloznov/finansmanager/internal/store/inmemory"
)

// OpenRepository opens the configured document store backend.
func OpenRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Repository, error) {
	log = log.With().Str("backend", cfg.Store.Backend).Logger()

	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory store; data is lost on exit")
		return inmemory.NewStore(), nil
	case config.BackendSQLite:
		return sqlite.Open(ctx, cfg.Store.SQLitePath, cfg.GetPollInterval(), log)
	case config.BackendBigQuery:
		return bigquery.NewRepository(ctx, cfg.Store.BigQueryProject, cfg.Store.BigQueryDataset, cfg.GetPollInterval(), log)
	default:
		return nil, fmt.Errorf("OpenRepository: unknown backend %q", cfg.Store.Backend)
	}
}

// NewModel creates the Gemini client. It fails without an API key.
func NewModel(ctx context.Context, cfg *config.Config) (llm.Model, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("NewModel: GEMINI_API_KEY is not set")
	}
	return llm.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
}

// NewSessionStore creates the per-user session store.
func NewSessionStore(model llm.Model, cfg *config.Config, log zerolog.Logger) (*session.Store, error) {
	policy, err := session.ParsePolicy(cfg.Sessions.Policy)
	if err != nil {
		return nil, fmt.Errorf("NewSessionStore: %w", err)
	}
	return session.NewStore(model, session.Options{
		Model:           cfg.LLM.Model,
		TTL:             cfg.GetSessionTTL(),
		CleanupInterval: cfg.GetCleanupInterval(),
		MaxSessions:     cfg.Sessions.MaxSessions,
		Policy:          policy,
	}, log), nil
}

// NewAnalyst creates the advice analyst for the resolved mode. model may be
// nil in template mode.
func NewAnalyst(cfg *config.Config, model llm.Model, log zerolog.Logger) (*advice.Analyst, error) {
	return advice.NewAnalyst(advice.Mode(cfg.AdviceMode()), model, cfg.GetAdviceDelay(), log)
}
