package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finansmanager/internal/advice"
	"github.com/dvloznov/finansmanager/internal/api/handlers"
	"github.com/dvloznov/finansmanager/internal/api/middleware"
	"github.com/dvloznov/finansmanager/internal/bootstrap"
	"github.com/dvloznov/finansmanager/internal/config"
	"github.com/dvloznov/finansmanager/internal/llm"
	"github.com/dvloznov/finansmanager/internal/logger"
)

func main() {
	configPath := flag.String("config", "finansmanager.yaml", "Path to the YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New().Fatal().Err(err).Msg("Failed to load configuration")
	}

	log, err := logger.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		logger.New().Fatal().Err(err).Msg("Failed to create logger")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	model, err := bootstrap.NewModel(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Gemini client is not configured; set GEMINI_API_KEY")
	}

	repo, err := bootstrap.OpenRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer repo.Close()

	sessions, err := bootstrap.NewSessionStore(model, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session store")
	}
	defer sessions.Close()

	analyst, err := bootstrap.NewAnalyst(cfg, model, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create advice analyst")
	}

	mux := http.NewServeMux()
	handlers.Register(mux, handlers.Handlers{
		Chat:         handlers.NewChatHandler(sessions, cfg.GetRequestTimeout(), log),
		Profiles:     handlers.NewProfilesHandler(repo, log),
		Transactions: handlers.NewTransactionsHandler(repo, log),
		Advice:       handlers.NewAdviceHandler(repo, analyst, log),
		Sessions:     handlers.NewSessionsHandler(sessions, log),
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(cfg.Server.AllowedOrigin)(
					middleware.RateLimit(middleware.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst), log)(
						middleware.Auth(mux),
					),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logStartup(log, cfg, analyst)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Int("sessions", sessions.Len()).Msg("Server exited")
}

func logStartup(log zerolog.Logger, cfg *config.Config, analyst *advice.Analyst) {
	model := cfg.LLM.Model
	if model == "" {
		model = llm.DefaultModelName
	}
	log.Info().
		Str("port", cfg.Server.Port).
		Str("allowed_origin", cfg.Server.AllowedOrigin).
		Str("model", model).
		Str("store", cfg.Store.Backend).
		Str("session_policy", cfg.Sessions.Policy).
		Str("advice_mode", string(analyst.Mode())).
		Msg("Starting FinansManager proxy")
}
