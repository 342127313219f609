package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"portfolioFrontier/internal/config"
	"portfolioFrontier/internal/finance"
	"portfolioFrontier/internal/logger"
	"portfolioFrontier/internal/openai"
	"portfolioFrontier/internal/optimizer"
	"portfolioFrontier/internal/server"
	"portfolioFrontier/internal/storage"
	"portfolioFrontier/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if err := cfg.ValidateBot(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	l := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(l)

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		l.Fatal().Err(err).Msg("open sqlite")
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		l.Fatal().Err(err).Msg("init schema")
	}
	l.Info().Str("path", cfg.DBPath).Msg("db: schema ensured (runs, price_cache)")
	store := storage.NewStore(db)

	prices := finance.NewCachedProvider(finance.NewYahooClient(l), store, cfg.PriceCacheTTL, l)
	deps := telegram.Deps{
		Optimizer: optimizer.NewService(prices, l, optimizer.WithStore(store)),
		History:   store,
		Defaults: telegram.Defaults{
			Trials:  cfg.NumPortfolios,
			Window:  cfg.Window,
			Seed:    cfg.Seed,
			Workers: cfg.Workers,
		},
	}
	if cfg.OpenAIKey != "" {
		deps.Explainer = openai.NewCommentator(cfg.OpenAIKey, cfg.OpenAIModel)
	}

	tg, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, deps, l)
	if err != nil {
		l.Fatal().Err(err).Msg("telegram")
	}

	mux := server.NewHTTPMux(tg.WebhookHandler) // /telegram/webhook, /healthz, /metrics
	addr := ":" + cfg.Port
	l.Info().Str("addr", addr).Msg("http: listening")
	if err := server.ListenAndServe(addr, mux); err != nil {
		l.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}
