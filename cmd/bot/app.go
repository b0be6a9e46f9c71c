package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"counting-bot/internal/config"
	"counting-bot/internal/counting"
	"counting-bot/internal/handlers"
	"counting-bot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	config             *config.Config
	store              *storage.PostgresStore
	discord            *discordgo.Session
	engine             *counting.Engine
	sweeper            *counting.Sweeper
	router             *handlers.Router
	metricsServer      *http.Server
	sweeperCtx         context.Context
	sweeperCancel      context.CancelFunc
	registeredCommands []*discordgo.ApplicationCommand
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to storage", "error", err)
		return nil, err
	}

	discord, err := NewDiscordSession(cfg)
	if err != nil {
		return nil, err
	}

	engine := counting.NewEngine(store, discord)
	sweeper := counting.NewSweeper(engine.Sanctions(), cfg.SweepInterval)

	events := handlers.NewEventHandler(engine)
	discord.AddHandler(events.MessageCreate)
	discord.AddHandler(events.MessageUpdate)
	discord.AddHandler(events.MessageDelete)

	return &App{
		config:  cfg,
		store:   store,
		discord: discord,
		engine:  engine,
		sweeper: sweeper,
	}, nil
}

func (a *App) Run() error {
	err := a.discord.Open()
	if err != nil {
		slog.Error("Failed to open discord session", "error", err)
		return err
	}

	// The bot user ID is only known once the gateway session is open; the
	// command handlers need it for the ruin-role hierarchy check.
	botHandlers := &handlers.BotHandler{
		Config:    a.config,
		Engine:    a.engine,
		BotUserID: a.discord.State.User.ID,
	}
	a.router = handlers.NewRouter()
	a.router.Register("counting", botHandlers.Counting)
	a.router.Register("countingset", handlers.WithAdmin(botHandlers.CountingSet))
	a.discord.AddHandler(a.router.HandleFunc())

	commands := GetApplicationCommands()
	CleanupCommands(a.discord, a.registeredCommands, a.discord.State.User.ID, a.config.DiscordGuildID)
	a.registeredCommands = RegisterCommands(a.discord, commands, a.discord.State.User.ID, a.config.DiscordGuildID)

	slog.Info("Counting bot is online!")

	a.sweeperCtx, a.sweeperCancel = context.WithCancel(context.Background())
	go a.sweeper.Start(a.sweeperCtx)

	if a.config.MetricsAddr != "" {
		a.startMetricsServer()
	}

	return nil
}

func (a *App) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	a.metricsServer = &http.Server{
		Addr:              a.config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Metrics server listening", "addr", a.config.MetricsAddr)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server error", "error", err)
		}
	}()
}

func (a *App) Shutdown(ctx context.Context) {
	slog.Info("Shutting down...")

	if a.sweeperCancel != nil {
		a.sweeperCancel()
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	if a.discord != nil {
		a.discord.Close()
	}

	if a.store != nil {
		a.store.Close()
	}
}
