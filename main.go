package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giveaway-bot/giveawaybot"
	"giveaway-bot/giveawaybot/commands"
	"giveaway-bot/giveawaybot/giveaway"
	"giveaway-bot/giveawaybot/logger"
	"giveaway-bot/giveawaybot/storage"
	"giveaway-bot/giveawaybot/utils"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := giveawaybot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))

	slog.Info("Starting giveaway bot",
		slog.String("version", version),
		slog.String("commit", commit))

	slog.Info("Initializing document store...",
		slog.String("type", "store"),
		slog.String("backend", cfg.Storage.Backend))

	storeStartTime := time.Now()
	storeCtx, storeCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	store, err := storage.New(storeCtx, cfg.Storage)
	storeCancel()
	if err != nil {
		slog.Error("Document store initialization failed",
			slog.String("type", "store"),
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(storeStartTime)))
		os.Exit(-1)
	}

	slog.Info("Document store ready",
		slog.String("type", "store"),
		slog.String("backend", cfg.Storage.Backend),
		slog.Duration("took", time.Since(storeStartTime)))

	b := giveawaybot.New(*cfg, version, commit)

	b.Announcer = giveaway.NewDiscordAnnouncer()
	b.GiveawayManager = giveaway.NewManager(
		giveaway.NewRepository(store),
		b.Announcer,
		utils.NextClockTime,
	)
	defer b.GiveawayManager.Shutdown()

	h := handler.New()
	commands.NewGiveawayHandler(b.GiveawayManager, b.Paginator).Register(h)

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}
	b.Announcer.SetClient(b.Client)

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = b.Client.OpenGateway(ctx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
}
