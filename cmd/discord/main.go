package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/frisbee/internal/authz"
	"github.com/keshon/frisbee/internal/command"
	"github.com/keshon/frisbee/internal/command/music"
	"github.com/keshon/frisbee/internal/config"
	"github.com/keshon/frisbee/internal/discord"
	"github.com/keshon/frisbee/internal/music/player"
	"github.com/keshon/frisbee/internal/music/queue"
	"github.com/keshon/frisbee/internal/music/resolver"
	"github.com/keshon/frisbee/internal/music/status"
	"github.com/keshon/frisbee/internal/music/stream"
	"github.com/keshon/frisbee/pkg/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		boot := logger.New(logger.Options{})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	log.Info().Msg("starting frisbee")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q := queue.New()
	skip := player.NewSkipSignal()
	lists := authz.New(cfg.PlayUsersPath, cfg.SkipUsersPath)

	res := resolver.New(resolver.Options{
		DownloadPath: cfg.DownloadPath,
		PlayablePath: cfg.PlayablePath,
		FFmpegPath:   cfg.FFmpegPath,
	}, logger.Component(log, "resolver"))

	svc := music.NewService(music.Options{
		Authz:     lists,
		Resolver:  res,
		Queue:     q,
		Skip:      skip,
		SoftLimit: cfg.SoftDurationLimit,
		HardLimit: cfg.HardDurationLimit,
		Logger:    logger.Component(log, "music"),
	})

	registry := command.NewRegistry()
	cmdLog := logger.Component(log, "command")
	registry.Register(&music.PlayCommand{Service: svc}, command.WithGuildOnly(), command.WithCommandLogger(cmdLog))
	registry.Register(&music.SkipCommand{Service: svc}, command.WithGuildOnly(), command.WithCommandLogger(cmdLog))

	bot, err := discord.New(discord.Options{
		Token:             cfg.DiscordToken,
		QueueChannelName:  cfg.QueueChannelName,
		InitSlashCommands: cfg.InitSlashCommands,
		CommandCacheDir:   cfg.CommandCacheDir,
		Registry:          registry,
		Logger:            logger.Component(log, "discord"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}
	if err := bot.Open(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to discord")
	}
	defer bot.Close()

	channelID, err := bot.StatusChannel(ctx, cfg.QueueChannelWait)
	if err != nil {
		bot.Close()
		log.Fatal().Err(err).Msg("cannot start without a status channel")
	}

	playerOpts := player.Options{
		Queue:     q,
		Skip:      skip,
		Gateway:   bot,
		Retriever: res,
		Transport: stream.NewTransport(bot.Session(), cfg.FFmpegPath, logger.Component(log, "voice")),
		Logger:    logger.Component(log, "player"),
	}
	if cfg.NotifyDroppedTrack {
		playerOpts.Notifier = bot
	}
	p := player.New(playerOpts)

	reconciler := status.New(status.Options{
		Queue:     q,
		Messenger: bot,
		ChannelID: channelID,
		ViewSize:  cfg.StatusViewSize,
		Logger:    logger.Component(log, "status"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(gctx) })
	g.Go(func() error { return reconciler.Run(gctx) })
	g.Go(func() error {
		if err := lists.Watch(gctx, logger.Component(log, "authz")); err != nil {
			log.Warn().Err(err).Msg("allow-list watcher stopped")
		}
		return nil
	})

	log.Info().Str("channel", channelID).Msg("frisbee is running")
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("stopped with error")
		return
	}
	log.Info().Msg("shutdown complete")
}
