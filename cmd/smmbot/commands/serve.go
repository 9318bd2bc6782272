package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bukhantcev/stavfitness26/pkg/smm/bot"
	"github.com/bukhantcev/stavfitness26/pkg/smm/channels"
	"github.com/bukhantcev/stavfitness26/pkg/smm/channels/discord"
	"github.com/bukhantcev/stavfitness26/pkg/smm/channels/telegram"
	"github.com/bukhantcev/stavfitness26/pkg/smm/config"
	"github.com/bukhantcev/stavfitness26/pkg/smm/gen"
	"github.com/bukhantcev/stavfitness26/pkg/smm/scheduler"
	"github.com/bukhantcev/stavfitness26/pkg/smm/store"
)

// botCommands is the command list registered with the chat platform.
var botCommands = []telegram.BotCommand{
	{Command: "start", Description: "Greeting and menu"},
	{Command: "menu", Description: "Show the action menu"},
	{Command: "draft", Description: "Generate a draft (kind=...;extra=...)"},
	{Command: "plan_week", Description: "Draft a post for each day of the week"},
	{Command: "schedule", Description: "Daily autopost: HH:MM or off"},
	{Command: "setup", Description: "Update the brand profile"},
	{Command: "status", Description: "Bot status"},
}

// newServeCmd creates the `smmbot serve` command that starts the daemon.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bot daemon",
		Long: `Start smmbot as a daemon: connect the chat channel, process admin
commands and review buttons, and run the daily autopost job.

Examples:
  smmbot serve
  smmbot serve --config ./config.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)

	config.ResolveAPIKey(cfg, logger)

	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	gw := gen.New(cfg.Gen, logger)

	var ch channels.Channel
	switch cfg.Channel {
	case "discord":
		ch = discord.New(cfg.Discord, logger)
	default:
		ch = telegram.New(cfg.Telegram, logger)
	}

	loc := time.Local
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The bot and the scheduler reference each other: the scheduler's
	// job body is the bot's daily publish.
	var b *bot.Bot
	sched := scheduler.New(loc, func(ctx context.Context) error {
		return b.PublishDaily(ctx)
	}, logger)
	b = bot.New(cfg.Bot, st, gw, ch, sched, logger)

	if err := ch.Connect(ctx); err != nil {
		return fmt.Errorf("connecting %s: %w", ch.Name(), err)
	}
	defer ch.Disconnect()

	if tg, ok := ch.(*telegram.Telegram); ok {
		if err := tg.SetCommands(ctx, botCommands); err != nil {
			logger.Warn("failed to register bot commands", "error", err)
		}
	}

	// Re-arm the daily job from the persisted setting.
	sched.Start(ctx)
	if daily, err := st.DailyTime(); err != nil {
		logger.Error("failed to read daily time", "error", err)
	} else if daily != "" {
		if err := sched.Reschedule(daily); err != nil {
			logger.Error("failed to re-arm daily publish", "time", daily, "error", err)
		}
	}

	b.Start(ctx)

	logger.Info("smmbot running. Press Ctrl+C to stop.",
		"channel", ch.Name(),
		"target", cfg.Bot.TargetChat,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	done := make(chan struct{})
	go func() {
		sched.Stop()
		b.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}

	return nil
}

// resolveConfig loads the config from the --config flag or standard
// locations.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	if configPath == "" {
		return nil, fmt.Errorf("no config file found. Run 'smmbot setup' first")
	}
	return config.LoadFromFile(configPath)
}

// newLogger builds the slog logger from config and the --verbose flag.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	level := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
