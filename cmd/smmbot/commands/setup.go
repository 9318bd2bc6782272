package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bukhantcev/stavfitness26/pkg/smm/config"
)

// newSetupCmd creates the `smmbot setup` command for interactive
// configuration.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		Long: `Starts an interactive wizard that writes the initial config.yaml:
chat channel, bot token, admin ID, publish target and backend API key.
The API key goes to the OS keyring when available, never to the file.

Examples:
  smmbot setup`,
		RunE: runSetup,
	}
}

func runSetup(cmd *cobra.Command, _ []string) error {
	cfg := config.DefaultConfig()

	var (
		channel    = cfg.Channel
		token      string
		adminID    string
		targetChat string
		baseURL    = cfg.Gen.BaseURL
		apiKey     string
		dailyTime  = cfg.Bot.DefaultDailyTime
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Chat channel").
				Options(
					huh.NewOption("Telegram", "telegram"),
					huh.NewOption("Discord", "discord"),
				).
				Value(&channel),
			huh.NewInput().
				Title("Bot token").
				Description("Telegram: from @BotFather. Discord: from the developer portal.").
				Validate(required("bot token")).
				Value(&token),
			huh.NewInput().
				Title("Your admin user ID").
				Description("Only this ID can operate the bot.").
				Validate(required("admin ID")).
				Value(&adminID),
			huh.NewInput().
				Title("Publish target").
				Description("Channel the approved posts go to, e.g. @stavfitness26.").
				Validate(required("publish target")).
				Value(&targetChat),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Backend API base URL").
				Value(&baseURL),
			huh.NewInput().
				Title("Backend API key").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewInput().
				Title("Daily autopost time (HH:MM)").
				Value(&dailyTime),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("setup aborted: %w", err)
	}

	cfg.Channel = channel
	switch channel {
	case "discord":
		cfg.Discord.Token = token
	default:
		cfg.Telegram.Token = token
	}
	cfg.Bot.Admins = []string{strings.TrimSpace(adminID)}
	cfg.Bot.TargetChat = strings.TrimSpace(targetChat)
	cfg.Bot.DefaultDailyTime = strings.TrimSpace(dailyTime)
	cfg.Gen.BaseURL = strings.TrimSpace(baseURL)

	// Prefer the OS keyring for the API key; the config file keeps an
	// env reference only.
	if apiKey != "" {
		if config.KeyringAvailable() {
			if err := config.StoreAPIKey(apiKey); err != nil {
				return fmt.Errorf("storing API key in keyring: %w", err)
			}
			fmt.Println("API key stored in the OS keyring.")
		} else {
			fmt.Println("OS keyring unavailable. Put the key in .env as OPENAI_API_KEY=...")
		}
	}

	path := "config.yaml"
	if err := config.SaveToFile(cfg, path); err != nil {
		return err
	}

	fmt.Printf("Config written to %s. Start the bot with: smmbot serve\n", path)
	fmt.Println("The brand profile is seeded on first run; tune it in chat with /setup.")
	return nil
}

// required validates a non-empty form field.
func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}
