package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/chris/scribe/internal/discord"
	"github.com/chris/scribe/internal/scheduler"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Discord bot and the digest scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.DiscordToken == "" {
			return errors.New("DISCORD_BOT_TOKEN is not set")
		}
		bot, err := discord.NewBot(a.cfg.DiscordToken, a.agent, a.settings, a.db)
		if err != nil {
			return fmt.Errorf("starting Discord bot: %w", err)
		}
		defer bot.Close()

		sched := scheduler.New(a.db, a.agent, a.settings, a.cfg.DiscordWebhook, bot.SendDM)
		sched.Start()
		defer sched.Stop()

		log.Println("bot is running. Press Ctrl+C to exit.")
		<-cmd.Context().Done()
		log.Println("shutting down.")
		return nil
	},
}
