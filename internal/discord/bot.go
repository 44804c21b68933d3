package discord

import (
	"fmt"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/chris/scribe/internal/agent"
	"github.com/chris/scribe/internal/db"
	"github.com/chris/scribe/internal/llm"
	"github.com/chris/scribe/internal/settings"
)

type Bot struct {
	session  *discordgo.Session
	agent    *agent.Agent
	settings *settings.Store
	db       *db.DB

	mu        sync.Mutex
	histories map[string][]llm.Message // per channel
}

func NewBot(token string, ag *agent.Agent, store *settings.Store, database *db.DB) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	bot := &Bot{
		session:   s,
		agent:     ag,
		settings:  store,
		db:        database,
		histories: make(map[string][]llm.Message),
	}
	s.AddHandler(bot.onMessage)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	log.Printf("Discord bot connected as %s", s.State.User.Username)
	return bot, nil
}

// SendDM delivers content to a user's DM channel, split to Discord's limit.
func (b *Bot) SendDM(userID, content string) error {
	ch, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	for _, chunk := range splitMessage(content, maxMessageLen) {
		if _, err := b.session.ChannelMessageSend(ch.ID, chunk); err != nil {
			return fmt.Errorf("sending DM: %w", err)
		}
	}
	return nil
}

func (b *Bot) Close() {
	b.session.Close()
}
