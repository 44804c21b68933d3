package discord

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/chris/scribe/internal/llm"
	"github.com/chris/scribe/internal/settings"
)

const maxMessageLen = 2000

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}

	// Only respond to DMs or when mentioned
	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			isMentioned = true
			break
		}
	}
	if !isDM && !isMentioned {
		return
	}

	if isDM && b.db != nil {
		if err := b.db.SetNote("discord_user_id", m.Author.ID); err != nil {
			log.Printf("discord: remembering DM user: %v", err)
		}
	}

	content := strings.TrimSpace(stripMention(m.Content, s.State.User.ID))
	if content == "" {
		return
	}

	if reply, ok := b.command(m.ChannelID, content); ok {
		s.ChannelMessageSend(m.ChannelID, reply)
		return
	}

	s.ChannelTyping(m.ChannelID)

	b.mu.Lock()
	history := b.histories[m.ChannelID]
	b.mu.Unlock()

	reply, newHistory, err := b.agent.Run(context.Background(), b.settings.Snapshot(), history, content)
	if err != nil {
		log.Printf("discord: agent error: %v", err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong. Try again?")
		return
	}

	// Stored history is capped to what the model could use anyway.
	newHistory = llm.TrimMessages(newHistory, b.agent.MaxContextTokens)

	b.mu.Lock()
	b.histories[m.ChannelID] = newHistory
	b.mu.Unlock()

	for _, chunk := range splitMessage(reply, maxMessageLen) {
		s.ChannelMessageSend(m.ChannelID, chunk)
	}
}

// command handles the "!" settings commands. ok is false for ordinary messages.
func (b *Bot) command(channelID, content string) (reply string, ok bool) {
	name, arg, ok := parseCommand(content)
	if !ok {
		return "", false
	}
	switch name {
	case "length":
		if err := b.settings.SetSummaryLength(arg); err != nil {
			return fmt.Sprintf("Summary length must be one of %s.", joinInts(settings.SummaryLengths)), true
		}
		return fmt.Sprintf("Summaries will be about %s words.", arg), true
	case "model":
		if err := b.settings.SetBackend(arg); err != nil {
			return "Model must be GPT or Claude.", true
		}
		return fmt.Sprintf("Using %s.", arg), true
	case "reset":
		b.mu.Lock()
		delete(b.histories, channelID)
		b.mu.Unlock()
		return "Conversation cleared.", true
	default:
		return "Commands: !length <n>, !model <GPT|Claude>, !reset", true
	}
}

func parseCommand(content string) (name, arg string, ok bool) {
	if !strings.HasPrefix(content, "!") {
		return "", "", false
	}
	fields := strings.Fields(content[1:])
	if len(fields) == 0 {
		return "", "", false
	}
	name = strings.ToLower(fields[0])
	if len(fields) > 1 {
		arg = fields[1]
	}
	return name, arg, true
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

func splitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := maxLen
		if end > len(s) {
			end = len(s)
		}
		// Never cut inside a multi-byte rune.
		for end < len(s) && end > 0 && !utf8.RuneStart(s[end]) {
			end--
		}
		if end == 0 {
			_, end = utf8.DecodeRuneInString(s)
		}
		// Try to split at a newline
		if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
			end = idx + 1
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
