package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OpenAIKey          string
	AnthropicKey       string
	OpenAIModel        string // converter model
	OpenAISummaryModel string // summarizer model
	ClaudeModel        string
	ClaudeMaxTokens    int64
	HTTPTimeout        time.Duration // model API and article fetch
	MaxContextTokens   int
	SummaryLength      string
	SummaryBackend     string
	DatabasePath       string
	DiscordToken       string
	DiscordWebhook     string
}

// ConfigDir is ~/.scribe.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".scribe")
}

func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config")
}

// Load reads ./.env and ~/.scribe/config (values already in the environment win),
// then builds the Config from the environment.
func Load() *Config {
	_ = godotenv.Load()             // ignore error if no .env
	_ = godotenv.Load(ConfigFile()) // same for the per-user config

	return &Config{
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:       os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIModel:        envOr("OPENAI_MODEL", "gpt-4o"),
		OpenAISummaryModel: envOr("OPENAI_SUMMARY_MODEL", "gpt-4o-mini"),
		ClaudeModel:        envOr("CLAUDE_MODEL", "claude-3-5-sonnet-20240620"),
		ClaudeMaxTokens:    int64(envInt("CLAUDE_MAX_TOKENS", 2000)),
		HTTPTimeout:        envDuration("HTTP_TIMEOUT", 2*time.Minute),
		MaxContextTokens:   envInt("MAX_CONTEXT_TOKENS", 100000),
		SummaryLength:      envOr("SUMMARY_LENGTH", "50"),
		SummaryBackend:     envOr("SUMMARY_BACKEND", "GPT"),
		DatabasePath:       envOr("DATABASE_PATH", "./scribe.db"),
		DiscordToken:       os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordWebhook:     os.Getenv("DISCORD_WEBHOOK_URL"),
	}
}

// LogKeys reports which API keys are present. Keys are checked again by the
// backends on first use; this is only an early warning.
func (c *Config) LogKeys() {
	logKey("OpenAI", c.OpenAIKey)
	logKey("Anthropic", c.AnthropicKey)
}

func logKey(name, key string) {
	if key == "" {
		log.Printf("config: %s API key not set", name)
		return
	}
	log.Printf("config: %s API key exists and begins %s", name, prefix(key, 8))
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
