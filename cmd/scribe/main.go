package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chris/scribe/config"
	"github.com/chris/scribe/internal/agent"
	"github.com/chris/scribe/internal/article"
	"github.com/chris/scribe/internal/converter"
	"github.com/chris/scribe/internal/db"
	"github.com/chris/scribe/internal/llm"
	"github.com/chris/scribe/internal/settings"
	"github.com/chris/scribe/internal/tools"
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Convert code between languages and summarize news articles",
	Long: `scribe streams code translations from GPT or Claude and summarizes
news articles with a single article-fetching tool round.

Examples:
  scribe convert --from Python --to C++ main.py
  cat main.py | scribe convert --to Rust --model Claude
  scribe chat --length 75
  scribe digest add markets "0 8 * * *" https://example.com/markets
  scribe bot`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(convertCmd, chatCmd, digestCmd, botCmd, languagesCmd, historyCmd, serviceCmd)
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported programming languages",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, l := range settings.Languages {
			fmt.Fprintln(cmd.OutOrStdout(), l)
		}
	},
}

// app holds the wired services a command needs.
type app struct {
	cfg       *config.Config
	settings  *settings.Store
	converter *converter.Converter
	agent     *agent.Agent
	db        *db.DB
}

func newApp(withDB bool) (*app, error) {
	cfg := config.Load()
	cfg.LogKeys()

	convertBackends, err := buildRegistry(cfg, cfg.OpenAIModel)
	if err != nil {
		return nil, err
	}
	summaryBackends, err := buildRegistry(cfg, cfg.OpenAISummaryModel)
	if err != nil {
		return nil, err
	}

	store := settings.NewStore(settings.Default())
	if err := store.SetSummaryLength(cfg.SummaryLength); err != nil {
		log.Printf("config: SUMMARY_LENGTH: %v, using %d", err, settings.DefaultSummaryLength)
	}
	if err := store.SetBackend(cfg.SummaryBackend); err != nil {
		log.Printf("config: SUMMARY_BACKEND: %v, using %s", err, llm.BackendGPT)
	}

	extractor := article.NewExtractor(&http.Client{Timeout: cfg.HTTPTimeout})
	a := &app{
		cfg:       cfg,
		settings:  store,
		converter: converter.New(convertBackends),
		agent:     agent.New(summaryBackends, tools.NewDispatcher(extractor), cfg.MaxContextTokens),
	}

	if withDB {
		database, err := db.Open(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.db = database
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// buildRegistry registers both backends; gptModel differs between the
// converter and the summarizer.
func buildRegistry(cfg *config.Config, gptModel string) (*llm.Registry, error) {
	reg := llm.NewRegistry()
	providers := []llm.ProviderConfig{
		{Backend: llm.BackendGPT, APIKey: cfg.OpenAIKey, Model: gptModel, Timeout: cfg.HTTPTimeout},
		{Backend: llm.BackendClaude, APIKey: cfg.AnthropicKey, Model: cfg.ClaudeModel, MaxTokens: cfg.ClaudeMaxTokens, Timeout: cfg.HTTPTimeout},
	}
	for _, p := range providers {
		client, err := llm.NewClient(p)
		if err != nil {
			return nil, fmt.Errorf("creating %s client: %w", p.Backend, err)
		}
		reg.Register(p.Backend, client)
	}
	return reg, nil
}
