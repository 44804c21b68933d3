package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/chris/scribe/internal/db"
	"github.com/chris/scribe/internal/llm"
	"github.com/chris/scribe/internal/prompt"
	"github.com/chris/scribe/internal/settings"
	"github.com/robfig/cron/v3"
)

var ErrDigestNotFound = errors.New("digest not found")

// Summarizer is the part of the agent a digest run needs.
type Summarizer interface {
	Run(ctx context.Context, snap settings.Snapshot, history []llm.Message, userMessage string) (string, []llm.Message, error)
}

type Scheduler struct {
	cron       *cron.Cron
	webhookURL string
	httpClient *http.Client
	db         *db.DB
	summarizer Summarizer
	settings   *settings.Store
	dmSend     func(userID, content string) error
	mu         sync.Mutex
	entryIDs   map[int64]cron.EntryID // digestID -> cron entry
	stop       chan struct{}
}

func New(database *db.DB, summarizer Summarizer, store *settings.Store, webhookURL string, dmSend func(userID, content string) error) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		db:         database,
		summarizer: summarizer,
		settings:   store,
		dmSend:     dmSend,
		entryIDs:   make(map[int64]cron.EntryID),
		stop:       make(chan struct{}),
	}
}

// Validate reports whether expr is a cron expression the scheduler accepts.
func Validate(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.loadDigests()
	s.cron.Start()

	// Reload every 5 minutes to pick up digests added from the CLI.
	go func() {
		t := time.NewTicker(5 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				s.loadDigests()
			case <-s.stop:
				return
			}
		}
	}()

	log.Println("scheduler started")
}

func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.cron.Stop().Done()
}

// Entries returns the number of registered digests.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entryIDs)
}

func (s *Scheduler) loadDigests() {
	digests, err := s.db.ListDigests(true)
	if err != nil {
		log.Printf("scheduler: loading digests: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Remove all existing entries and re-register.
	for _, entryID := range s.entryIDs {
		s.cron.Remove(entryID)
	}
	s.entryIDs = make(map[int64]cron.EntryID)

	for _, d := range digests {
		d := d
		entryID, err := s.cron.AddFunc(d.CronExpr, func() {
			if _, err := s.runDigest(context.Background(), d); err != nil {
				log.Printf("scheduler[%s]: %v", d.Name, err)
			}
		})
		if err != nil {
			log.Printf("scheduler: invalid cron %q for digest %q: %v", d.CronExpr, d.Name, err)
			continue
		}
		s.entryIDs[d.ID] = entryID
	}

	log.Printf("scheduler: loaded %d digest(s)", len(s.entryIDs))
}

// RunNow runs the named digest immediately and returns its summary.
func (s *Scheduler) RunNow(ctx context.Context, name string) (string, error) {
	d, err := s.db.GetDigest(name)
	if err != nil {
		return "", err
	}
	if d == nil {
		return "", fmt.Errorf("%w: %q", ErrDigestNotFound, name)
	}
	return s.runDigest(ctx, *d)
}

func (s *Scheduler) runDigest(ctx context.Context, d db.Digest) (string, error) {
	snap := s.settings.Snapshot()
	summary, _, err := s.summarizer.Run(ctx, snap, nil, prompt.SummarizeURL(d.URL))
	if err != nil {
		return "", fmt.Errorf("summarizing %s: %w", d.URL, err)
	}

	if _, err := s.db.SaveSummary(d.URL, summary, &d.ID); err != nil {
		log.Printf("scheduler[%s]: storing summary: %v", d.Name, err)
	}
	if err := s.db.RecordDigestRun(d.ID); err != nil {
		log.Printf("scheduler[%s]: recording run: %v", d.Name, err)
	}

	s.deliver(ctx, fmt.Sprintf("scheduler[%s]", d.Name), summary)
	log.Printf("scheduler[%s]: completed", d.Name)
	return summary, nil
}

func (s *Scheduler) deliver(ctx context.Context, label, content string) {
	if s.dmSend != nil {
		userID, err := s.db.GetNote("discord_user_id")
		if err == nil && userID != "" {
			if err := s.dmSend(userID, content); err != nil {
				log.Printf("%s: DM send failed: %v", label, err)
			} else {
				return
			}
		}
	}
	if s.webhookURL != "" {
		if err := postWebhook(ctx, s.httpClient, s.webhookURL, content); err != nil {
			log.Printf("%s: webhook failed: %v", label, err)
		}
		return
	}
	log.Printf("%s: no delivery method available (no DM user and no webhook)", label)
}

func postWebhook(ctx context.Context, client *http.Client, url, content string) error {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
