package llm

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"
)

type Backend string

const (
	BackendGPT    Backend = "GPT"
	BackendClaude Backend = "Claude"
)

var ErrUnknownBackend = errors.New("unknown model backend")

// ParseBackend accepts exactly the UI selector values.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendGPT, BackendClaude:
		return Backend(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

type ProviderConfig struct {
	Backend   Backend
	APIKey    string
	Model     string
	MaxTokens int64 // Claude only
	BaseURL   string
	Timeout   time.Duration
}

func NewClient(cfg ProviderConfig) (Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Backend {
	case BackendGPT:
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, httpClient), nil
	case BackendClaude:
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.BaseURL, httpClient), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Registry resolves a backend selector to its client.
type Registry struct {
	clients map[Backend]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[Backend]Client)}
}

func (r *Registry) Register(b Backend, c Client) {
	r.clients[b] = c
}

func (r *Registry) Get(b Backend) (Client, error) {
	c, ok := r.clients[b]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, b)
	}
	return c, nil
}

func (r *Registry) Backends() []Backend {
	out := make([]Backend, 0, len(r.clients))
	for b := range r.clients {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
