package converter

import (
	"context"
	"fmt"
	"log"

	"github.com/chris/scribe/internal/llm"
	"github.com/chris/scribe/internal/prompt"
	"github.com/chris/scribe/internal/settings"
)

type Request struct {
	Code       string
	SourceLang string
	DestLang   string
	Backend    llm.Backend
}

// RequestFrom fills the languages and backend from a settings snapshot.
func RequestFrom(snap settings.Snapshot, code string) Request {
	return Request{
		Code:       code,
		SourceLang: snap.SourceLang,
		DestLang:   snap.DestLang,
		Backend:    snap.Backend,
	}
}

type Converter struct {
	backends *llm.Registry
}

func New(backends *llm.Registry) *Converter {
	return &Converter{backends: backends}
}

// Convert streams the translation of req.Code, calling onUpdate with the
// cumulative cleaned text after every fragment. It returns the final text.
func (c *Converter) Convert(ctx context.Context, req Request, onUpdate func(string) error) (string, error) {
	if err := settings.ValidateLanguage(req.SourceLang); err != nil {
		return "", fmt.Errorf("source language: %w", err)
	}
	if err := settings.ValidateLanguage(req.DestLang); err != nil {
		return "", fmt.Errorf("destination language: %w", err)
	}
	client, err := c.backends.Get(req.Backend)
	if err != nil {
		return "", err
	}

	log.Printf("converter: %s → %s via %s (%d bytes)", req.SourceLang, req.DestLang, req.Backend, len(req.Code))

	acc := NewAccumulator(req.DestLang)
	err = client.Stream(ctx, prompt.Translate(req.Code, req.SourceLang, req.DestLang), func(fragment string) error {
		text := acc.Add(fragment)
		if onUpdate == nil {
			return nil
		}
		return onUpdate(text)
	})
	if err != nil {
		return "", fmt.Errorf("converting with %s: %w", req.Backend, err)
	}
	return acc.String(), nil
}
