package tools

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/chris/scribe/internal/llm"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	ErrNoToolCall         = errors.New("message has no tool call")
	ErrUnknownTool        = errors.New("unknown tool")
	ErrMalformedArguments = errors.New("malformed tool arguments")
	ErrMissingURL         = errors.New("tool arguments missing url")
)

// ArticleFetcher is satisfied by *article.Extractor.
type ArticleFetcher interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Result is the outcome of one tool call.
type Result struct {
	CallID  string
	Payload string // {"article_text": "..."}
}

func (r Result) Message() llm.Message {
	return llm.Message{Role: llm.RoleTool, Content: r.Payload, ToolCallID: r.CallID}
}

type Dispatcher struct {
	articles ArticleFetcher
}

func NewDispatcher(articles ArticleFetcher) *Dispatcher {
	return &Dispatcher{articles: articles}
}

// Handle runs the first tool call on msg. Any further calls are ignored.
func (d *Dispatcher) Handle(ctx context.Context, msg llm.Message) (Result, error) {
	if len(msg.ToolCalls) == 0 {
		return Result{}, ErrNoToolCall
	}
	if len(msg.ToolCalls) > 1 {
		log.Printf("tools: ignoring %d extra tool call(s)", len(msg.ToolCalls)-1)
	}
	tc := msg.ToolCalls[0]

	switch tc.Name {
	case llm.GetTextTool:
		url, err := urlArgument(tc.Arguments)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", tc.Name, err)
		}
		text, err := d.articles.Extract(ctx, url)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", tc.Name, err)
		}
		log.Printf("tools: %s %s → %d chars", tc.Name, url, len(text))
		payload, err := sjson.Set("", "article_text", text)
		if err != nil {
			return Result{}, fmt.Errorf("encoding %s result: %w", tc.Name, err)
		}
		return Result{CallID: tc.ID, Payload: payload}, nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTool, tc.Name)
	}
}

func urlArgument(args string) (string, error) {
	if !gjson.Valid(args) {
		return "", fmt.Errorf("%w: %q", ErrMalformedArguments, args)
	}
	parsed := gjson.Parse(args)
	if !parsed.IsObject() {
		return "", fmt.Errorf("%w: expected an object, got %q", ErrMalformedArguments, args)
	}
	url := parsed.Get("url")
	if url.Type != gjson.String || url.Str == "" {
		return "", ErrMissingURL
	}
	return url.Str, nil
}
