package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/chris/scribe/internal/llm"
	"github.com/chris/scribe/internal/prompt"
	"github.com/chris/scribe/internal/settings"
	"github.com/chris/scribe/internal/tools"
)

// ErrSecondToolRound is returned when the model asks for another tool call
// after it has already received a tool result.
var ErrSecondToolRound = errors.New("model requested a second tool round")

// minHistoryBudget leaves room for at least the current turn.
const minHistoryBudget = 1000

type ToolHandler interface {
	Handle(ctx context.Context, msg llm.Message) (tools.Result, error)
}

type state int

const (
	stateInit state = iota
	stateAwaitingFirst
	stateAwaitingTool
	stateAwaitingSecond
	stateDone
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateAwaitingFirst:
		return "awaiting_first_response"
	case stateAwaitingTool:
		return "awaiting_tool_result"
	case stateAwaitingSecond:
		return "awaiting_second_response"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Agent struct {
	backends         *llm.Registry
	tools            ToolHandler
	MaxContextTokens int
}

func New(backends *llm.Registry, handler ToolHandler, maxContextTokens int) *Agent {
	return &Agent{backends: backends, tools: handler, MaxContextTokens: maxContextTokens}
}

// Run answers userMessage with at most one tool round and returns the reply
// together with the history extended by this turn.
func (a *Agent) Run(ctx context.Context, snap settings.Snapshot, history []llm.Message, userMessage string) (string, []llm.Message, error) {
	client, err := a.backends.Get(snap.Backend)
	if err != nil {
		return "", nil, err
	}

	var (
		st       = stateInit
		messages []llm.Message
		turn     []llm.Message // appended to history on success
		resp     *llm.Response
		reply    string
	)
	for st != stateDone {
		switch st {
		case stateInit:
			trimmed := llm.TrimMessages(history, a.historyBudget(snap))
			if len(trimmed) < len(history) {
				log.Printf("agent: history trimmed: %d → %d messages", len(history), len(trimmed))
			}
			messages = prompt.Summarize(snap, trimmed, userMessage)
			turn = append(turn, messages[len(messages)-1])
			st = stateAwaitingFirst

		case stateAwaitingFirst:
			resp, err = client.Chat(ctx, messages, llm.ArticleTools)
			if err != nil {
				return "", nil, fmt.Errorf("llm chat: %w", err)
			}
			if resp.FinishReason == llm.FinishToolCalls {
				st = stateAwaitingTool
			} else {
				reply = resp.Content
				st = stateDone
			}

		case stateAwaitingTool:
			// Only the first call is answered, so only it is replayed.
			call := llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: firstCall(resp.ToolCalls)}
			result, err := a.tools.Handle(ctx, call)
			if err != nil {
				return "", nil, fmt.Errorf("tool call: %w", err)
			}
			log.Printf("agent: tool %s → %s", call.ToolCalls[0].Name, truncate(result.Payload, 200))
			messages = append(messages, call, result.Message())
			turn = append(turn, call, result.Message())
			st = stateAwaitingSecond

		case stateAwaitingSecond:
			resp, err = client.Chat(ctx, messages, nil)
			if err != nil {
				return "", nil, fmt.Errorf("llm chat: %w", err)
			}
			if resp.FinishReason == llm.FinishToolCalls || len(resp.ToolCalls) > 0 {
				return "", nil, ErrSecondToolRound
			}
			reply = resp.Content
			st = stateDone

		default:
			return "", nil, fmt.Errorf("agent: unexpected %s", st)
		}
	}

	turn = append(turn, llm.Message{Role: llm.RoleAssistant, Content: reply})
	newHistory := make([]llm.Message, 0, len(history)+len(turn))
	newHistory = append(newHistory, history...)
	newHistory = append(newHistory, turn...)
	return reply, newHistory, nil
}

func (a *Agent) historyBudget(snap settings.Snapshot) int {
	fixed := llm.EstimateTokens(prompt.SummarySystem(snap.SummaryLength)) + llm.EstimateToolsTokens(llm.ArticleTools)
	budget := a.MaxContextTokens - fixed
	if budget < minHistoryBudget {
		budget = minHistoryBudget
	}
	return budget
}

func firstCall(calls []llm.ToolCall) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	return calls[:1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
