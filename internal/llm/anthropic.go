package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeMaxTokens = 2000

type AnthropicClient struct {
	client    anthropic.Client
	apiKey    string
	model     string
	maxTokens int64
}

func NewAnthropicClient(apiKey, model string, maxTokens int64, baseURL string, httpClient *http.Client) *AnthropicClient {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("anthropic chat: %w (set ANTHROPIC_API_KEY)", ErrMissingAPIKey)
	}

	msg, err := c.client.Messages.New(ctx, c.params(messages, tools))
	if err != nil {
		return nil, fmt.Errorf("anthropic chat: %w", err)
	}

	result := &Response{FinishReason: FinishStop}
	if msg.StopReason == anthropic.StopReasonToolUse {
		result.FinishReason = FinishToolCalls
	}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			result.Content += block.Text
		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}

	return result, nil
}

func (c *AnthropicClient) Stream(ctx context.Context, messages []Message, onFragment func(string) error) error {
	if c.apiKey == "" {
		return fmt.Errorf("anthropic stream: %w (set ANTHROPIC_API_KEY)", ErrMissingAPIKey)
	}

	stream := c.client.Messages.NewStreaming(ctx, c.params(messages, nil))
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
		if !ok {
			continue
		}
		if err := onFragment(delta.Text); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream: %w", err)
	}
	return nil
}

func (c *AnthropicClient) params(messages []Message, tools []Tool) anthropic.MessageNewParams {
	system, rest := splitSystem(messages)
	rest = fromFirstUser(rest)

	// Claude rejects tool_use/tool_result blocks unless tools are defined, so a
	// tool-free follow-up still declares them and forbids their use.
	var choice anthropic.ToolChoiceUnionParam
	if len(tools) == 0 && hasToolBlocks(rest) {
		tools = usedTools(rest)
		if len(tools) > 0 {
			choice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
		}
	}

	var anthTools []anthropic.ToolUnionParam
	for _, t := range tools {
		anthTools = append(anthTools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: inputSchema(t.Parameters),
			},
		})
	}

	var anthMsgs []anthropic.MessageParam
	for _, m := range rest {
		switch m.Role {
		case RoleUser:
			anthMsgs = append(anthMsgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleTool:
			anthMsgs = append(anthMsgs, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, json.RawMessage(tc.Arguments), tc.Name))
			}
			if len(blocks) > 0 {
				anthMsgs = append(anthMsgs, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}

	params := anthropic.MessageNewParams{
		Model:      anthropic.Model(c.model),
		MaxTokens:  c.maxTokens,
		Messages:   anthMsgs,
		Tools:      anthTools,
		ToolChoice: choice,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

// inputSchema maps a JSON Schema object onto the SDK type. Keys the SDK does
// not model, such as additionalProperties, travel as extra fields.
func inputSchema(params map[string]any) anthropic.ToolInputSchemaParam {
	schema := anthropic.ToolInputSchemaParam{Properties: params["properties"]}
	if req, ok := params["required"].([]string); ok {
		schema.Required = req
	}
	for k, v := range params {
		switch k {
		case "type", "properties", "required":
			continue
		}
		if schema.ExtraFields == nil {
			schema.ExtraFields = make(map[string]any)
		}
		schema.ExtraFields[k] = v
	}
	return schema
}

// fromFirstUser drops anything before the first user message; Claude
// conversations must open with a user turn.
func fromFirstUser(messages []Message) []Message {
	for i, m := range messages {
		if m.Role == RoleUser {
			return messages[i:]
		}
	}
	return messages
}

func hasToolBlocks(messages []Message) bool {
	for _, m := range messages {
		if m.Role == RoleTool || len(m.ToolCalls) > 0 {
			return true
		}
	}
	return false
}

// usedTools returns the definitions of the tools called in messages. Unknown
// names get an open object schema.
func usedTools(messages []Message) []Tool {
	known := make(map[string]Tool, len(ArticleTools))
	for _, t := range ArticleTools {
		known[t.Name] = t
	}
	seen := make(map[string]bool)
	var out []Tool
	for _, m := range messages {
		for _, tc := range m.ToolCalls {
			if seen[tc.Name] {
				continue
			}
			seen[tc.Name] = true
			t, ok := known[tc.Name]
			if !ok {
				t = Tool{Name: tc.Name, Parameters: obj(nil)}
			}
			out = append(out, t)
		}
	}
	return out
}
