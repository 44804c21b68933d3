package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropicChat_ToolUse(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if key := r.Header.Get("X-Api-Key"); key != "ak-test" {
			t.Errorf("expected api key header, got %q", key)
		}
		got = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-sonnet-20240620",
			"content":[{"type":"text","text":"Fetching."},{"type":"tool_use","id":"toolu_1","name":"get_text","input":{"url":"http://example.test/a"}}],
			"stop_reason":"tool_use","stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":5}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("ak-test", "", 0, srv.URL, srv.Client())
	resp, err := c.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "summarize http://example.test/a"},
	}, ArticleTools)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if resp.FinishReason != FinishToolCalls {
		t.Errorf("expected finish reason %q, got %q", FinishToolCalls, resp.FinishReason)
	}
	if resp.Content != "Fetching." {
		t.Errorf("expected text content, got %q", resp.Content)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "toolu_1" {
		t.Fatalf("unexpected tool calls %+v", resp.ToolCalls)
	}
	var args map[string]string
	if err := json.Unmarshal([]byte(resp.ToolCalls[0].Arguments), &args); err != nil || args["url"] != "http://example.test/a" {
		t.Errorf("unexpected arguments %q (%v)", resp.ToolCalls[0].Arguments, err)
	}

	if got["max_tokens"] != float64(defaultClaudeMaxTokens) {
		t.Errorf("expected max_tokens %d, got %v", defaultClaudeMaxTokens, got["max_tokens"])
	}
	system, _ := got["system"].([]any)
	if len(system) != 1 {
		t.Fatalf("expected system prompt lifted out of messages, got %v", got["system"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 1 {
		t.Errorf("expected only the user message in messages, got %d", len(msgs))
	}
	tools, _ := got["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	tool, _ := tools[0].(map[string]any)
	schema, _ := tool["input_schema"].(map[string]any)
	if req, _ := schema["required"].([]any); len(req) != 1 || req[0] != "url" {
		t.Errorf("expected url to be required, got %v", schema["required"])
	}
	if schema["additionalProperties"] != false {
		t.Errorf("expected additionalProperties false, got %v", schema["additionalProperties"])
	}
	if _, ok := got["tool_choice"]; ok {
		t.Error("expected no tool_choice when tools are offered")
	}
}

func TestAnthropicChat_ToolResultBecomesUserBlock(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_2","type":"message","role":"assistant","model":"claude-3-5-sonnet-20240620",
			"content":[{"type":"text","text":"A summary."}],
			"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":5}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("ak-test", "", 0, srv.URL, srv.Client())
	resp, err := c.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "summarize http://example.test/a"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "toolu_1", Name: GetTextTool, Arguments: `{"url":"http://example.test/a"}`}}},
		{Role: RoleTool, Content: `{"article_text":"Hello world"}`, ToolCallID: "toolu_1"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "A summary." || resp.FinishReason != FinishStop {
		t.Errorf("unexpected response %+v", resp)
	}
	// Tool blocks need tool definitions; tool_choice none keeps this round tool-free.
	tools, _ := got["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected the called tool to be declared, got %v", got["tools"])
	}
	if tool, _ := tools[0].(map[string]any); tool["name"] != GetTextTool {
		t.Errorf("expected %s declared, got %v", GetTextTool, tool["name"])
	}
	choice, _ := got["tool_choice"].(map[string]any)
	if choice["type"] != "none" {
		t.Errorf("expected tool_choice none, got %v", got["tool_choice"])
	}

	msgs, _ := got["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	last, _ := msgs[2].(map[string]any)
	if last["role"] != "user" {
		t.Errorf("expected tool result in a user turn, got %v", last["role"])
	}
	blocks, _ := last["content"].([]any)
	block, _ := blocks[0].(map[string]any)
	if block["type"] != "tool_result" || block["tool_use_id"] != "toolu_1" {
		t.Errorf("unexpected tool result block %v", block)
	}
}

func TestAnthropicChat_NoToolsNoChoice(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_3","type":"message","role":"assistant","model":"claude-3-5-sonnet-20240620",
			"content":[{"type":"text","text":"ok"}],
			"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":1,"output_tokens":1}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("ak-test", "", 0, srv.URL, srv.Client())
	if _, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if _, ok := got["tools"]; ok {
		t.Error("expected no tools for a plain conversation")
	}
	if _, ok := got["tool_choice"]; ok {
		t.Error("expected no tool_choice for a plain conversation")
	}
}

func TestAnthropicChat_OpensWithUserTurn(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_4","type":"message","role":"assistant","model":"claude-3-5-sonnet-20240620",
			"content":[{"type":"text","text":"ok"}],
			"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":1,"output_tokens":1}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("ak-test", "", 0, srv.URL, srv.Client())
	_, err := c.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleAssistant, Content: "old reply"},
		{Role: RoleUser, Content: "new"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected the leading assistant turn dropped, got %d messages", len(msgs))
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "user" {
		t.Errorf("expected a user turn first, got %v", first["role"])
	}
}

func TestInputSchema(t *testing.T) {
	schema := inputSchema(ArticleTools[0].Parameters)
	if len(schema.Required) != 1 || schema.Required[0] != "url" {
		t.Errorf("expected url required, got %v", schema.Required)
	}
	if schema.ExtraFields["additionalProperties"] != false {
		t.Errorf("expected additionalProperties carried, got %v", schema.ExtraFields)
	}
	if _, ok := schema.ExtraFields["type"]; ok {
		t.Error("type is set by the SDK and must not be duplicated")
	}
}

func TestUsedTools(t *testing.T) {
	got := usedTools([]Message{
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "a", Name: GetTextTool}, {ID: "b", Name: GetTextTool}}},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c", Name: "other"}}},
	})
	if len(got) != 2 || got[0].Name != GetTextTool || got[1].Name != "other" {
		t.Fatalf("unexpected tools %+v", got)
	}
	if got[0].Description != ArticleTools[0].Description {
		t.Error("expected the known definition for get_text")
	}
}

func TestAnthropicStream(t *testing.T) {
	fragments := []string{"```rust\n", "fn main()", " {}", "\n```"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_1\",\"type\":\"message\",\"role\":\"assistant\",\"model\":\"claude-3-5-sonnet-20240620\",\"content\":[],\"stop_reason\":null,\"stop_sequence\":null,\"usage\":{\"input_tokens\":1,\"output_tokens\":0}}}\n\n")
		io.WriteString(w, "event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\",\"text\":\"\"}}\n\n")
		for _, f := range fragments {
			text, _ := json.Marshal(f)
			fmt.Fprintf(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":%s}}\n\n", text)
		}
		io.WriteString(w, "event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":0}\n\n")
		io.WriteString(w, "event: message_delta\ndata: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"end_turn\",\"stop_sequence\":null},\"usage\":{\"output_tokens\":4}}\n\n")
		io.WriteString(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer srv.Close()

	c := NewAnthropicClient("ak-test", "", 0, srv.URL, srv.Client())
	var got []string
	err := c.Stream(context.Background(), []Message{{Role: RoleUser, Content: "convert"}}, func(s string) error {
		got = append(got, s)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if strings.Join(got, "") != strings.Join(fragments, "") {
		t.Errorf("fragments out of order or missing: %q", got)
	}
}

func TestAnthropicStream_CallbackErrorStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 3; i++ {
			io.WriteString(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"x\"}}\n\n")
		}
	}))
	defer srv.Close()

	stop := errors.New("stop")
	calls := 0
	c := NewAnthropicClient("ak-test", "", 0, srv.URL, srv.Client())
	err := c.Stream(context.Background(), []Message{{Role: RoleUser, Content: "convert"}}, func(string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("expected callback error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 callback, got %d", calls)
	}
}

func TestAnthropic_MissingKey(t *testing.T) {
	c := NewAnthropicClient("", "", 0, "http://127.0.0.1:1", nil)
	if _, err := c.Chat(context.Background(), nil, nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}
