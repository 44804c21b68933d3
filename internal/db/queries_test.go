package db

import (
	"errors"
	"testing"

	"github.com/chris/scribe/internal/llm"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// --- Conversations ---

func TestConversationRoundTrip(t *testing.T) {
	d := openTestDB(t)

	id, err := d.CreateConversation("reuters")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("expected a uuid, got %q", id)
	}

	turn := []llm.Message{
		{Role: llm.RoleUser, Content: "summarize http://example.test/a"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "get_text", Arguments: `{"url":"http://example.test/a"}`}}},
		{Role: llm.RoleTool, Content: `{"article_text":"Hello world"}`, ToolCallID: "call_1"},
		{Role: llm.RoleAssistant, Content: "A greeting."},
	}
	if err := d.AppendMessages(id, turn[:2]); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}
	if err := d.AppendMessages(id, turn[2:]); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}

	got, err := d.LoadMessages(id)
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(got) != len(turn) {
		t.Fatalf("expected %d messages, got %d", len(turn), len(got))
	}
	for i := range turn {
		if got[i].Role != turn[i].Role || got[i].Content != turn[i].Content || got[i].ToolCallID != turn[i].ToolCallID {
			t.Errorf("message %d: got %+v, want %+v", i, got[i], turn[i])
		}
	}
	if len(got[1].ToolCalls) != 1 || got[1].ToolCalls[0].Arguments != `{"url":"http://example.test/a"}` {
		t.Errorf("tool calls not restored: %+v", got[1].ToolCalls)
	}
}

func TestLoadMessages_Unknown(t *testing.T) {
	d := openTestDB(t)
	if _, err := d.LoadMessages("nope"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestAppendMessages_Unknown(t *testing.T) {
	d := openTestDB(t)
	if err := d.AppendMessages("nope", nil); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
	if err := d.AppendMessages("nope", []llm.Message{{Role: llm.RoleUser, Content: "x"}}); err == nil {
		t.Error("expected error appending to an unknown conversation")
	}
}

func TestListConversations(t *testing.T) {
	d := openTestDB(t)
	first, _ := d.CreateConversation("first")
	second, _ := d.CreateConversation("second")
	if err := d.AppendMessages(second, []llm.Message{{Role: llm.RoleUser, Content: "hi"}}); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}

	convs, err := d.ListConversations(0)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	counts := map[string]int{}
	for _, c := range convs {
		counts[c.ID] = c.Messages
	}
	if counts[first] != 0 || counts[second] != 1 {
		t.Errorf("unexpected message counts %v", counts)
	}
}

// --- Digests ---

func TestDigestLifecycle(t *testing.T) {
	d := openTestDB(t)

	id, err := d.CreateDigest("markets", "0 8 * * *", "http://example.test/markets")
	if err != nil {
		t.Fatalf("CreateDigest: %v", err)
	}
	if _, err := d.CreateDigest("markets", "0 9 * * *", "http://example.test/other"); err == nil {
		t.Error("expected duplicate name to fail")
	}

	g, err := d.GetDigest("markets")
	if err != nil || g == nil {
		t.Fatalf("GetDigest: %v %v", g, err)
	}
	if g.ID != id || !g.Enabled || g.URL != "http://example.test/markets" {
		t.Errorf("unexpected digest %+v", g)
	}

	if err := d.SetDigestEnabled("markets", false); err != nil {
		t.Fatalf("SetDigestEnabled: %v", err)
	}
	enabled, _ := d.ListDigests(true)
	if len(enabled) != 0 {
		t.Errorf("expected no enabled digests, got %d", len(enabled))
	}

	if err := d.RecordDigestRun(id); err != nil {
		t.Fatalf("RecordDigestRun: %v", err)
	}
	g, _ = d.GetDigest("markets")
	if g.LastRun == "" {
		t.Error("expected last_run to be set")
	}

	if err := d.DeleteDigest("markets"); err != nil {
		t.Fatalf("DeleteDigest: %v", err)
	}
	if err := d.DeleteDigest("markets"); err == nil {
		t.Error("expected deleting a missing digest to fail")
	}
	if g, _ := d.GetDigest("markets"); g != nil {
		t.Errorf("expected digest gone, got %+v", g)
	}
}

// --- Summaries ---

func TestSummaries(t *testing.T) {
	d := openTestDB(t)
	digestID, _ := d.CreateDigest("tech", "@daily", "http://example.test/tech")

	if _, err := d.SaveSummary("http://example.test/a", "one two three", nil); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}
	if _, err := d.SaveSummary("http://example.test/tech", "four five", &digestID); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	all, err := d.ListSummaries("", 0)
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(all))
	}
	if all[0].URL != "http://example.test/tech" || all[0].Words != 2 {
		t.Errorf("expected newest first with word count, got %+v", all[0])
	}
	if all[0].DigestID == nil || *all[0].DigestID != digestID {
		t.Errorf("expected digest id %d, got %v", digestID, all[0].DigestID)
	}
	if all[1].DigestID != nil {
		t.Errorf("expected no digest id, got %v", *all[1].DigestID)
	}

	one, _ := d.ListSummaries("http://example.test/a", 5)
	if len(one) != 1 || one[0].Words != 3 {
		t.Errorf("unexpected filtered summaries %+v", one)
	}
}

// --- Notes ---

func TestNotes(t *testing.T) {
	d := openTestDB(t)

	v, err := d.GetNote("discord_user_id")
	if err != nil || v != "" {
		t.Errorf("expected empty note, got (%q, %v)", v, err)
	}
	if err := d.SetNote("discord_user_id", "123"); err != nil {
		t.Fatalf("SetNote: %v", err)
	}
	if err := d.SetNote("discord_user_id", "456"); err != nil {
		t.Fatalf("SetNote: %v", err)
	}
	if v, _ := d.GetNote("discord_user_id"); v != "456" {
		t.Errorf("expected 456, got %q", v)
	}
}
