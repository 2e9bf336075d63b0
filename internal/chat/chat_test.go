package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/lavudyaraja/nextgenai-sub000/internal/conversation"
	"github.com/lavudyaraja/nextgenai-sub000/internal/log"
	"github.com/lavudyaraja/nextgenai-sub000/internal/provider"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedProvider is a canned adapter for orchestrator tests.
type scriptedProvider struct {
	name    string
	text    string
	err     error
	calls   int
	history []provider.Message
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) GenerateResponse(_ context.Context, history []provider.Message) (string, error) {
	s.calls++
	s.history = history
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func quotaErr(name string) error {
	return &provider.Error{Provider: name, Kind: provider.KindQuotaExceeded, Err: errors.New("429")}
}

func genericErr(name string) error {
	return &provider.Error{Provider: name, Kind: provider.KindProviderError, Err: errors.New("upstream broke")}
}

// newOrchestrator wires an orchestrator over in-memory stores and the given
// stub adapters, with the first adapter as primary.
func newOrchestrator(t *testing.T, stubs ...*scriptedProvider) (*Orchestrator, *conversation.Gateway) {
	t.Helper()

	gateway := conversation.NewGateway(conversation.NewMemoryStore(), conversation.NewMemoryStore(), log.NewNop())

	adapters := make(map[string]provider.Provider, len(stubs))
	order := make([]string, 0, len(stubs))
	for _, s := range stubs {
		adapters[s.name] = s
		order = append(order, s.name)
	}
	router := provider.NewRouter(adapters, stubs[0].name, order, nil, log.NewNop())

	orch, err := New(Config{Gateway: gateway, Router: router, MaxHistory: 100, Logger: log.NewNop()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return orch, gateway
}

func TestHandleNewConversation(t *testing.T) {
	t.Parallel()

	gpt := &scriptedProvider{name: "gpt", text: "**Hi** there\n\n\n\nwelcome"}
	orch, gateway := newOrchestrator(t, gpt)

	res, err := orch.Handle(context.Background(), Request{OwnerID: "alice", Text: "Hello"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if res.AssistantText != "Hi there\n\nwelcome" {
		t.Errorf("AssistantText = %q, want sanitized reply", res.AssistantText)
	}
	if !res.Created {
		t.Error("Created = false, want true for a new conversation")
	}
	if res.Provider != "gpt" {
		t.Errorf("Provider = %q, want gpt", res.Provider)
	}

	msgs, err := gateway.ListMessages(context.Background(), res.ConversationID, 0)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != conversation.RoleUser || msgs[0].Content != "Hello" {
		t.Errorf("first message = (%s, %q), want user turn", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != conversation.RoleAssistant || msgs[1].Content != "Hi there\n\nwelcome" {
		t.Errorf("second message = (%s, %q), want sanitized assistant turn", msgs[1].Role, msgs[1].Content)
	}
}

func TestHandleOwnershipMismatch(t *testing.T) {
	t.Parallel()

	gpt := &scriptedProvider{name: "gpt", text: "unused"}
	orch, gateway := newOrchestrator(t, gpt)

	res, err := orch.Handle(context.Background(), Request{OwnerID: "alice", Text: "mine"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	_, err = orch.Handle(context.Background(), Request{
		OwnerID:        "bob",
		ConversationID: res.ConversationID.String(),
		Text:           "not yours",
	})
	if !errors.Is(err, conversation.ErrForbidden) {
		t.Fatalf("Handle() error = %v, want ErrForbidden", err)
	}

	msgs, err := gateway.ListMessages(context.Background(), res.ConversationID, 0)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("forbidden turn wrote messages: have %d, want 2", len(msgs))
	}
	if gpt.calls != 1 {
		t.Errorf("provider called %d times, want 1 (forbidden turn must not reach it)", gpt.calls)
	}
}

func TestHandleUnknownConversation(t *testing.T) {
	t.Parallel()

	orch, _ := newOrchestrator(t, &scriptedProvider{name: "gpt", text: "unused"})

	_, err := orch.Handle(context.Background(), Request{
		OwnerID:        "alice",
		ConversationID: "3b2383a0-0c65-4bbf-8e6f-7a9dcff1f6fa",
		Text:           "hello?",
	})
	if !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("Handle() error = %v, want ErrNotFound", err)
	}
}

func TestHandleQuotaFailover(t *testing.T) {
	t.Parallel()

	gpt := &scriptedProvider{name: "gpt", err: quotaErr("gpt")}
	gemini := &scriptedProvider{name: "gemini", text: "ok"}
	claude := &scriptedProvider{name: "claude", text: "unused"}
	orch, gateway := newOrchestrator(t, gpt, gemini, claude)

	res, err := orch.Handle(context.Background(), Request{OwnerID: "alice", Text: "hi"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if res.AssistantText != "ok" {
		t.Errorf("AssistantText = %q, want ok", res.AssistantText)
	}
	if res.Provider != "gemini" {
		t.Errorf("Provider = %q, want gemini", res.Provider)
	}
	if claude.calls != 0 {
		t.Errorf("third adapter invoked %d times, want 0", claude.calls)
	}

	msgs, _ := gateway.ListMessages(context.Background(), res.ConversationID, 0)
	if len(msgs) != 2 {
		t.Errorf("persisted %d messages, want 2", len(msgs))
	}
}

func TestHandleAllProvidersFail(t *testing.T) {
	t.Parallel()

	gpt := &scriptedProvider{name: "gpt", err: genericErr("gpt")}
	gemini := &scriptedProvider{name: "gemini", text: "unused"}
	orch, gateway := newOrchestrator(t, gpt, gemini)

	res, err := orch.Handle(context.Background(), Request{OwnerID: "alice", Text: "hi"})
	if err != nil {
		t.Fatalf("Handle() should recover provider failures, got error %v", err)
	}

	if res.AssistantText == "" || !strings.Contains(res.AssistantText, "gpt") {
		t.Errorf("AssistantText = %q, want explanation naming the provider", res.AssistantText)
	}
	if gemini.calls != 0 {
		t.Errorf("non-quota failure cascaded: gemini called %d times", gemini.calls)
	}

	msgs, _ := gateway.ListMessages(context.Background(), res.ConversationID, 0)
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want user turn plus explanation", len(msgs))
	}
	if msgs[1].Content != res.AssistantText {
		t.Errorf("persisted explanation %q differs from returned %q", msgs[1].Content, res.AssistantText)
	}
}

func TestHandleUnconfiguredProvider(t *testing.T) {
	t.Parallel()

	gpt := &scriptedProvider{name: "gpt", text: "unused"}
	orch, gateway := newOrchestrator(t, gpt)

	res, err := orch.Handle(context.Background(), Request{
		OwnerID:  "alice",
		Provider: "gemini",
		Text:     "hi",
	})
	if err != nil {
		t.Fatalf("Handle() should recover configuration errors, got %v", err)
	}
	if !strings.Contains(res.AssistantText, "gemini") || !strings.Contains(res.AssistantText, "not configured") {
		t.Errorf("AssistantText = %q, want explanation naming gemini as unconfigured", res.AssistantText)
	}
	if gpt.calls != 0 {
		t.Errorf("primary invoked %d times for an unconfigured preference, want 0", gpt.calls)
	}

	msgs, _ := gateway.ListMessages(context.Background(), res.ConversationID, 0)
	if len(msgs) != 2 {
		t.Errorf("persisted %d messages, want 2", len(msgs))
	}
}

func TestHandleReplaysHistory(t *testing.T) {
	t.Parallel()

	gpt := &scriptedProvider{name: "gpt", text: "first reply"}
	orch, _ := newOrchestrator(t, gpt)

	res, err := orch.Handle(context.Background(), Request{OwnerID: "alice", Text: "one"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	gpt.text = "second reply"
	if _, err := orch.Handle(context.Background(), Request{
		OwnerID:        "alice",
		ConversationID: res.ConversationID.String(),
		Text:           "two",
	}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := []provider.Message{
		{Role: conversation.RoleUser, Content: "one"},
		{Role: conversation.RoleAssistant, Content: "first reply"},
		{Role: conversation.RoleUser, Content: "two"},
	}
	if len(gpt.history) != len(want) {
		t.Fatalf("provider saw %d history entries, want %d", len(gpt.history), len(want))
	}
	for i := range want {
		if gpt.history[i] != want[i] {
			t.Errorf("history[%d] = %+v, want %+v", i, gpt.history[i], want[i])
		}
	}
}

func TestHandleHistoryWindow(t *testing.T) {
	t.Parallel()

	gpt := &scriptedProvider{name: "gpt", text: "r"}
	gateway := conversation.NewGateway(conversation.NewMemoryStore(), conversation.NewMemoryStore(), log.NewNop())
	router := provider.NewRouter(map[string]provider.Provider{"gpt": gpt}, "gpt", []string{"gpt"}, nil, log.NewNop())

	orch, err := New(Config{Gateway: gateway, Router: router, MaxHistory: 2, Logger: log.NewNop()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := orch.Handle(context.Background(), Request{OwnerID: "alice", Text: "one"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	for _, text := range []string{"two", "three"} {
		if _, err := orch.Handle(context.Background(), Request{
			OwnerID:        "alice",
			ConversationID: res.ConversationID.String(),
			Text:           text,
		}); err != nil {
			t.Fatalf("Handle(%q) error = %v", text, err)
		}
	}

	// Stored transcript has four messages; the window keeps the last two
	// plus the in-flight user message.
	if len(gpt.history) != 3 {
		t.Fatalf("provider saw %d history entries, want 3", len(gpt.history))
	}
	if last := gpt.history[len(gpt.history)-1]; last.Content != "three" || last.Role != conversation.RoleUser {
		t.Errorf("final history entry = %+v, want the in-flight user message", last)
	}
}

func TestHandleInputValidation(t *testing.T) {
	t.Parallel()

	orch, _ := newOrchestrator(t, &scriptedProvider{name: "gpt", text: "unused"})

	if _, err := orch.Handle(context.Background(), Request{Text: "hi"}); !errors.Is(err, ErrEmptyOwner) {
		t.Errorf("missing owner: error = %v, want ErrEmptyOwner", err)
	}
	if _, err := orch.Handle(context.Background(), Request{OwnerID: "alice", Text: "  "}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("blank text: error = %v, want ErrEmptyText", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	router := provider.NewRouter(nil, "gpt", nil, nil, log.NewNop())
	gateway := conversation.NewGateway(conversation.NewMemoryStore(), conversation.NewMemoryStore(), log.NewNop())

	if _, err := New(Config{Router: router}); !errors.Is(err, ErrGatewayNil) {
		t.Errorf("New without gateway: error = %v, want ErrGatewayNil", err)
	}
	if _, err := New(Config{Gateway: gateway}); !errors.Is(err, ErrRouterNil) {
		t.Errorf("New without router: error = %v, want ErrRouterNil", err)
	}
}
