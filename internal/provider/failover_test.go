package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/lavudyaraja/nextgenai-sub000/internal/log"
)

// stubProvider is a scripted adapter for router tests. Each call consumes
// the next entry of script; running past the end repeats the last entry.
type stubProvider struct {
	name   string
	script []stubResult
	calls  int
}

type stubResult struct {
	text string
	err  error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) GenerateResponse(_ context.Context, _ []Message) (string, error) {
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	r := s.script[idx]
	return r.text, r.err
}

func ok(text string) stubResult { return stubResult{text: text} }

func fail(name string, kind Kind) stubResult {
	return stubResult{err: &Error{Provider: name, Kind: kind, Err: errors.New("stubbed")}}
}

func newTestRouter(primary string, order []string, stubs ...*stubProvider) *Router {
	adapters := make(map[string]Provider, len(stubs))
	for _, s := range stubs {
		adapters[s.name] = s
	}
	return NewRouter(adapters, primary, order, nil, log.NewNop())
}

func TestCompleteSuccess(t *testing.T) {
	t.Parallel()

	gpt := &stubProvider{name: "gpt", script: []stubResult{ok("hello")}}
	router := newTestRouter("gpt", []string{"gpt", "gemini"}, gpt)

	text, used, err := router.Complete(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "hello" || used != "gpt" {
		t.Errorf("Complete() = (%q, %q), want (hello, gpt)", text, used)
	}
}

func TestCompletePreferredOverridesPrimary(t *testing.T) {
	t.Parallel()

	gpt := &stubProvider{name: "gpt", script: []stubResult{ok("from gpt")}}
	claude := &stubProvider{name: "claude", script: []stubResult{ok("from claude")}}
	router := newTestRouter("gpt", []string{"gpt", "claude"}, gpt, claude)

	text, used, err := router.Complete(context.Background(), "claude", nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "from claude" || used != "claude" {
		t.Errorf("Complete() = (%q, %q), want (from claude, claude)", text, used)
	}
	if gpt.calls != 0 {
		t.Errorf("primary was called %d times, want 0", gpt.calls)
	}
}

func TestCompleteUnconfiguredPreferred(t *testing.T) {
	t.Parallel()

	gpt := &stubProvider{name: "gpt", script: []stubResult{ok("unused")}}
	router := newTestRouter("gpt", []string{"gpt", "gemini"}, gpt)

	_, _, err := router.Complete(context.Background(), "gemini", nil)

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Complete() error = %v, want *ConfigError", err)
	}
	if cfgErr.Provider != "gemini" {
		t.Errorf("ConfigError.Provider = %q, want gemini", cfgErr.Provider)
	}
	if gpt.calls != 0 {
		t.Errorf("no adapter should be attempted, gpt called %d times", gpt.calls)
	}
}

func TestCompleteUnknownPreferred(t *testing.T) {
	t.Parallel()

	gpt := &stubProvider{name: "gpt", script: []stubResult{ok("unused")}}
	router := newTestRouter("gpt", []string{"gpt"}, gpt)

	_, _, err := router.Complete(context.Background(), "grok", nil)

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Complete() error = %v, want *ConfigError", err)
	}
}

func TestQuotaOnPrimaryFailsOver(t *testing.T) {
	t.Parallel()

	gpt := &stubProvider{name: "gpt", script: []stubResult{fail("gpt", KindQuotaExceeded)}}
	gemini := &stubProvider{name: "gemini", script: []stubResult{ok("fallback reply")}}
	router := newTestRouter("gpt", []string{"gpt", "gemini", "claude"}, gpt, gemini)

	text, used, err := router.Complete(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "fallback reply" || used != "gemini" {
		t.Errorf("Complete() = (%q, %q), want (fallback reply, gemini)", text, used)
	}
}

func TestQuotaOnSecondaryDoesNotCascade(t *testing.T) {
	t.Parallel()

	gpt := &stubProvider{name: "gpt", script: []stubResult{ok("unused")}}
	claude := &stubProvider{name: "claude", script: []stubResult{fail("claude", KindQuotaExceeded)}}
	router := newTestRouter("gpt", []string{"gpt", "claude"}, gpt, claude)

	_, used, err := router.Complete(context.Background(), "claude", nil)
	if !IsQuota(err) {
		t.Fatalf("Complete() error = %v, want quota error", err)
	}
	if used != "claude" {
		t.Errorf("used = %q, want claude", used)
	}
	if gpt.calls != 0 {
		t.Errorf("cascade from secondary must not happen, gpt called %d times", gpt.calls)
	}
}

func TestNonQuotaFailuresDoNotCascade(t *testing.T) {
	t.Parallel()

	kinds := []Kind{KindUnauthenticated, KindTimeout, KindProviderError}

	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			gpt := &stubProvider{name: "gpt", script: []stubResult{fail("gpt", kind)}}
			gemini := &stubProvider{name: "gemini", script: []stubResult{ok("unused")}}
			router := newTestRouter("gpt", []string{"gpt", "gemini"}, gpt, gemini)

			_, _, err := router.Complete(context.Background(), "", nil)

			var perr *Error
			if !errors.As(err, &perr) || perr.Kind != kind {
				t.Fatalf("Complete() error = %v, want kind %v", err, kind)
			}
			if gemini.calls != 0 {
				t.Errorf("fallback was attempted for kind %v", kind)
			}
		})
	}
}

func TestCascadeSkipsUnconfiguredAndContinuesOnAnyFailure(t *testing.T) {
	t.Parallel()

	// gemini is absent from the adapter set, claude fails with a non-quota
	// error, openrouter succeeds.
	gpt := &stubProvider{name: "gpt", script: []stubResult{fail("gpt", KindQuotaExceeded)}}
	claude := &stubProvider{name: "claude", script: []stubResult{fail("claude", KindTimeout)}}
	openrouter := &stubProvider{name: "openrouter", script: []stubResult{ok("last resort")}}
	router := newTestRouter("gpt", []string{"gpt", "gemini", "claude", "openrouter"}, gpt, claude, openrouter)

	text, used, err := router.Complete(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "last resort" || used != "openrouter" {
		t.Errorf("Complete() = (%q, %q), want (last resort, openrouter)", text, used)
	}
	if claude.calls != 1 {
		t.Errorf("claude.calls = %d, want 1", claude.calls)
	}
}

func TestCascadeExhausted(t *testing.T) {
	t.Parallel()

	gpt := &stubProvider{name: "gpt", script: []stubResult{fail("gpt", KindQuotaExceeded)}}
	gemini := &stubProvider{name: "gemini", script: []stubResult{fail("gemini", KindQuotaExceeded)}}
	claude := &stubProvider{name: "claude", script: []stubResult{fail("claude", KindProviderError)}}
	router := newTestRouter("gpt", []string{"gpt", "gemini", "claude"}, gpt, gemini, claude)

	_, _, err := router.Complete(context.Background(), "", nil)

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Complete() error = %v, want *ExhaustedError", err)
	}
	want := []string{"gpt", "gemini", "claude"}
	if len(exhausted.Attempts) != len(want) {
		t.Fatalf("Attempts = %v, want %v", exhausted.Attempts, want)
	}
	for i := range want {
		if exhausted.Attempts[i] != want[i] {
			t.Errorf("Attempts[%d] = %q, want %q", i, exhausted.Attempts[i], want[i])
		}
	}

	var perr *Error
	if !errors.As(exhausted.Last, &perr) || perr.Provider != "claude" {
		t.Errorf("Last = %v, want the claude failure", exhausted.Last)
	}
}

func TestCascadeNeverRetriesPrimary(t *testing.T) {
	t.Parallel()

	gpt := &stubProvider{name: "gpt", script: []stubResult{fail("gpt", KindQuotaExceeded)}}
	// The order lists the primary twice by misconfiguration; it must still
	// be attempted exactly once.
	router := newTestRouter("gpt", []string{"gpt", "gpt"}, gpt)

	_, _, err := router.Complete(context.Background(), "", nil)

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Complete() error = %v, want *ExhaustedError", err)
	}
	if gpt.calls != 1 {
		t.Errorf("gpt.calls = %d, want 1", gpt.calls)
	}
}
