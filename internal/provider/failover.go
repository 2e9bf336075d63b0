package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lavudyaraja/nextgenai-sub000/internal/log"
	"github.com/lavudyaraja/nextgenai-sub000/internal/telemetry"
)

// ConfigError reports a request for a provider that has no configured
// adapter. It is a caller mistake, not a backend failure, so the router
// never falls back from it.
type ConfigError struct {
	Provider string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q is not configured", e.Provider)
}

// ExhaustedError reports that the requested provider and every configured
// fallback failed with quota-shaped errors.
type ExhaustedError struct {
	// Attempts lists the providers tried, in order.
	Attempts []string

	// Last is the failure from the final attempt.
	Last error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all providers exhausted (tried %s): %v",
		strings.Join(e.Attempts, ", "), e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Router dispatches completion requests to a named provider and, when the
// primary provider reports a quota failure, walks the fallback order until
// one succeeds.
//
// Failover is deliberately narrow: only quota-shaped failures trigger it,
// and only when the failing provider is the configured primary. A quota
// failure on an explicitly requested secondary provider is returned as-is,
// and authentication, timeout, and generic provider failures never cascade.
type Router struct {
	adapters map[string]Provider
	primary  string
	order    []string
	limiter  *rate.Limiter
	logger   log.Logger
}

// NewRouter creates a router over the given adapters. primary names the
// default provider; order is the fixed fallback sequence consulted when the
// primary reports a quota failure. limiter throttles outbound attempts and
// may be nil to disable throttling.
func NewRouter(adapters map[string]Provider, primary string, order []string, limiter *rate.Limiter, logger log.Logger) *Router {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Router{
		adapters: adapters,
		primary:  primary,
		order:    order,
		limiter:  limiter,
		logger:   logger.With("component", "router"),
	}
}

// Primary returns the name of the configured default provider.
func (r *Router) Primary() string { return r.primary }

// Configured reports whether a named provider has an adapter.
func (r *Router) Configured(name string) bool {
	_, ok := r.adapters[name]
	return ok
}

// Complete generates a reply for history using the preferred provider, or
// the primary when preferred is empty. It returns the reply text and the
// name of the provider that produced it.
//
// Error shape: *ConfigError when preferred has no adapter, *ExhaustedError
// when the primary and every fallback fail on quota, otherwise the
// classified *Error from the single attempted provider.
func (r *Router) Complete(ctx context.Context, preferred string, history []Message) (string, string, error) {
	name := preferred
	if name == "" {
		name = r.primary
	}

	adapter, ok := r.adapters[name]
	if !ok {
		return "", "", &ConfigError{Provider: name}
	}

	text, err := r.attempt(ctx, adapter, history)
	if err == nil {
		return text, name, nil
	}
	if !IsQuota(err) || name != r.primary {
		return "", name, err
	}

	return r.cascade(ctx, history, name, err)
}

// cascade walks the fallback order after a quota failure on the primary
// provider. The primary itself and unconfigured entries are skipped; any
// failure kind on a fallback moves on to the next entry.
func (r *Router) cascade(ctx context.Context, history []Message, failed string, lastErr error) (string, string, error) {
	attempts := []string{failed}

	for _, name := range r.order {
		if name == failed {
			continue
		}
		adapter, ok := r.adapters[name]
		if !ok {
			continue
		}

		telemetry.CountFailover()
		r.logger.Warn("failing over",
			"from", failed,
			"to", name,
			"cause", lastErr,
		)

		text, err := r.attempt(ctx, adapter, history)
		if err == nil {
			return text, name, nil
		}

		attempts = append(attempts, name)
		lastErr = err
	}

	return "", "", &ExhaustedError{Attempts: attempts, Last: lastErr}
}

func (r *Router) attempt(ctx context.Context, adapter Provider, history []Message) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", &Error{Provider: adapter.Name(), Kind: KindTimeout, Err: err}
		}
	}

	start := time.Now()
	text, err := adapter.GenerateResponse(ctx, history)
	telemetry.ObserveDuration(telemetry.ProviderDuration, time.Since(start))

	if err != nil {
		outcome := "error"
		if IsQuota(err) {
			outcome = "quota"
		}
		telemetry.CountProviderAttempt(adapter.Name(), outcome)
		r.logger.Error("provider attempt failed",
			"provider", adapter.Name(),
			"error", err,
		)
		return "", err
	}

	telemetry.CountProviderAttempt(adapter.Name(), "success")
	return text, nil
}
