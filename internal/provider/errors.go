package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an adapter failure into the fixed taxonomy shared by all
// backends. The failover router branches on Kind alone.
type Kind int

const (
	// KindProviderError is any provider-side failure that is neither an
	// authentication problem nor a quota signal.
	KindProviderError Kind = iota

	// KindUnauthenticated indicates the credential was rejected.
	KindUnauthenticated

	// KindQuotaExceeded indicates a billing or rate-limit signal. This is
	// the only kind that can trigger automatic failover.
	KindQuotaExceeded

	// KindTimeout indicates the backend did not answer in time. Treated as
	// a normal non-quota failure: it never triggers failover.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindTimeout:
		return "timeout"
	default:
		return "provider_error"
	}
}

// Error is the classified failure every adapter returns. It wraps the
// backend-native error for logging while exposing only Provider and Kind to
// callers.
type Error struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsQuota reports whether err is a quota-shaped provider failure.
func IsQuota(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == KindQuotaExceeded
}

// quotaPatterns are backend-agnostic substrings recognized as billing or
// rate-limit signals. Matched case-insensitively as a fallback when an
// adapter has no structured status code to classify by.
var quotaPatterns = []string{
	"quota",
	"rate limit",
	"rate_limit",
	"429",
	"insufficient balance",
	"insufficient credits",
	"insufficient_quota",
	"billing",
	"resource_exhausted",
	"too many requests",
}

// classifyStatus maps an HTTP status code onto the taxonomy. Zero means the
// error carried no status; callers fall back to classifyMessage.
func classifyStatus(status int) (Kind, bool) {
	switch {
	case status == 401 || status == 403:
		return KindUnauthenticated, true
	case status == 402 || status == 429:
		return KindQuotaExceeded, true
	case status == 408 || status == 504:
		return KindTimeout, true
	case status >= 400:
		return KindProviderError, true
	default:
		return KindProviderError, false
	}
}

// classifyMessage classifies an error by its text. Used only when the
// backend exposes no structured status; the substring set is deliberately
// conservative so that content-policy and malformed-input failures are never
// mistaken for quota signals.
func classifyMessage(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range quotaPatterns {
		if strings.Contains(msg, pattern) {
			return KindQuotaExceeded
		}
	}
	if strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "authentication") {
		return KindUnauthenticated
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return KindTimeout
	}
	return KindProviderError
}
