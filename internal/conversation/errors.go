package conversation

import "errors"

// Sentinel errors for persistence operations. These are part of the public
// API and should be checked with errors.Is().
var (
	// ErrNotFound indicates the referenced conversation is absent in all tiers.
	ErrNotFound = errors.New("conversation not found")

	// ErrForbidden indicates the conversation exists but is owned by a
	// different caller. Ownership never changes after creation.
	ErrForbidden = errors.New("conversation owned by another caller")

	// ErrStorageUnavailable indicates the durable tier is unreachable and the
	// degraded tier cannot serve the request either.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
