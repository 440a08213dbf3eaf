package tracker

import "errors"

// Error taxonomy for polling and onboarding. Callers classify with
// errors.Is; wrapping preserves the underlying cause.
var (
	// ErrNotFound means the repository, branch, or commit does not
	// exist or is not accessible. Surfaced to the user during
	// onboarding, silently skipped during polling.
	ErrNotFound = errors.New("not found")

	// ErrTransient means a network or API hiccup. Retried on the next
	// poll tick, never surfaced to the user.
	ErrTransient = errors.New("transient failure")

	// ErrStoreUnavailable means the persistence layer is unreadable.
	// Readers fail soft to an empty view.
	ErrStoreUnavailable = errors.New("subscription store unavailable")

	// ErrDeliveryFailed means the transport could not send. Blocks the
	// watermark advance for that cycle; the batch is redelivered next
	// tick (at-least-once).
	ErrDeliveryFailed = errors.New("delivery failed")
)
