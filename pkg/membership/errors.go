package membership

import "errors"

var (
	ErrRecordNotFound = errors.New("membership record not found")
	ErrInvalidStatus  = errors.New("invalid membership status")
	ErrInvalidEvent   = errors.New("invalid billing event")

	// ErrUnknownCustomer means an event referenced a provider customer with
	// no local user mapping. The event is discarded; provider retries
	// cannot help, so webhook handlers still acknowledge it.
	ErrUnknownCustomer = errors.New("no local user for provider customer")

	// ErrStaleEvent marks an event superseded by a later one already
	// applied to the record. Expected under provider redelivery; discarded
	// without alerting.
	ErrStaleEvent = errors.New("event superseded by a later one")

	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")

	// ErrProviderUnavailable wraps transient billing provider failures on
	// user-initiated actions. Callers should surface it as retriable.
	ErrProviderUnavailable = errors.New("billing provider unavailable")

	ErrNoProviderSubscription = errors.New("record has no provider subscription")
	ErrAlreadySubscribed      = errors.New("user already holds a subscription")
	ErrMissingUserID          = errors.New("user ID is required")
	ErrFailedToSaveRecord     = errors.New("failed to save membership record")
)
