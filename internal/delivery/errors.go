package delivery

import "errors"

var (
	// ErrRetriesExhausted means the endpoint kept throttling past MaxRetries.
	ErrRetriesExhausted = errors.New("exceeded retry attempts for rate limit")

	// ErrRejected means the endpoint answered with a non-2xx, non-429 status.
	ErrRejected = errors.New("delivery rejected")

	// ErrUnsupportedDestination means no poster handles the destination.
	ErrUnsupportedDestination = errors.New("unsupported destination")

	// ErrTelegramDisabled means a telegram: destination was used without a bot token.
	ErrTelegramDisabled = errors.New("telegram delivery not configured")
)
