package notify

import "errors"

var (
	ErrInvalidMessage = errors.New("invalid notification message")
	ErrInvalidConfig  = errors.New("invalid notify configuration")
	ErrSendFailed     = errors.New("failed to send notification")
)
