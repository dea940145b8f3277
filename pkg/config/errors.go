package config

import "errors"

var (
	ErrNilConfig   = errors.New("config target must not be nil")
	ErrParseFailed = errors.New("failed to parse environment variables")
)
