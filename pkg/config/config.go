package config

import (
	"errors"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var loadDotEnv sync.Once

// Load populates cfg from environment variables based on `env` struct tags.
// A .env file in the working directory is loaded once per process, if
// present, before the first parse; real environment variables win over it.
//
//	type PaddleConfig struct {
//		APIKey string `env:"PADDLE_API_KEY,required"`
//	}
//
//	var cfg PaddleConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}

	loadDotEnv.Do(func() {
		// Missing .env is fine; env vars may come from the environment.
		_ = godotenv.Load()
	})

	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParseFailed, err)
	}
	return nil
}

// MustLoad is Load that panics on error, for wiring code where a bad
// configuration should prevent startup.
func MustLoad[T any]() T {
	var cfg T
	if err := Load(&cfg); err != nil {
		panic(err)
	}
	return cfg
}
