// Package config loads component configuration from environment variables
// using struct tags, with optional .env file support for local development.
//
// Each component declares its own config struct next to its code (see
// membership.PaddleConfig, pg.Config, redis.Config) and wiring code loads
// it once at startup:
//
//	var cfg membership.PaddleConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// Parsing is delegated to github.com/caarlos0/env; .env loading to
// github.com/joho/godotenv. Real environment variables always win over the
// .env file.
package config
