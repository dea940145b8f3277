// Package logger builds application slog.Logger instances with a small set
// of options: level, json/text format, output writer, and static attributes.
//
//	log := logger.New(
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithFormat(logger.FormatText),
//		logger.WithAttr(slog.String("app", "membergate")),
//	)
//
// NewFromConfig covers the common case of driving both level and format
// from environment variables through pkg/config.
package logger
