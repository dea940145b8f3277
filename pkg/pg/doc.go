// Package pg provides PostgreSQL connectivity for the membership record
// store: pool construction with retry, a readiness probe, and embedded
// goose migrations for the membership_records schema.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := pg.Migrate(ctx, pool, logger); err != nil {
//		log.Fatal(err)
//	}
//	store := membership.NewPostgresStore(pool)
package pg
