// Package redis provides Redis connectivity for the webhook dedup ledger.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	ledger := membership.NewRedisLedger(client, 0)
package redis
