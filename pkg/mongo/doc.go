// Package mongo provides MongoDB connectivity for the membership record
// store, as an alternative to the PostgreSQL backend.
//
//	coll, err := mongo.Collection(ctx, cfg, "membership_records")
//	if err != nil {
//		log.Fatal(err)
//	}
//	store := membership.NewMongoStore(coll)
package mongo
