package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoStore struct {
	coll *mongo.Collection
}

// mongoRecord is the BSON shape of a Record. UUIDs travel as strings to
// keep documents queryable from shells and other drivers.
type mongoRecord struct {
	UserID                 string     `bson:"_id"`
	ProviderCustomerID     string     `bson:"provider_customer_id,omitempty"`
	ProviderSubscriptionID string     `bson:"provider_subscription_id,omitempty"`
	PlanID                 string     `bson:"plan_id,omitempty"`
	Status                 string     `bson:"status"`
	CurrentPeriodEnd       *time.Time `bson:"current_period_end,omitempty"`
	TrialUsed              bool       `bson:"trial_used"`
	LastEventID            string     `bson:"last_event_id,omitempty"`
	LastEventSeq           *int64     `bson:"last_event_seq,omitempty"`
	LastEventAt            time.Time  `bson:"last_event_at"`
	CreatedAt              time.Time  `bson:"created_at"`
	UpdatedAt              time.Time  `bson:"updated_at"`
}

// NewMongoStore returns a Store persisting records in the given collection.
// Callers should ensure indexes on provider_customer_id and a unique sparse
// index on provider_subscription_id.
func NewMongoStore(coll *mongo.Collection) Store {
	if coll == nil {
		panic("membership: mongo collection is required")
	}
	return &mongoStore{coll: coll}
}

func (s *mongoStore) ByUser(ctx context.Context, userID uuid.UUID) (*Record, error) {
	return s.findOne(ctx, bson.M{"_id": userID.String()})
}

func (s *mongoStore) ByProviderSubscription(ctx context.Context, providerSubID string) (*Record, error) {
	if providerSubID == "" {
		return nil, ErrRecordNotFound
	}
	return s.findOne(ctx, bson.M{"provider_subscription_id": providerSubID})
}

func (s *mongoStore) ByProviderCustomer(ctx context.Context, providerCustomerID string) (*Record, error) {
	if providerCustomerID == "" {
		return nil, ErrRecordNotFound
	}
	return s.findOne(ctx, bson.M{"provider_customer_id": providerCustomerID})
}

func (s *mongoStore) Upsert(ctx context.Context, rec *Record) error {
	if rec == nil || rec.UserID == uuid.Nil {
		return ErrMissingUserID
	}

	doc := toMongoRecord(rec)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.UserID}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert membership record: %w", err)
	}
	return nil
}

func (s *mongoStore) List(ctx context.Context) ([]*Record, error) {
	cur, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list membership records: %w", err)
	}
	defer cur.Close(ctx)

	var out []*Record
	for cur.Next(ctx) {
		var doc mongoRecord
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode membership record: %w", err)
		}
		rec, err := fromMongoRecord(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, cur.Err()
}

func (s *mongoStore) findOne(ctx context.Context, filter bson.M) (*Record, error) {
	var doc mongoRecord
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find membership record: %w", err)
	}
	return fromMongoRecord(doc)
}

func toMongoRecord(rec *Record) mongoRecord {
	return mongoRecord{
		UserID:                 rec.UserID.String(),
		ProviderCustomerID:     rec.ProviderCustomerID,
		ProviderSubscriptionID: rec.ProviderSubscriptionID,
		PlanID:                 rec.PlanID,
		Status:                 string(rec.Status),
		CurrentPeriodEnd:       rec.CurrentPeriodEnd,
		TrialUsed:              rec.TrialUsed,
		LastEventID:            rec.LastEventID,
		LastEventSeq:           rec.LastEventSeq,
		LastEventAt:            rec.LastEventAt,
		CreatedAt:              rec.CreatedAt,
		UpdatedAt:              rec.UpdatedAt,
	}
}

func fromMongoRecord(doc mongoRecord) (*Record, error) {
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in stored record: %w", err)
	}
	return &Record{
		UserID:                 userID,
		ProviderCustomerID:     doc.ProviderCustomerID,
		ProviderSubscriptionID: doc.ProviderSubscriptionID,
		PlanID:                 doc.PlanID,
		Status:                 Status(doc.Status),
		CurrentPeriodEnd:       doc.CurrentPeriodEnd,
		TrialUsed:              doc.TrialUsed,
		LastEventID:            doc.LastEventID,
		LastEventSeq:           doc.LastEventSeq,
		LastEventAt:            doc.LastEventAt,
		CreatedAt:              doc.CreatedAt,
		UpdatedAt:              doc.UpdatedAt,
	}, nil
}
