package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by the membership_records table.
// The schema ships as a goose migration under pkg/pg/migrations.
func NewPostgresStore(db *pgxpool.Pool) Store {
	if db == nil {
		panic("membership: pgx pool is required")
	}
	return &pgStore{db: db}
}

const pgRecordColumns = `user_id, provider_customer_id, provider_subscription_id, plan_id,
	status, current_period_end, trial_used, last_event_id, last_event_seq, last_event_at,
	created_at, updated_at`

func (s *pgStore) ByUser(ctx context.Context, userID uuid.UUID) (*Record, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+pgRecordColumns+` FROM membership_records WHERE user_id = $1`, userID)
	return scanPgRecord(row)
}

func (s *pgStore) ByProviderSubscription(ctx context.Context, providerSubID string) (*Record, error) {
	if providerSubID == "" {
		return nil, ErrRecordNotFound
	}
	row := s.db.QueryRow(ctx,
		`SELECT `+pgRecordColumns+` FROM membership_records WHERE provider_subscription_id = $1`, providerSubID)
	return scanPgRecord(row)
}

func (s *pgStore) ByProviderCustomer(ctx context.Context, providerCustomerID string) (*Record, error) {
	if providerCustomerID == "" {
		return nil, ErrRecordNotFound
	}
	row := s.db.QueryRow(ctx,
		`SELECT `+pgRecordColumns+` FROM membership_records WHERE provider_customer_id = $1`, providerCustomerID)
	return scanPgRecord(row)
}

func (s *pgStore) Upsert(ctx context.Context, rec *Record) error {
	if rec == nil || rec.UserID == uuid.Nil {
		return ErrMissingUserID
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO membership_records (`+pgRecordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			provider_customer_id = EXCLUDED.provider_customer_id,
			provider_subscription_id = EXCLUDED.provider_subscription_id,
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			current_period_end = EXCLUDED.current_period_end,
			trial_used = EXCLUDED.trial_used,
			last_event_id = EXCLUDED.last_event_id,
			last_event_seq = EXCLUDED.last_event_seq,
			last_event_at = EXCLUDED.last_event_at,
			updated_at = EXCLUDED.updated_at`,
		rec.UserID, rec.ProviderCustomerID, rec.ProviderSubscriptionID, rec.PlanID,
		string(rec.Status), rec.CurrentPeriodEnd, rec.TrialUsed, rec.LastEventID,
		rec.LastEventSeq, rec.LastEventAt, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert membership record: %w", err)
	}
	return nil
}

func (s *pgStore) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pgRecordColumns+` FROM membership_records ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list membership records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanPgRecord(row pgx.Row) (*Record, error) {
	var (
		rec    Record
		status string
	)
	err := row.Scan(&rec.UserID, &rec.ProviderCustomerID, &rec.ProviderSubscriptionID,
		&rec.PlanID, &status, &rec.CurrentPeriodEnd, &rec.TrialUsed, &rec.LastEventID,
		&rec.LastEventSeq, &rec.LastEventAt, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan membership record: %w", err)
	}
	rec.Status = Status(status)
	return &rec, nil
}
