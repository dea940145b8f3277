package membership

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey         string        `env:"PADDLE_API_KEY,required"`
	WebhookSecret  string        `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment    string        `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	RequestTimeout time.Duration `env:"PADDLE_REQUEST_TIMEOUT" envDefault:"10s"`
}

// PaddleProvider implements BillingProvider for Paddle.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	timeout  time.Duration
}

// NewPaddleProvider creates a Paddle-backed BillingProvider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("paddle webhook secret is required")
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		timeout:  timeout,
	}, nil
}

// EnsureCustomer creates a Paddle customer for the user. Callers persist the
// returned ctm_ ID on the membership record, so this only runs once per user.
func (p *PaddleProvider) EnsureCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	customer, err := p.client.CustomersClient.CreateCustomer(ctx, &paddle.CreateCustomerRequest{
		Email: email,
		CustomData: paddle.CustomData{
			"user_id": userID.String(),
		},
	})
	if err != nil {
		return "", errors.Join(ErrProviderUnavailable, err)
	}
	return customer.ID, nil
}

// CreateCheckoutSession creates a hosted checkout transaction in Paddle.
func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, errors.New("price ID is required")
	}
	if req.ProviderCustomerID == "" {
		return nil, errors.New("provider customer ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomerID: paddle.PtrTo(req.ProviderCustomerID),
		CustomData: paddle.CustomData{
			"user_id": req.UserID.String(),
		},
	}
	if req.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, errors.New("no checkout URL returned from paddle")
	}

	return &CheckoutSession{
		URL:       *transaction.Checkout.URL,
		SessionID: transaction.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour), // Paddle checkout links expire in 24 hours
	}, nil
}

// CreatePortalSession returns a link to Paddle's customer portal.
func (p *PaddleProvider) CreatePortalSession(ctx context.Context, rec *Record) (*PortalSession, error) {
	if rec == nil || rec.ProviderCustomerID == "" {
		return nil, errors.New("provider customer ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	portalReq := &paddle.CreateCustomerPortalSessionRequest{
		CustomerID: rec.ProviderCustomerID,
	}
	if rec.ProviderSubscriptionID != "" {
		portalReq.SubscriptionIDs = []string{rec.ProviderSubscriptionID}
	}

	portalSession, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, portalReq)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	session := &PortalSession{
		URL:       portalSession.URLs.General.Overview,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	for _, subURL := range portalSession.URLs.Subscriptions {
		if subURL.ID != rec.ProviderSubscriptionID {
			continue
		}
		session.CancelURL = subURL.CancelSubscription
		session.UpdatePaymentURL = subURL.UpdateSubscriptionPaymentMethod
		break
	}

	if session.URL == "" {
		return nil, errors.New("no portal URL returned from paddle")
	}
	return session, nil
}

// CancelSubscription schedules cancellation at the end of the current
// billing period. The local record updates when the resulting
// subscription.canceled webhook is reconciled.
func (p *PaddleProvider) CancelSubscription(ctx context.Context, providerSubID string) error {
	if providerSubID == "" {
		return ErrNoProviderSubscription
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: providerSubID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromNextBillingPeriod),
	})
	if err != nil {
		return errors.Join(ErrProviderUnavailable, err)
	}
	return nil
}

// ParseWebhook verifies the Paddle signature and normalizes the payload.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return Event{}, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return Event{}, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return Event{}, ErrWebhookVerificationFailed
	}

	var raw struct {
		EventID    string         `json:"event_id"`
		EventType  string         `json:"event_type"`
		OccurredAt time.Time      `json:"occurred_at"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	ev := Event{
		ID:         raw.EventID,
		Kind:       mapPaddleEventKind(raw.EventType),
		OccurredAt: raw.OccurredAt,
	}
	if ev.Kind == EventNoop {
		return ev, nil
	}

	extractPaddleData(&ev, raw.EventType, raw.Data)
	return ev, nil
}

// mapPaddleEventKind maps Paddle's event catalog to the normalized kinds.
// Paddle emits far more event types than this system cares about; the rest
// map to EventNoop and are acknowledged without processing.
func mapPaddleEventKind(paddleEvent string) EventKind {
	switch paddleEvent {
	case "transaction.completed":
		return EventCheckoutCompleted
	case "subscription.created", "subscription.updated", "subscription.resumed", "subscription.paused":
		// A subscription checkout fires transaction.completed AND
		// subscription.created with distinct event IDs, so the pair passes
		// dedup. Only the transaction maps to checkout_completed; the
		// subscription.created payload carries the provider's status and
		// applies as a plain update, whichever of the two lands first.
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionDeleted
	case "transaction.payment_failed":
		return EventPaymentFailed
	case "transaction.payment_succeeded":
		return EventPaymentSucceeded
	default:
		return EventNoop
	}
}

// extractPaddleData pulls the normalized fields out of the loosely typed
// webhook data. Subscription and transaction payloads shape their plan
// reference differently, which is the only divergence handled here.
func extractPaddleData(ev *Event, eventType string, data map[string]any) {
	if customerID, ok := data["customer_id"].(string); ok {
		ev.ProviderCustomerID = customerID
	}

	if strings.HasPrefix(eventType, "subscription.") {
		if id, ok := data["id"].(string); ok {
			ev.ProviderSubscriptionID = id
		}
		if items, ok := data["items"].([]any); ok && len(items) > 0 {
			if item, ok := items[0].(map[string]any); ok {
				if price, ok := item["price"].(map[string]any); ok {
					if priceID, ok := price["id"].(string); ok {
						ev.PriceID = priceID
					}
				}
			}
		}
		if period, ok := data["current_billing_period"].(map[string]any); ok {
			if endsAt, ok := period["ends_at"].(string); ok {
				if t, err := time.Parse(time.RFC3339, endsAt); err == nil {
					ev.PeriodEnd = &t
				}
			}
		}
	}

	if strings.HasPrefix(eventType, "transaction.") {
		if subID, ok := data["subscription_id"].(string); ok {
			ev.ProviderSubscriptionID = subID
		}
		if items, ok := data["items"].([]any); ok && len(items) > 0 {
			if item, ok := items[0].(map[string]any); ok {
				if priceID, ok := item["price_id"].(string); ok {
					ev.PriceID = priceID
				}
			}
		}
	}

	if status, ok := data["status"].(string); ok {
		if s, err := ParseStatus(mapPaddleStatus(status)); err == nil {
			ev.Status = s
		}
	}
}

// mapPaddleStatus maps Paddle subscription statuses to the local closed
// set. Unknown statuses come back unchanged and fail ParseStatus upstream,
// leaving the event's status empty.
func mapPaddleStatus(paddleStatus string) string {
	switch strings.ToLower(paddleStatus) {
	case "trialing":
		return string(StatusTrialing)
	case "active":
		return string(StatusActive)
	case "past_due", "paused":
		return string(StatusPastDue)
	case "canceled", "cancelled":
		return string(StatusCanceled)
	default:
		return paddleStatus
	}
}
