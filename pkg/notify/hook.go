package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/membergate/pkg/membership"
)

// EmailResolver maps a user ID to their notification address. The
// membership record does not carry emails; the application's user store
// does.
type EmailResolver func(ctx context.Context, userID uuid.UUID) (string, error)

// TransitionHook builds a membership.TransitionHook sending billing
// notifications: a dunning notice on entering past_due and a confirmation
// on cancellation. Send failures are logged and swallowed; notification
// delivery must never affect reconciliation.
func TransitionHook(sender Sender, resolve EmailResolver, log *slog.Logger) membership.TransitionHook {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return func(ctx context.Context, rec *membership.Record, from, to membership.Status) {
		var msg Message
		switch to {
		case membership.StatusPastDue:
			msg = Message{
				Subject:  "Payment issue with your subscription",
				BodyHTML: "<p>We could not collect your latest payment. Please update your payment method to keep your access.</p>",
				Tag:      "billing-past-due",
			}
		case membership.StatusCanceled:
			msg = Message{
				Subject:  "Your subscription has ended",
				BodyHTML: "<p>Your subscription is now canceled. You can resubscribe at any time.</p>",
				Tag:      "billing-canceled",
			}
		default:
			return
		}

		email, err := resolve(ctx, rec.UserID)
		if err != nil {
			log.WarnContext(ctx, "cannot resolve email for billing notification",
				slog.String("user_id", rec.UserID.String()),
				slog.Any("error", err))
			return
		}
		msg.SendTo = email

		if err := sender.Send(ctx, msg); err != nil {
			log.ErrorContext(ctx, "failed to send billing notification",
				slog.String("user_id", rec.UserID.String()),
				slog.String("tag", msg.Tag),
				slog.Any("error", err))
		}
	}
}
