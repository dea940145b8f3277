package membership

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxWebhookBody caps webhook payload reads. Paddle events are a few KB;
// anything near the cap is garbage.
const maxWebhookBody = 1 << 20

// Router mounts the HTTP surface of the membership service: the provider
// webhook endpoint and the read-only plan listing.
//
//	r.Mount("/billing", membership.Router(svc, logger))
func Router(svc Service, log *slog.Logger) chi.Router {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Post("/webhooks/paddle", webhookHandler(svc, log))
	r.Get("/plans", plansHandler(svc))
	return r
}

// webhookHandler ingests provider deliveries. Response codes drive the
// provider's retry behavior: 2xx settles the delivery (including idempotent
// no-ops), 401 rejects a bad signature, 400 rejects an unparseable payload,
// and 502 asks for redelivery after a transient processing failure.
func webhookHandler(svc Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		signature := r.Header.Get("Paddle-Signature")
		err = svc.HandleWebhook(r.Context(), payload, signature)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, ErrWebhookVerificationFailed):
			log.WarnContext(r.Context(), "rejected webhook with invalid signature",
				slog.String("remote_addr", r.RemoteAddr))
			http.Error(w, "invalid signature", http.StatusUnauthorized)
		case errors.Is(err, ErrInvalidEvent):
			http.Error(w, "malformed event", http.StatusBadRequest)
		default:
			log.ErrorContext(r.Context(), "webhook processing failed",
				slog.Any("error", err))
			http.Error(w, "processing failed", http.StatusBadGateway)
		}
	}
}

func plansHandler(svc Service) http.HandlerFunc {
	type planView struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Free        bool   `json:"free"`
		Trial       bool   `json:"trial"`
		TrialDays   int    `json:"trial_days,omitempty"`
		Default     bool   `json:"default"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		plans := svc.Plans()
		views := make([]planView, 0, len(plans))
		for _, p := range plans {
			views = append(views, planView{
				ID:          p.ID,
				Name:        p.Name,
				Description: p.Description,
				Free:        p.Free,
				Trial:       p.Trial,
				TrialDays:   p.TrialDays,
				Default:     p.Default,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"plans": views})
	}
}

// RequireGuard is route middleware gating access on a guard spec. The
// authenticated user ID is read from the request context; requests without
// one evaluate as non-members (nil record), which only NonMember guards
// admit.
//
// Denials respond 402 for membership guards (the cure is paying) and 403
// for NonMember guards.
func RequireGuard(svc Service, spec GuardSpec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := Deny

			if userID, ok := GetUserIDFromContext(r.Context()); ok {
				var err error
				decision, err = svc.EvaluateGuard(r.Context(), userID, spec)
				if err != nil {
					http.Error(w, "membership check failed", http.StatusServiceUnavailable)
					return
				}
			} else {
				decision = Evaluate(nil, spec)
			}

			if !decision.Allowed() {
				status := http.StatusPaymentRequired
				if spec.kind == guardNonMember {
					status = http.StatusForbidden
				}
				http.Error(w, "access denied", status)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
