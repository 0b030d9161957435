package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"pmconsole/internal/backend"
	"pmconsole/internal/domain"
	"pmconsole/internal/logging"
	"pmconsole/internal/models"
	"pmconsole/internal/reconcile"

	"github.com/rs/zerolog"
)

// BillingService covers subscriptions, plans, discounts and saved cards.
type BillingService struct {
	caller
}

func NewBillingService(b domain.Backend, logger *zerolog.Logger) *BillingService {
	return &BillingService{caller: caller{backend: b, logger: logging.Component(logger, "billing")}}
}

func billingOptions(success, failure string) reconcile.Options {
	return reconcile.Options{
		Policy:         reconcile.BlockedPassThrough,
		SuccessMessage: success,
		FailureMessage: failure,
		AllowEmpty:     true,
	}
}

func (s *BillingService) get(ctx context.Context, token, op, path string, opts reconcile.Options) reconcile.Outcome {
	out, _ := s.fetch(ctx, token, op, backend.Request{Name: op, Method: http.MethodGet, Path: path}, opts, backend.BillingMessages)
	return out
}

func (s *BillingService) post(ctx context.Context, token, op, path string, body any, opts reconcile.Options) reconcile.Outcome {
	out, _ := s.fetch(ctx, token, op, backend.Request{Name: op, Method: http.MethodPost, Path: path, Body: body}, opts, backend.BillingMessages)
	return out
}

// Subscriptions lists the billing state of every property.
func (s *BillingService) Subscriptions(ctx context.Context, token string) models.Result[any] {
	return s.post(ctx, token, "billing_property", "/pm/billing/property", map[string]any{},
		billingOptions("Subscription data fetched successfully", "Failed to fetch subscription data")).Result()
}

func (s *BillingService) Plans(ctx context.Context, token string) models.Result[any] {
	return s.get(ctx, token, "subscription_plans", "/subscription/get",
		billingOptions("Subscription plans fetched successfully", "Failed to fetch subscription plans")).Result()
}

func (s *BillingService) Discounts(ctx context.Context, token string) models.Result[any] {
	return s.post(ctx, token, "discount_list", "/subscription/discount/list", map[string]any{},
		billingOptions("Discount list fetched successfully", "Failed to fetch discount list")).Result()
}

func (s *BillingService) Cards(ctx context.Context, token string) models.Result[any] {
	return s.get(ctx, token, "user_cards", "/user/cards",
		billingOptions("User cards fetched successfully", "Failed to fetch user cards")).Result()
}

// VerifyDiscount checks the sales discount for a user.
func (s *BillingService) VerifyDiscount(ctx context.Context, token, userID string) models.Result[any] {
	if msg, ok := authorize(token); !ok {
		return models.Fail[any](msg, models.ErrorGeneral)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Fail[any]("User ID is required", models.ErrorGeneral)
	}
	return s.post(ctx, token, "verify_discount", "/admin/discount/sales/verify", map[string]string{"userId": userID},
		billingOptions("StayHub discount verified successfully", "Failed to verify StayHub discount")).Result()
}

func (s *BillingService) SubscribePremium(ctx context.Context, token string, req models.PremiumSubscription) models.Result[any] {
	if msg, ok := authorize(token); !ok {
		return models.Fail[any](msg, models.ErrorGeneral)
	}
	if err := models.Validate(req); err != nil {
		return models.Fail[any]("Please select at least one property and a billing cycle.", models.ErrorGeneral)
	}
	opts := billingOptions("Subscription created successfully", "Failed to create subscription")
	opts.AcceptBare = true
	return s.post(ctx, token, "subscribe_premium", "/property/subscribe/premium", req, opts).Result()
}

func (s *BillingService) CancellationDetails(ctx context.Context, token, propertyID string) models.Result[any] {
	if msg, ok := authorize(token); !ok {
		return models.Fail[any](msg, models.ErrorGeneral)
	}
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return models.Fail[any]("Property ID is required", models.ErrorGeneral)
	}
	return s.get(ctx, token, "cancellation_details", "/property/subscription/cancel/"+url.PathEscape(propertyID)+"/details",
		billingOptions("Cancellation details fetched successfully", "Failed to fetch cancellation details")).Result()
}

// CancelSubscription is irreversible; it refuses to call the backend unless
// the caller has confirmed.
func (s *BillingService) CancelSubscription(ctx context.Context, token, propertyID string, confirmed bool) models.Result[any] {
	if msg, ok := authorize(token); !ok {
		return models.Fail[any](msg, models.ErrorGeneral)
	}
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return models.Fail[any]("Property ID is required", models.ErrorGeneral)
	}
	if !confirmed {
		return models.Fail[any](models.MsgConfirmCancel, models.ErrorGeneral)
	}
	opts := billingOptions("Subscription cancelled successfully!", "Failed to cancel subscription")
	opts.AcceptBare = true
	return s.get(ctx, token, "cancel_subscription", "/property/subscription/cancel/"+url.PathEscape(propertyID), opts).Result()
}
