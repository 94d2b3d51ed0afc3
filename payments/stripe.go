package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Stripe creates PaymentIntents through the Stripe API.
type Stripe struct {
	api *client.API
}

// NewStripe creates a Stripe processor using the default Stripe backends.
func NewStripe(secretKey string) *Stripe {
	return NewStripeWithBackends(secretKey, nil)
}

// NewStripeWithBackends lets callers point the client at another backend.
func NewStripeWithBackends(secretKey string, backends *stripe.Backends) *Stripe {
	return &Stripe{api: client.New(secretKey, backends)}
}

// IdempotencyKey derives the key for an intent so that retried requests for
// the same order and amount reuse the same intent.
func IdempotencyKey(orderID string, amountCents int64) string {
	return fmt.Sprintf("intent-%s-%d", orderID, amountCents)
}

// CreateIntent creates a card PaymentIntent for the exact amount requested.
func (s *Stripe) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountCents),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.SetIdempotencyKey(IdempotencyKey(req.OrderID, req.AmountCents))
	params.AddMetadata("order_id", req.OrderID)

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("stripe create intent: %w", err)
	}
	return toIntent(pi), nil
}

// GetIntent fetches an existing PaymentIntent.
func (s *Stripe) GetIntent(ctx context.Context, id string) (Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return Intent{}, fmt.Errorf("stripe get intent: %w", err)
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) Intent {
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		OrderID:      pi.Metadata["order_id"],
	}
}
