// Package payments talks to the external card processor.
package payments

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by Disabled for every call.
var ErrNotConfigured = errors.New("payment processor not configured")

// StatusSucceeded is the intent status once funds are captured.
const StatusSucceeded = "succeeded"

// IntentRequest asks the processor to prepare a charge.
type IntentRequest struct {
	OrderID       string
	AmountCents   int64
	Currency      string
	CustomerEmail string
}

// Intent is the processor-side view of a charge.
type Intent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
	Status       string
	OrderID      string
}

// Processor creates and inspects payment intents.
type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
}

// Disabled is used when no processor credentials are configured.
type Disabled struct{}

// CreateIntent always fails with ErrNotConfigured.
func (Disabled) CreateIntent(context.Context, IntentRequest) (Intent, error) {
	return Intent{}, ErrNotConfigured
}

// GetIntent always fails with ErrNotConfigured.
func (Disabled) GetIntent(context.Context, string) (Intent, error) {
	return Intent{}, ErrNotConfigured
}
