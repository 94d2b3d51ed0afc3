// Package services holds the business operations behind the HTTP routes:
// accounts, the order/payment flow and the admin summary.
package services

import (
	"errors"
	"strings"
)

// Error kinds returned by the services. Handlers map them to HTTP statuses.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidID          = errors.New("invalid identifier format")
	ErrAmountMismatch     = errors.New("amount does not match order total")
	ErrAlreadyPaid        = errors.New("order already paid")
	ErrForbidden          = errors.New("forbidden")
	ErrPaymentNotCaptured = errors.New("payment not captured")
	ErrValidation         = errors.New("invalid request")
)

// Actor is the authenticated caller an operation runs on behalf of.
type Actor struct {
	Email string
	Admin bool
}

// CanAccess reports whether the actor may see data belonging to email.
func (a Actor) CanAccess(email string) bool {
	if a.Admin {
		return true
	}
	return a.Email != "" && strings.EqualFold(strings.TrimSpace(a.Email), strings.TrimSpace(email))
}
