// Package checkout drives the purchase flow: validate billing details
// locally, create an order on the backend, hand the order to the external
// payment widget, and confirm the payment with the backend. Order
// signature verification is the backend's job; this package only relays
// the receipt.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// BillingDetails is the customer-entered billing address. It is validated
// client-side before any network call; a malformed address never reaches
// the backend.
type BillingDetails struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	AddressLine1 string `json:"address_line1"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// ValidationError reports a single malformed billing field. It is
// surfaced inline to the user and is never sent to the backend.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid billing details: %s is required", e.Field)
}

// Validate checks the details client-side. It returns the first
// *ValidationError found, or nil when the details are complete.
func (b BillingDetails) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"name", b.Name},
		{"email", b.Email},
		{"address_line1", b.AddressLine1},
		{"city", b.City},
		{"postal_code", b.PostalCode},
		{"country", b.Country},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name}
		}
	}
	if !strings.Contains(b.Email, "@") {
		return &ValidationError{Field: "email"}
	}
	return nil
}

// Order is the payment order the backend creates for a course purchase.
// GatewayKey and OrderID are handed to the external payment widget.
type Order struct {
	OrderID     string `json:"order_id"`
	CourseID    string `json:"course_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	GatewayKey  string `json:"gateway_key"`
}

// PaymentReceipt is what the payment widget returns after the user pays.
// The signature is opaque here; the backend verifies it.
type PaymentReceipt struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Verification is the backend's verdict on a payment receipt.
type Verification struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// OrderRepo is the slice of the backend API the checkout flow needs.
type OrderRepo interface {
	CreateOrder(ctx context.Context, courseID string, billing BillingDetails) (*Order, error)
	VerifyPayment(ctx context.Context, receipt PaymentReceipt) (*Verification, error)
}

// PaymentWidget collects a payment for an order. The real implementation
// is the external gateway's widget; tests supply a function.
type PaymentWidget func(ctx context.Context, order Order) (PaymentReceipt, error)

// Service runs the purchase flow end to end.
type Service struct {
	orders OrderRepo
}

func NewService(orders OrderRepo) (*Service, error) {
	if orders == nil {
		return nil, errors.New("[checkout.NewService] orders repo is required")
	}
	return &Service{orders: orders}, nil
}

// Purchase validates billing details, creates the order, collects payment
// through the widget, and verifies the receipt with the backend. Every
// failure is terminal; the caller retries by starting a fresh purchase.
func (s *Service) Purchase(ctx context.Context, courseID string, billing BillingDetails, widget PaymentWidget) (*Verification, error) {
	if err := billing.Validate(); err != nil {
		return nil, err
	}
	if widget == nil {
		return nil, errors.New("[Service.Purchase] payment widget is required")
	}

	order, err := s.orders.CreateOrder(ctx, courseID, billing)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Purchase] CreateOrder")
	}

	receipt, err := widget(ctx, *order)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Purchase] payment widget")
	}

	verification, err := s.orders.VerifyPayment(ctx, receipt)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Purchase] VerifyPayment")
	}
	return verification, nil
}
