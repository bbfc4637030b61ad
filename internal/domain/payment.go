package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for payment reconciliation.
var (
	// ErrPaymentUnavailable is a transient provider failure; the registration
	// state is left unchanged and callers may retry (poll again).
	ErrPaymentUnavailable = errors.New("payment provider unavailable")
	// ErrPaymentRejected is a terminal provider outcome (expired or
	// cancelled); the registration's slot is released.
	ErrPaymentRejected = errors.New("payment rejected by provider")
)

// PaymentStatus is the lifecycle of one instant-payment attempt. Paid,
// expired, and cancelled are terminal.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentExpired   PaymentStatus = "expired"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Terminal reports whether the payment admits no further status change.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentExpired || s == PaymentCancelled
}

// Payment is one instant-payment attempt tied to a registration.
// AmountCents is in centavos.
// swagger:model Payment
type Payment struct {
	ID             string        `json:"id"`
	RegistrationID string        `json:"registration_id"`
	ExternalID     string        `json:"external_id"`
	Reference      string        `json:"reference"`
	AmountCents    int64         `json:"amount_cents"`
	QRPayload      string        `json:"qr_payload"`
	Status         PaymentStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ChargeStatus is the provider-side status of a charge.
type ChargeStatus string

const (
	ChargePending   ChargeStatus = "PENDING"
	ChargePaid      ChargeStatus = "PAID"
	ChargeExpired   ChargeStatus = "EXPIRED"
	ChargeCancelled ChargeStatus = "CANCELLED"
)

// Charge is the provider's answer to a charge creation: the provider-side id
// and the QR payload the athlete pays with.
type Charge struct {
	ExternalID string `json:"external_id"`
	QRPayload  string `json:"qr_payload"`
}

// PaymentProvider is the contract this engine expects from the external
// instant-payment provider; everything beyond it is opaque. Implementations
// must return ErrPaymentUnavailable (possibly wrapped) on timeouts and
// transport failures so callers can distinguish retryable errors.
type PaymentProvider interface {
	CreateCharge(ctx context.Context, amountCents int64, payerName, payerDocument, reference string) (*Charge, error)
	GetChargeStatus(ctx context.Context, externalID string) (ChargeStatus, error)
}

// PaymentRepository defines storage operations for payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByExternalID(ctx context.Context, externalID string) (*Payment, error)
	// GetOpenByRegistrationID returns the registration's pending payment,
	// ErrNotFound when none is open.
	GetOpenByRegistrationID(ctx context.Context, registrationID string) (*Payment, error)
	// GetLatestByRegistrationID returns the most recent payment attempt for
	// the registration regardless of status.
	GetLatestByRegistrationID(ctx context.Context, registrationID string) (*Payment, error)
	// UpdateStatus writes the new status; it refuses to move a payment out
	// of a terminal status with ErrConflict.
	UpdateStatus(ctx context.Context, id string, status PaymentStatus) error
}

// PaymentService bridges the registration lifecycle to the payment provider:
// it creates charges and reconciles provider status back onto registrations.
// Reconciliation is idempotent: a PAID result applied to an already-confirmed
// registration is a no-op, while EXPIRED/CANCELLED against a confirmed
// registration is rejected with ErrInvalidTransition.
type PaymentService interface {
	// StartPayment creates a provider charge for a registration in
	// pending_payment, or re-reserves a slot and re-enters pending_payment
	// for a registration swept back to pending.
	StartPayment(ctx context.Context, userID, registrationID string) (*Payment, error)
	// CheckPayment is the athlete-initiated poll: queries the provider and
	// applies the result.
	CheckPayment(ctx context.Context, userID, registrationID string) (*Payment, error)
	// HandleProviderNotification is the provider-push path, keyed by the
	// provider's external id. The provider is re-queried rather than
	// trusting the pushed status.
	HandleProviderNotification(ctx context.Context, externalID string) error
	// SweepAbandoned releases reservations whose payment saw no provider
	// resolution within the abandonment window. Returns how many
	// registrations were swept back to pending.
	SweepAbandoned(ctx context.Context, abandonedBefore time.Time) (int, error)
}
