package domain

import (
	"context"
	"errors"
	"time"
)

// ErrCapacityExceeded is returned when a reservation is attempted against a
// category with no remaining slots.
var ErrCapacityExceeded = errors.New("category capacity exceeded")

// Category is a capacity-limited competition bucket within an event.
// PriceCents is nil for free categories; amounts are in centavos to avoid
// floating-point money.
// swagger:model Category
type Category struct {
	ID                     string    `json:"id"`
	EventID                string    `json:"event_id"`
	Name                   string    `json:"name"`
	Slug                   string    `json:"slug"`
	TotalSlots             int       `json:"total_slots"`
	ReservedCount          int       `json:"reserved_count"`
	ConfirmedCount         int       `json:"confirmed_count"`
	PriceCents             *int64    `json:"price_cents"`
	MinAge                 *int      `json:"min_age"`
	MaxAge                 *int      `json:"max_age"`
	RequiresResidencyProof bool      `json:"requires_residency_proof"`
	RequiresGuardian       bool      `json:"requires_guardian"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Free reports whether the category has no price attached.
func (c *Category) Free() bool {
	return c.PriceCents == nil || *c.PriceCents == 0
}

// Rules returns the eligibility rule set for this category.
func (c *Category) Rules() CategoryRules {
	return CategoryRules{
		MinAge:                 c.MinAge,
		MaxAge:                 c.MaxAge,
		RequiresResidencyProof: c.RequiresResidencyProof,
		RequiresGuardian:       c.RequiresGuardian,
	}
}

// RemainingSlots returns how many slots are neither reserved nor confirmed.
func (c *Category) RemainingSlots() int {
	return c.TotalSlots - c.ReservedCount - c.ConfirmedCount
}

// CapacityLedger is the single source of truth for how many slots of a
// category are spoken for. Every operation is atomic with respect to
// concurrent callers: two simultaneous Reserve calls against the last
// remaining slot yield exactly one success and one ErrCapacityExceeded.
//
// A reservation is provisional. It converts to a confirmed count via
// ConfirmReservation when the owning registration confirms, or returns to the
// pool via Release when the registration is rejected, cancelled, or its
// payment expires. ReleaseConfirmed undoes a confirmed count on audited
// administrative override.
type CapacityLedger interface {
	Reserve(ctx context.Context, categoryID string) error
	Release(ctx context.Context, categoryID string) error
	ConfirmReservation(ctx context.Context, categoryID string) error
	ReleaseConfirmed(ctx context.Context, categoryID string) error
}

// CategoryRepository defines the interface for category storage.
type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, id string) (*Category, error)
	GetBySlug(ctx context.Context, eventID, slug string) (*Category, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Category, error)
	// UpdateTotalSlots changes total_slots, refusing any value below
	// reserved_count + confirmed_count with ErrInvalidInput.
	UpdateTotalSlots(ctx context.Context, id string, totalSlots int) (*Category, error)
}
