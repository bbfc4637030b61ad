package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for registration operations.
var (
	// ErrInvalidTransition is returned when a requested status change is not
	// on the transition table. It is always surfaced, never swallowed.
	ErrInvalidTransition = errors.New("invalid registration transition")
	// ErrConflict is returned when a concurrent mutation lost a race, e.g.
	// an optimistic version check failed or a bib was taken first.
	ErrConflict = errors.New("concurrent modification conflict")
	// ErrDuplicateRegistration is returned when the athlete already has a
	// registration for the event.
	ErrDuplicateRegistration = errors.New("athlete already registered for event")
)

// Status is the closed set of registration lifecycle states.
type Status string

const (
	StatusPending          Status = "pending"
	StatusPendingPayment   Status = "pending_payment"
	StatusPendingDocuments Status = "pending_documents"
	StatusUnderReview      Status = "under_review"
	StatusConfirmed        Status = "confirmed"
	StatusRejected         Status = "rejected"
	StatusCancelled        Status = "cancelled"
)

// Terminal reports whether the status admits no further regular transitions.
// Leaving a terminal state requires an explicit, audited administrative
// override, which bypasses the table on purpose.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// HoldsReservation reports whether a registration in this status occupies a
// reserved (not yet confirmed) slot in the capacity ledger. A registration at
// rest in pending holds nothing: its slot was released on payment expiry and
// is re-reserved when checkout restarts.
func (s Status) HoldsReservation() bool {
	switch s {
	case StatusPendingPayment, StatusPendingDocuments, StatusUnderReview:
		return true
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPendingPayment, StatusPendingDocuments,
		StatusUnderReview, StatusConfirmed, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// transitions is the registration transition table. rejected and cancelled
// are additionally reachable from every non-terminal state, which
// CanTransition handles without enumerating them here.
var transitions = map[Status][]Status{
	StatusPending:          {StatusPendingPayment, StatusPendingDocuments, StatusConfirmed},
	StatusPendingPayment:   {StatusConfirmed, StatusPending},
	StatusPendingDocuments: {StatusUnderReview},
	StatusUnderReview:      {StatusConfirmed},
}

// CanTransition reports whether moving from one status to another is on the
// transition table.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusRejected || to == StatusCancelled {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Registration binds an athlete to a category for one event. BibNumber is
// non-nil iff Status is confirmed, and unique within the event. Version
// backs the optimistic per-registration serialization of transitions.
// swagger:model Registration
type Registration struct {
	ID                 string         `json:"id"`
	EventID            string         `json:"event_id"`
	CategoryID         string         `json:"category_id"`
	AthleteID          string         `json:"athlete_id"`
	Status             Status         `json:"status"`
	BibNumber          *int           `json:"bib_number"`
	RegistrationNumber string         `json:"registration_number"`
	RequiredDocuments  []DocumentKind `json:"required_documents,omitempty"`
	Version            int            `json:"-"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// NewRegistration returns a new Registration in the given initial status.
// ID is set by the repository on create.
func NewRegistration(eventID, categoryID, athleteID, registrationNumber string, initial Status, now time.Time) *Registration {
	return &Registration{
		EventID:            eventID,
		CategoryID:         categoryID,
		AthleteID:          athleteID,
		Status:             initial,
		RegistrationNumber: registrationNumber,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// RegistrationRepository defines storage operations for registrations.
//
// Create reserves a category slot and inserts the row in one transaction, so
// a failed insert never leaks a reservation. Transition methods that imply a
// ledger movement perform both in one transaction: there is no observable
// state where the registration reads confirmed while the ledger still counts
// it as merely reserved, or vice versa.
type RegistrationRepository interface {
	// Create atomically takes one reserved slot in the registration's
	// category and inserts the row. Returns ErrCapacityExceeded when the
	// category is full and ErrDuplicateRegistration when the athlete already
	// holds a registration for the event.
	Create(ctx context.Context, reg *Registration) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	GetByEventAndAthlete(ctx context.Context, eventID, athleteID string) (*Registration, error)
	ListByAthleteID(ctx context.Context, athleteID string) ([]*Registration, error)
	ListByEventID(ctx context.Context, eventID string, p PaginationParams) ([]*Registration, int, error)
	// ListPendingPaymentBefore returns payment-pending registrations created
	// before the cutoff; used by the abandonment sweep.
	ListPendingPaymentBefore(ctx context.Context, cutoff time.Time) ([]*Registration, error)

	// UpdateStatus moves the registration to the new status under an
	// optimistic version check. ErrConflict when the stored version moved on.
	// The ledger is untouched; use for transitions with no slot movement.
	UpdateStatus(ctx context.Context, reg *Registration, to Status) error
	// UpdateStatusReleaseSlot moves the registration to the new status and
	// returns its reserved slot to the pool in the same transaction.
	UpdateStatusReleaseSlot(ctx context.Context, reg *Registration, to Status) error
	// UpdateStatusReserveSlot moves the registration to the new status and
	// takes a reserved slot in the same transaction; ErrCapacityExceeded
	// when the category has filled up in the meantime.
	UpdateStatusReserveSlot(ctx context.Context, reg *Registration, to Status) error
	// Confirm moves the registration to confirmed, converts its reservation
	// into a confirmed count, and assigns the next free bib number for the
	// event, all in one transaction. Idempotency for replayed confirmations
	// is the caller's concern: Confirm must only be invoked on a
	// registration that is not yet confirmed.
	Confirm(ctx context.Context, reg *Registration) error
	// OverrideStatus is the audited administrative escape hatch: it writes
	// the given status regardless of the transition table, adjusting ledger
	// counts for the slot the registration held, in one transaction.
	OverrideStatus(ctx context.Context, reg *Registration, to Status) error
}

// PaginationParams carries page/page_size for paginated listings.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset returns the SQL offset for the page.
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// RegistrationWithAthlete bundles a registration with its athlete for
// organizer-facing listings and the reporting view.
type RegistrationWithAthlete struct {
	Registration *Registration `json:"registration"`
	Athlete      *Athlete      `json:"athlete"`
}

// SignUpInput is the payload for creating a registration.
type SignUpInput struct {
	EventID      string
	CategorySlug string
	Athlete      *Athlete
}

// RegistrationService owns the registration lifecycle: admission, state
// transitions, and their coupling to the capacity ledger and bib allocation.
type RegistrationService interface {
	SignUp(ctx context.Context, userID string, in SignUpInput) (*Registration, error)
	GetMyRegistration(ctx context.Context, userID, registrationID string) (*Registration, error)
	ListMyRegistrations(ctx context.Context, userID string) ([]*Registration, error)
	// SubmitDocuments moves a pending_documents registration to under_review.
	SubmitDocuments(ctx context.Context, userID, registrationID string) (*Registration, error)
	// Cancel withdraws a non-terminal registration and releases its slot.
	Cancel(ctx context.Context, userID, registrationID string) (*Registration, error)
	// Confirm is the single entry point into the confirmed state: allocates
	// a bib, converts the reservation, and sends the confirmation e-mail.
	// Calling it on an already-confirmed registration is a no-op.
	Confirm(ctx context.Context, registrationID string) (*Registration, error)
}
