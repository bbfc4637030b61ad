package domain

import "context"

// ReviewDecision is an organizer's verdict on a registration under review.
type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "approve"
	ReviewReject  ReviewDecision = "reject"
)

// AdminService exposes the organizer-facing mutations. Every operation is
// gated by the PermissionGuard and recorded in the AuditLog; a denied check
// aborts before any state change.
type AdminService interface {
	// ReviewRegistration decides an under_review registration: approval
	// confirms it (allocating a bib), rejection releases its slot.
	// Requires registrations:write.
	ReviewRegistration(ctx context.Context, actorID, registrationID string, decision ReviewDecision, reason string) (*Registration, error)
	// OverrideStatus forces a registration into the given status, bypassing
	// the transition table. This is the only way out of a terminal state.
	// Requires registrations:write.
	OverrideStatus(ctx context.Context, actorID, registrationID string, to Status, reason string) (*Registration, error)
	// UpdateCategoryCapacity edits a category's total slots, never below the
	// current reserved+confirmed count. Requires settings:write.
	UpdateCategoryCapacity(ctx context.Context, actorID, categoryID string, totalSlots int) (*Category, error)
	// ListEventRegistrations returns the denormalized registration+athlete
	// view for an event. Requires registrations:read.
	ListEventRegistrations(ctx context.Context, actorID, eventID string, p PaginationParams) ([]*RegistrationWithAthlete, int, error)
	// ListAuditEntries reads the audit log. Requires audit:read.
	ListAuditEntries(ctx context.Context, actorID, resource string, p PaginationParams) ([]*AuditEntry, int, error)
}

// EventService manages events and their categories.
type EventService interface {
	// CreateEvent creates an event together with its categories.
	// Requires settings:write.
	CreateEvent(ctx context.Context, actorID string, event *Event, categories []*Category) (*Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*Event, error)
	ListEvents(ctx context.Context) ([]*Event, error)
	ListCategories(ctx context.Context, eventID string) ([]*Category, error)
}
