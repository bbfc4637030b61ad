package domain

import (
	"context"
	"encoding/json"
	"time"
)

// AuditEntry is an immutable, append-only record of one mutation: who changed
// what, on which resource, with a snapshot of the change payload.
// swagger:model AuditEntry
type AuditEntry struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actor_id"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resource_id"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AuditRepository defines append-only storage for audit entries.
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	List(ctx context.Context, resource string, p PaginationParams) ([]*AuditEntry, int, error)
}

// AuditLog records mutations. Recording is best-effort: a failed append is
// logged to the operational channel and never rolls back the mutation it
// describes, but it is never skipped when it can succeed.
type AuditLog interface {
	Record(ctx context.Context, actorID, action, resource, resourceID string, payload any)
	List(ctx context.Context, resource string, p PaginationParams) ([]*AuditEntry, int, error)
}
