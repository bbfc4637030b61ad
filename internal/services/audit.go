package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"raceportal/internal/domain"
)

type auditLog struct {
	auditRepo      domain.AuditRepository
	contextTimeout time.Duration
}

// NewAuditLog creates the append-only audit log service.
func NewAuditLog(auditRepo domain.AuditRepository, timeout time.Duration) domain.AuditLog {
	return &auditLog{
		auditRepo:      auditRepo,
		contextTimeout: timeout,
	}
}

// Record appends an entry. Failures are logged and swallowed so auditing
// never rolls back the mutation it describes.
func (a *auditLog) Record(ctx context.Context, actorID, action, resource, resourceID string, payload any) {
	ctx, cancel := context.WithTimeout(ctx, a.contextTimeout)
	defer cancel()

	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			slog.Error("audit payload marshal failed", "action", action, "error", err)
			b = []byte(`{}`)
		}
		raw = b
	}

	entry := &domain.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Payload:    raw,
		CreatedAt:  time.Now(),
	}
	if err := a.auditRepo.Append(ctx, entry); err != nil {
		slog.Error("audit append failed", "action", action, "resource", resource, "resource_id", resourceID, "error", err)
	}
}

func (a *auditLog) List(ctx context.Context, resource string, p domain.PaginationParams) ([]*domain.AuditEntry, int, error) {
	ctx, cancel := context.WithTimeout(ctx, a.contextTimeout)
	defer cancel()
	return a.auditRepo.List(ctx, resource, p)
}
