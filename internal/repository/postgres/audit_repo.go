package postgres

import (
	"context"
	"database/sql"

	"raceportal/internal/domain"
)

type auditRepository struct {
	DB *sql.DB
}

func NewAuditRepository(db *sql.DB) domain.AuditRepository {
	return &auditRepository{DB: db}
}

func (r *auditRepository) Append(ctx context.Context, e *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_log (actor_id, action, resource, resource_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, e.ActorID, e.Action, e.Resource, e.ResourceID,
		[]byte(e.Payload), e.CreatedAt).Scan(&e.ID)
}

func (r *auditRepository) List(ctx context.Context, resource string, p domain.PaginationParams) ([]*domain.AuditEntry, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_log WHERE ($1 = '' OR resource = $1)`, resource).
		Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, actor_id, action, resource, resource_id, payload, created_at
		FROM audit_log
		WHERE ($1 = '' OR resource = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, resource, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []*domain.AuditEntry{}
	for rows.Next() {
		e := &domain.AuditEntry{}
		var payload []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Resource, &e.ResourceID,
			&payload, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Payload = payload
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
