package postgres

import (
	"context"
	"database/sql"

	"raceportal/internal/domain"
)

type permissionRepository struct {
	DB *sql.DB
}

func NewPermissionRepository(db *sql.DB) domain.PermissionRepository {
	return &permissionRepository{DB: db}
}

// ListByUserID resolves the user's permission set through its roles.
func (r *permissionRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Permission, error) {
	query := `
		SELECT rp.resource, rp.action
		FROM role_permissions rp
		INNER JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms := []domain.Permission{}
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.Resource, &p.Action); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
