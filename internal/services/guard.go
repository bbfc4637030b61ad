package services

import (
	"context"
	"fmt"
	"time"

	"raceportal/internal/domain"
)

type permissionGuard struct {
	permissionRepo domain.PermissionRepository
	contextTimeout time.Duration
}

// NewPermissionGuard creates a PermissionGuard backed by the role-permission
// store.
func NewPermissionGuard(permissionRepo domain.PermissionRepository, timeout time.Duration) domain.PermissionGuard {
	return &permissionGuard{
		permissionRepo: permissionRepo,
		contextTimeout: timeout,
	}
}

func (g *permissionGuard) Require(ctx context.Context, userID, resource, action string) error {
	ctx, cancel := context.WithTimeout(ctx, g.contextTimeout)
	defer cancel()

	perms, err := g.permissionRepo.ListByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("list permissions: %w", err)
	}
	if !domain.Allowed(perms, resource, action) {
		return fmt.Errorf("%w: %s on %s", domain.ErrPermissionDenied, action, resource)
	}
	return nil
}
