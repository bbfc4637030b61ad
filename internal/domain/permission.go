package domain

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned when an actor lacks the permission a
// mutating operation requires. It aborts the operation before any state
// change and never leaks more than the (resource, action) pair.
var ErrPermissionDenied = errors.New("permission denied")

// Wildcard matches any resource or action in a permission.
const Wildcard = "*"

// Actions recognized in permissions.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

// Resources guarded by the engine.
const (
	ResourceRegistrations = "registrations"
	ResourceSettings      = "settings"
	ResourceAudit         = "audit"
)

// Permission grants an action on a resource. Either side may be the
// wildcard, which matches broadly.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// Allows reports whether this permission covers the (resource, action) pair.
func (p Permission) Allows(resource, action string) bool {
	if p.Resource != Wildcard && p.Resource != resource {
		return false
	}
	return p.Action == Wildcard || p.Action == action
}

// Allowed reports whether any permission in the set covers the pair.
func Allowed(perms []Permission, resource, action string) bool {
	for _, p := range perms {
		if p.Allows(resource, action) {
			return true
		}
	}
	return false
}

// PermissionRepository loads the permission set granted to a user through
// its roles.
type PermissionRepository interface {
	ListByUserID(ctx context.Context, userID string) ([]Permission, error)
}

// PermissionGuard gates every administrative mutation on the acting user's
// permission set. Require returns ErrPermissionDenied before any state
// change when the actor lacks the pair.
type PermissionGuard interface {
	Require(ctx context.Context, userID, resource, action string) error
}
