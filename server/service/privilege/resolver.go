// Package privilege resolves a user's effective privileges from their role
// and derives the concrete actions those privileges permit.
package privilege

import (
	"context"

	"github.com/newsroomhq/newsdesk/store"
)

// Resolver computes role-derived privileges and the actions they permit.
type Resolver interface {
	// GetRole returns the role document for the user, or nil when the user
	// has no role assigned.
	GetRole(ctx context.Context, user *store.User) (*store.Role, error)
	// SetPrivileges writes the user's effective privilege map into
	// user.ActivePrivileges and returns it. Role privileges are overlaid
	// with the user's own privilege overrides.
	SetPrivileges(user *store.User, role *store.Role) store.PrivilegeMap
	// PrivilegedActions returns the action ids permitted by the privilege
	// map, in action registration order.
	PrivilegedActions(privileges store.PrivilegeMap) []string
}

// RoleStore is the interface for store operations needed by the resolver.
type RoleStore interface {
	GetRole(ctx context.Context, find *store.FindRole) (*store.Role, error)
}

type storeResolver struct {
	store   RoleStore
	actions *ActionRegistry
}

// NewResolver creates a store-backed resolver using the given action registry.
func NewResolver(store RoleStore, actions *ActionRegistry) Resolver {
	return &storeResolver{store: store, actions: actions}
}

func (r *storeResolver) GetRole(ctx context.Context, user *store.User) (*store.Role, error) {
	if user.Role == "" {
		return nil, nil
	}
	return r.store.GetRole(ctx, &store.FindRole{Name: &user.Role})
}

func (r *storeResolver) SetPrivileges(user *store.User, role *store.Role) store.PrivilegeMap {
	privileges := store.PrivilegeMap{}
	if role != nil {
		for name, level := range role.Privileges {
			privileges[name] = level
		}
	}
	// User-level overrides win over role grants.
	for name, level := range user.Privileges {
		privileges[name] = level
	}
	user.ActivePrivileges = privileges
	return privileges
}

func (r *storeResolver) PrivilegedActions(privileges store.PrivilegeMap) []string {
	return r.actions.PrivilegedActions(privileges)
}
