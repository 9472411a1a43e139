package store

import (
	"context"
)

// Role is the object representing a role and the privileges it grants.
type Role struct {
	Name       string
	Privileges PrivilegeMap
	CreatedTs  int64
	UpdatedTs  int64
}

// FindRole is the find condition for role.
type FindRole struct {
	Name *string
}

// UpsertRole upserts a role.
func (s *Store) UpsertRole(ctx context.Context, upsert *Role) (*Role, error) {
	return s.driver.UpsertRole(ctx, upsert)
}

// GetRole gets a role with find condition.
func (s *Store) GetRole(ctx context.Context, find *FindRole) (*Role, error) {
	list, err := s.driver.ListRoles(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListRoles lists roles with find condition.
func (s *Store) ListRoles(ctx context.Context, find *FindRole) ([]*Role, error) {
	return s.driver.ListRoles(ctx, find)
}
