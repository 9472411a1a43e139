package store

import (
	"context"
)

// PreferenceMap maps a preference key to its stored value. Values are
// arbitrary JSON-shaped data (bools, strings, lists, nested objects).
type PreferenceMap map[string]any

// PrivilegeMap maps a privilege name to its granted level (0 or 1).
type PrivilegeMap map[string]int

// User is the object representing a user of the editorial system.
type User struct {
	ID       string
	Username string
	Role     string
	// Desk is the user's default desk id.
	Desk string
	// LegacyPreferences is the deprecated flat preference map kept for
	// documents written before user_preferences existed.
	LegacyPreferences PreferenceMap
	// UserPreferences maps preference key to value, shared across sessions.
	UserPreferences PreferenceMap
	// SessionPreferences maps session id to that session's preference map.
	SessionPreferences map[string]PreferenceMap
	// Privileges holds per-user privilege overrides on top of the role.
	Privileges PrivilegeMap
	// ActivePrivileges and AllowedActions are derived fields, recomputed on
	// every preference write. Never client-settable.
	ActivePrivileges PrivilegeMap
	AllowedActions   []string
	// Version is bumped on every update and checked against the expected
	// value to detect conflicting concurrent writes.
	Version   int64
	CreatedTs int64
	UpdatedTs int64
}

// Clone returns a deep copy of the user document.
func (u *User) Clone() *User {
	clone := *u
	clone.LegacyPreferences = clonePreferenceMap(u.LegacyPreferences)
	clone.UserPreferences = clonePreferenceMap(u.UserPreferences)
	clone.Privileges = clonePrivilegeMap(u.Privileges)
	clone.ActivePrivileges = clonePrivilegeMap(u.ActivePrivileges)
	if u.SessionPreferences != nil {
		clone.SessionPreferences = make(map[string]PreferenceMap, len(u.SessionPreferences))
		for sessionID, prefs := range u.SessionPreferences {
			clone.SessionPreferences[sessionID] = clonePreferenceMap(prefs)
		}
	}
	if u.AllowedActions != nil {
		clone.AllowedActions = append([]string(nil), u.AllowedActions...)
	}
	return &clone
}

func clonePreferenceMap(m PreferenceMap) PreferenceMap {
	if m == nil {
		return nil
	}
	clone := make(PreferenceMap, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

func clonePrivilegeMap(m PrivilegeMap) PrivilegeMap {
	if m == nil {
		return nil
	}
	clone := make(PrivilegeMap, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// FindUser is the find condition for user.
type FindUser struct {
	ID       *string
	Username *string
}

// UpdateUser is the update request for user. Version carries the version of
// the document the caller read; the driver rejects the update when the stored
// version differs.
type UpdateUser struct {
	ID      string
	Version int64

	Desk               *string
	UserPreferences    *PreferenceMap
	SessionPreferences *map[string]PreferenceMap
	ActivePrivileges   *PrivilegeMap
	AllowedActions     *[]string
	UpdatedTs          *int64
}

// CreateUser creates a new user.
func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	user, err := s.driver.CreateUser(ctx, create)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(ctx, user.ID, user)
	return user, nil
}

// GetUser gets a user with find condition.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	if find.ID != nil {
		if cached, ok := s.userCache.Get(ctx, *find.ID); ok {
			if user, ok := cached.(*User); ok {
				return user.Clone(), nil
			}
		}
	}

	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	user := list[0]
	s.userCache.Set(ctx, user.ID, user)
	return user.Clone(), nil
}

// ListUsers lists users with find condition.
func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// UpdateUser updates a user, failing when the stored version no longer
// matches update.Version.
func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	user, err := s.driver.UpdateUser(ctx, update)
	if err != nil {
		return nil, err
	}
	s.userCache.Delete(ctx, update.ID)
	return user, nil
}
