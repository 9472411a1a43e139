package privilege

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsroomhq/newsdesk/store"
)

type mockRoleStore struct {
	roles map[string]*store.Role
}

func (m *mockRoleStore) GetRole(_ context.Context, find *store.FindRole) (*store.Role, error) {
	if find.Name == nil {
		return nil, nil
	}
	return m.roles[*find.Name], nil
}

func TestResolverGetRole(t *testing.T) {
	ctx := context.Background()
	ms := &mockRoleStore{roles: map[string]*store.Role{
		"editor": {Name: "editor", Privileges: store.PrivilegeMap{"archive": 1}},
	}}
	r := NewResolver(ms, NewActionRegistry())

	role, err := r.GetRole(ctx, &store.User{Role: "editor"})
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Equal(t, "editor", role.Name)

	role, err = r.GetRole(ctx, &store.User{})
	require.NoError(t, err)
	assert.Nil(t, role)
}

func TestSetPrivilegesOverlaysUserOverrides(t *testing.T) {
	r := NewResolver(&mockRoleStore{}, NewActionRegistry())
	user := &store.User{
		Privileges: store.PrivilegeMap{"publish": 0, "kill": 1},
	}
	role := &store.Role{
		Privileges: store.PrivilegeMap{"archive": 1, "publish": 1},
	}

	privileges := r.SetPrivileges(user, role)

	assert.Equal(t, store.PrivilegeMap{"archive": 1, "publish": 0, "kill": 1}, privileges)
	// The user document carries the computed map afterwards.
	assert.Equal(t, privileges, user.ActivePrivileges)
}

func TestSetPrivilegesWithoutRole(t *testing.T) {
	r := NewResolver(&mockRoleStore{}, NewActionRegistry())
	user := &store.User{Privileges: store.PrivilegeMap{"archive": 1}}

	privileges := r.SetPrivileges(user, nil)
	assert.Equal(t, store.PrivilegeMap{"archive": 1}, privileges)
}

func TestPrivilegedActionsRegistrationOrder(t *testing.T) {
	reg := NewActionRegistry()
	reg.RegisterAction("spike", "spike")
	reg.RegisterAction("edit", "archive")
	reg.RegisterAction("publish", "publish")

	actions := reg.PrivilegedActions(store.PrivilegeMap{"publish": 1, "spike": 1})
	assert.Equal(t, []string{"spike", "publish"}, actions)

	actions = reg.PrivilegedActions(store.PrivilegeMap{})
	assert.Equal(t, []string{}, actions)

	// A privilege explicitly set to zero does not permit its action.
	actions = reg.PrivilegedActions(store.PrivilegeMap{"archive": 0, "spike": 1})
	assert.Equal(t, []string{"spike"}, actions)
}

func TestRegisterActionOverwriteKeepsPosition(t *testing.T) {
	reg := NewActionRegistry()
	reg.RegisterAction("spike", "spike")
	reg.RegisterAction("publish", "publish")
	reg.RegisterAction("spike", "archive")

	actions := reg.PrivilegedActions(store.PrivilegeMap{"archive": 1, "publish": 1})
	assert.Equal(t, []string{"spike", "publish"}, actions)
}
