package preferences

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcerrors "github.com/newsroomhq/newsdesk/server/internal/errors"
	"github.com/newsroomhq/newsdesk/server/service/privilege"
	"github.com/newsroomhq/newsdesk/store"
)

// mockStore is an in-memory implementation of the Store interface.
type mockStore struct {
	users    map[string]*store.User
	sessions map[string]*store.Session
	roles    map[string]*store.Role

	updateCalls  int
	beforeUpdate func()
}

func newMockStore() *mockStore {
	return &mockStore{
		users:    map[string]*store.User{},
		sessions: map[string]*store.Session{},
		roles:    map[string]*store.Role{},
	}
}

func (m *mockStore) GetUser(_ context.Context, find *store.FindUser) (*store.User, error) {
	if find.ID == nil {
		return nil, nil
	}
	user, ok := m.users[*find.ID]
	if !ok {
		return nil, nil
	}
	return user.Clone(), nil
}

func (m *mockStore) UpdateUser(_ context.Context, update *store.UpdateUser) (*store.User, error) {
	m.updateCalls++
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	user, ok := m.users[update.ID]
	if !ok || user.Version != update.Version {
		return nil, store.ErrVersionConflict
	}

	if update.Desk != nil {
		user.Desk = *update.Desk
	}
	if update.UserPreferences != nil {
		user.UserPreferences = *update.UserPreferences
	}
	if update.SessionPreferences != nil {
		user.SessionPreferences = *update.SessionPreferences
	}
	if update.ActivePrivileges != nil {
		user.ActivePrivileges = *update.ActivePrivileges
	}
	if update.AllowedActions != nil {
		user.AllowedActions = *update.AllowedActions
	}
	user.Version++
	return user.Clone(), nil
}

func (m *mockStore) GetSession(_ context.Context, find *store.FindSession) (*store.Session, error) {
	if find.ID == nil {
		return nil, nil
	}
	session, ok := m.sessions[*find.ID]
	if !ok {
		return nil, nil
	}
	return session, nil
}

func (m *mockStore) GetRole(_ context.Context, find *store.FindRole) (*store.Role, error) {
	if find.Name == nil {
		return nil, nil
	}
	role, ok := m.roles[*find.Name]
	if !ok {
		return nil, nil
	}
	return role, nil
}

func newTestService(t *testing.T) (*Service, *mockStore) {
	t.Helper()
	ms := newMockStore()
	ms.roles["editor"] = &store.Role{
		Name: "editor",
		Privileges: store.PrivilegeMap{
			"archive": 1,
			"spike":   1,
			"publish": 1,
		},
	}
	actions := privilege.NewDefaultActionRegistry()
	resolver := privilege.NewResolver(ms, actions)
	return NewService(ms, NewDefaultRegistry(), resolver), ms
}

func addUser(ms *mockStore, id string) *store.User {
	user := &store.User{
		ID:       id,
		Username: "u-" + id,
		Role:     "editor",
		Version:  1,
	}
	ms.users[id] = user
	return user
}

func addSession(ms *mockStore, sessionID, userID string) {
	ms.sessions[sessionID] = &store.Session{ID: sessionID, UserID: userID}
}

func TestSetSessionBasedPrefsSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	user.LegacyPreferences = store.PreferenceMap{"archive:view": "compact"}
	addSession(ms, "sess1", "user1")

	err := svc.SetSessionBasedPrefs(ctx, "sess1", "user1")
	require.NoError(t, err)

	stored := ms.users["user1"]
	// Legacy flat value overrides the registry default for its key.
	assert.Equal(t, "compact", stored.UserPreferences["archive:view"])
	// Other keys get their registry default definitions.
	def, ok := stored.UserPreferences["feature:preview"].(store.PreferenceMap)
	require.True(t, ok)
	assert.Equal(t, false, def["default"])
	assert.Contains(t, stored.UserPreferences, "editor:theme")
	assert.Contains(t, stored.UserPreferences, "workqueue:items")
}

func TestSetSessionBasedPrefsSeedsLastWorkedDesk(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	user.Desk = "desk42"
	addSession(ms, "sess1", "user1")

	err := svc.SetSessionBasedPrefs(ctx, "sess1", "user1")
	require.NoError(t, err)

	sessionPrefs := ms.users["user1"].SessionPreferences["sess1"]
	require.NotNil(t, sessionPrefs)
	assert.Equal(t, "desk42", sessionPrefs[SessionPreferenceLastWorkedDesk])
}

func TestSetSessionBasedPrefsKeepsExistingUserPreferences(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	user.UserPreferences = store.PreferenceMap{"archive:view": "compact"}
	addSession(ms, "sess1", "user1")

	err := svc.SetSessionBasedPrefs(ctx, "sess1", "user1")
	require.NoError(t, err)

	stored := ms.users["user1"]
	// Already-migrated preferences are not reseeded.
	assert.Equal(t, store.PreferenceMap{"archive:view": "compact"}, stored.UserPreferences)
}

func TestSetSessionBasedPrefsKeepsExistingSessionEntry(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	user.SessionPreferences = map[string]store.PreferenceMap{
		"sess1": {"scratchpad:items": []any{"draft"}},
	}
	addSession(ms, "sess1", "user1")

	err := svc.SetSessionBasedPrefs(ctx, "sess1", "user1")
	require.NoError(t, err)

	sessionPrefs := ms.users["user1"].SessionPreferences["sess1"]
	assert.Equal(t, []any{"draft"}, sessionPrefs["scratchpad:items"])
}

func TestSetSessionBasedPrefsRecomputesPrivileges(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	user.ActivePrivileges = store.PrivilegeMap{"stale": 1}
	user.AllowedActions = []string{"stale"}
	addSession(ms, "sess1", "user1")

	err := svc.SetSessionBasedPrefs(ctx, "sess1", "user1")
	require.NoError(t, err)

	stored := ms.users["user1"]
	assert.Equal(t, store.PrivilegeMap{"archive": 1, "spike": 1, "publish": 1}, stored.ActivePrivileges)
	assert.Equal(t, []string{"spike", "edit", "publish"}, stored.AllowedActions)
}

func TestSetSessionBasedPrefsUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	err := svc.SetSessionBasedPrefs(ctx, "sess1", "ghost")
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestFindOneNarrowsSessionPreferences(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	user.UserPreferences = store.PreferenceMap{"archive:view": "compact"}
	user.SessionPreferences = map[string]store.PreferenceMap{
		"sess1": {SessionPreferenceLastWorkedDesk: "desk1"},
		"sess2": {SessionPreferenceLastWorkedDesk: "desk2"},
	}
	addSession(ms, "sess1", "user1")

	doc, err := svc.FindOne(ctx, "sess1")
	require.NoError(t, err)

	// Client-visible identity is the session id, not the user id.
	assert.Equal(t, "sess1", doc.ID)
	assert.Equal(t, "compact", doc.UserPreferences["archive:view"])
	assert.Equal(t, "desk1", doc.SessionPreferences[SessionPreferenceLastWorkedDesk])
}

func TestFindOneFallsBackToUserID(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	user.SessionPreferences = map[string]store.PreferenceMap{
		"user1": {SessionPreferenceLastWorkedDesk: "desk1"},
	}

	// No session named "user1" exists, so the id is treated as a user id.
	doc, err := svc.FindOne(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, "user1", doc.ID)
}

func TestFindOneMissingSessionEntry(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	addUser(ms, "user1")
	addSession(ms, "sess1", "user1")

	_, err := svc.FindOne(ctx, "sess1")
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestFindOneUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.FindOne(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestUpdateRejectsUnknownUserPreference(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	user.UserPreferences = store.PreferenceMap{"archive:view": "compact"}
	addSession(ms, "sess1", "user1")

	_, err := svc.Update(ctx, "sess1", &UpdateRequest{
		UserPreferences: store.PreferenceMap{"unknown:key": true},
	})
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeInvalidArgument))
	assert.Contains(t, err.Error(), "unknown:key")

	// No partial apply: the stored document is unchanged.
	assert.Equal(t, 0, ms.updateCalls)
	assert.Equal(t, store.PreferenceMap{"archive:view": "compact"}, ms.users["user1"].UserPreferences)
}

func TestUpdateRejectsUnknownSessionPreference(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	addUser(ms, "user1")
	addSession(ms, "sess1", "user1")

	_, err := svc.Update(ctx, "sess1", &UpdateRequest{
		SessionPreferences: store.PreferenceMap{"bogus:items": []any{}},
	})
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeInvalidArgument))
	assert.Equal(t, 0, ms.updateCalls)
}

func TestUpdateMergesSingleKey(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	user.UserPreferences = store.PreferenceMap{
		"archive:view": "compact",
		"editor:theme": "dark",
	}
	addSession(ms, "sess1", "user1")

	doc, err := svc.Update(ctx, "sess1", &UpdateRequest{
		UserPreferences: store.PreferenceMap{"archive:view": "mgrid"},
	})
	require.NoError(t, err)

	// Only the mentioned key changes; unrelated keys keep their values.
	assert.Equal(t, "mgrid", doc.UserPreferences["archive:view"])
	assert.Equal(t, "dark", doc.UserPreferences["editor:theme"])
	stored := ms.users["user1"]
	assert.Equal(t, "mgrid", stored.UserPreferences["archive:view"])
	assert.Equal(t, "dark", stored.UserPreferences["editor:theme"])
}

func TestUpdateSessionPreferencesIsolatedPerSession(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	user.SessionPreferences = map[string]store.PreferenceMap{
		"sessA": {SessionPreferenceLastWorkedDesk: "deskA"},
		"sessB": {SessionPreferenceLastWorkedDesk: "deskB"},
	}
	addSession(ms, "sessA", "user1")

	_, err := svc.Update(ctx, "sessA", &UpdateRequest{
		SessionPreferences: store.PreferenceMap{SessionPreferenceLastWorkedDesk: "deskZ"},
	})
	require.NoError(t, err)

	stored := ms.users["user1"]
	assert.Equal(t, "deskZ", stored.SessionPreferences["sessA"][SessionPreferenceLastWorkedDesk])
	assert.Equal(t, "deskB", stored.SessionPreferences["sessB"][SessionPreferenceLastWorkedDesk])
}

func TestUpdateSeedsMissingSessionEntry(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	addUser(ms, "user1")
	addSession(ms, "sess1", "user1")

	doc, err := svc.Update(ctx, "sess1", &UpdateRequest{
		SessionPreferences: store.PreferenceMap{SessionPreferenceLastWorkedDesk: "desk9"},
	})
	require.NoError(t, err)

	assert.Equal(t, "desk9", doc.SessionPreferences[SessionPreferenceLastWorkedDesk])
	// The lazily created entry also carries the other session defaults.
	assert.Contains(t, doc.SessionPreferences, "scratchpad:items")
}

func TestUpdateRecomputesPrivileges(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	user.ActivePrivileges = store.PrivilegeMap{"stale": 1}
	user.AllowedActions = []string{"stale"}
	addSession(ms, "sess1", "user1")

	doc, err := svc.Update(ctx, "sess1", &UpdateRequest{
		UserPreferences: store.PreferenceMap{"editor:theme": "dark"},
	})
	require.NoError(t, err)

	// Derived fields reflect the resolver, not the stored stale values.
	assert.Equal(t, store.PrivilegeMap{"archive": 1, "spike": 1, "publish": 1}, doc.ActivePrivileges)
	assert.Equal(t, []string{"spike", "edit", "publish"}, doc.AllowedActions)
}

func TestUpdateUnknownSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Update(ctx, "ghost", &UpdateRequest{})
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestUpdateVersionConflict(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	addSession(ms, "sess1", "user1")

	// A concurrent writer bumps the stored version between the service's
	// read and its write.
	ms.beforeUpdate = func() {
		user.Version++
	}

	_, err := svc.Update(ctx, "sess1", &UpdateRequest{
		UserPreferences: store.PreferenceMap{"editor:theme": "dark"},
	})
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeConflict))
}

func TestIsAuthorized(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	addUser(ms, "user1")
	addSession(ms, "sess1", "user1")

	tests := []struct {
		name      string
		callerID  string
		sessionID string
		expected  bool
	}{
		{"owner", "user1", "sess1", true},
		{"other user", "user2", "sess1", false},
		{"unknown session", "user1", "ghost", false},
		{"empty caller", "", "sess1", false},
		{"empty session", "user1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authorized, err := svc.IsAuthorized(ctx, tt.callerID, tt.sessionID)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, authorized)
		})
	}
}

func TestGetUserPreferenceMergePrecedence(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	user := addUser(ms, "user1")
	user.LegacyPreferences = store.PreferenceMap{
		"archive:view": "compact",
		"editor:theme": "sepia",
	}
	user.UserPreferences = store.PreferenceMap{
		"editor:theme": "dark",
	}

	prefs, err := svc.GetUserPreference(ctx, "user1")
	require.NoError(t, err)

	// default < legacy < explicitly stored.
	assert.Equal(t, "dark", prefs["editor:theme"])
	assert.Equal(t, "compact", prefs["archive:view"])
	assert.Contains(t, prefs, "feature:preview")
}

func TestEmailNotificationIsEnabled(t *testing.T) {
	ctx := context.Background()
	svc, ms := newTestService(t)
	addUser(ms, "user1")

	// The registry default has email notifications enabled.
	enabled, err := svc.EmailNotificationIsEnabled(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, enabled)

	ms.users["user1"].UserPreferences = store.PreferenceMap{
		UserPreferenceEmailNotification: map[string]any{"enabled": false},
	}
	enabled, err = svc.EmailNotificationIsEnabled(ctx, "user1")
	require.NoError(t, err)
	assert.False(t, enabled)
}
