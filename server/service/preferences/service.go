package preferences

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	svcerrors "github.com/newsroomhq/newsdesk/server/internal/errors"
	"github.com/newsroomhq/newsdesk/server/service/privilege"
	"github.com/newsroomhq/newsdesk/store"
)

const (
	// SessionPreferenceLastWorkedDesk remembers the desk the session last had
	// open. Seeded from the user's default desk on session initialization.
	SessionPreferenceLastWorkedDesk = "desk:last_worked"

	// UserPreferenceEmailNotification controls whether the user receives
	// notifications via email.
	UserPreferenceEmailNotification = "email:notification"
)

// Store is the interface for store operations needed by the preferences service.
type Store interface {
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
	UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error)
	GetSession(ctx context.Context, find *store.FindSession) (*store.Session, error)
}

// Document is the client-visible preference document. Its ID is the session
// id the document was requested through, and SessionPreferences holds only
// that session's preference map.
type Document struct {
	ID                 string              `json:"_id"`
	UserPreferences    store.PreferenceMap `json:"user_preferences"`
	SessionPreferences store.PreferenceMap `json:"session_preferences"`
	ActivePrivileges   store.PrivilegeMap  `json:"active_privileges"`
	AllowedActions     []string            `json:"allowed_actions"`
}

// UpdateRequest is a partial preference update. Derived privilege and action
// fields are never read from the client.
type UpdateRequest struct {
	UserPreferences    store.PreferenceMap `json:"user_preferences,omitempty"`
	SessionPreferences store.PreferenceMap `json:"session_preferences,omitempty"`
	Desk               *string             `json:"desk,omitempty"`
}

// Service orchestrates preference reads and writes against the user store,
// recomputing the user's effective privileges and allowed actions on every
// write.
type Service struct {
	store    Store
	registry *Registry
	resolver privilege.Resolver
}

// NewService creates a new preferences service.
func NewService(store Store, registry *Registry, resolver privilege.Resolver) *Service {
	return &Service{
		store:    store,
		registry: registry,
		resolver: resolver,
	}
}

// resolveSession maps a session id to its session, or nil when no session
// matches.
func (s *Service) resolveSession(ctx context.Context, sessionID string) (*store.Session, error) {
	session, err := s.store.GetSession(ctx, &store.FindSession{ID: &sessionID})
	if err != nil {
		return nil, svcerrors.Internal("failed to resolve session", err)
	}
	return session, nil
}

// FindOne returns the preference document for the given session id. When no
// session matches, the id is treated as a user id so direct user lookups keep
// working. The returned document is keyed by the session id and carries only
// that session's preference map.
func (s *Service) FindOne(ctx context.Context, sessionID string) (*Document, error) {
	session, err := s.resolveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	userID := sessionID
	if session != nil {
		userID = session.UserID
	}

	user, err := s.store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return nil, svcerrors.Internal("failed to load user", err)
	}
	if user == nil {
		return nil, svcerrors.NotFoundf("user %s not found", userID)
	}

	sessionPrefs, ok := user.SessionPreferences[sessionID]
	if !ok {
		return nil, svcerrors.NotFoundf("no preferences for session %s", sessionID)
	}

	return &Document{
		ID:                 sessionID,
		UserPreferences:    user.UserPreferences,
		SessionPreferences: sessionPrefs,
		ActivePrivileges:   user.ActivePrivileges,
		AllowedActions:     user.AllowedActions,
	}, nil
}

// SetSessionBasedPrefs initializes the preference state for a freshly created
// session. User preferences are seeded from registry defaults overlaid with
// any legacy flat preferences the first time around; the session's own
// preference map is seeded from session defaults with the last-worked desk
// falling back to the user's default desk. Privileges and allowed actions are
// recomputed and everything is persisted in one write.
func (s *Service) SetSessionBasedPrefs(ctx context.Context, sessionID, userID string) error {
	user, err := s.store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return svcerrors.Internal("failed to load user", err)
	}
	if user == nil {
		return svcerrors.NotFoundf("user %s not found", userID)
	}

	update := &store.UpdateUser{ID: user.ID, Version: user.Version}

	if len(user.UserPreferences) == 0 {
		// First session since the user_preferences migration: registry
		// defaults overlaid with the legacy flat map so pre-existing
		// settings survive.
		seeded := s.registry.DefaultUserPreferences()
		for key, value := range user.LegacyPreferences {
			seeded[key] = value
		}
		user.UserPreferences = seeded
		update.UserPreferences = &seeded
	}

	sessionPrefs := copySessionPreferences(user.SessionPreferences)
	if _, ok := sessionPrefs[sessionID]; !ok {
		defaults := s.registry.DefaultSessionPreferences()
		if desk, _ := defaults[SessionPreferenceLastWorkedDesk].(string); desk == "" && user.Desk != "" {
			defaults[SessionPreferenceLastWorkedDesk] = user.Desk
		}
		sessionPrefs[sessionID] = defaults
	}
	user.SessionPreferences = sessionPrefs
	update.SessionPreferences = &sessionPrefs

	if err := s.stampPrivileges(ctx, user, update); err != nil {
		return err
	}

	if _, err := s.store.UpdateUser(ctx, update); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return svcerrors.Conflict("user document was modified concurrently", err)
		}
		return svcerrors.Internal("failed to persist session preferences", err)
	}

	slog.Debug("initialized session preferences",
		slog.String("session_id", sessionID), slog.String("user_id", userID))
	return nil
}

// Update applies a partial preference update for the session. Every incoming
// key must be registered in the matching registry; a single unknown key
// rejects the whole update. Session preferences are merged only under the
// request's own session id. Privileges and allowed actions are recomputed
// from the post-update document, overwriting anything the client sent.
func (s *Service) Update(ctx context.Context, sessionID string, req *UpdateRequest) (*Document, error) {
	session, err := s.resolveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, svcerrors.NotFoundf("session %s not found", sessionID)
	}

	// Reload the authoritative original; the caller may hold a stale copy.
	original, err := s.store.GetUser(ctx, &store.FindUser{ID: &session.UserID})
	if err != nil {
		return nil, svcerrors.Internal("failed to load user", err)
	}
	if original == nil {
		return nil, svcerrors.NotFoundf("user %s not found", session.UserID)
	}

	update := &store.UpdateUser{ID: original.ID, Version: original.Version, Desk: req.Desk}

	if req.UserPreferences != nil {
		for key := range req.UserPreferences {
			if !s.registry.HasUserPreference(key) {
				return nil, svcerrors.InvalidArgumentf("invalid preference: %s", key)
			}
		}
		merged := clonePreferenceMap(original.UserPreferences)
		for key, value := range req.UserPreferences {
			merged[key] = value
		}
		original.UserPreferences = merged
		update.UserPreferences = &merged
	}

	if req.SessionPreferences != nil {
		for key := range req.SessionPreferences {
			if !s.registry.HasSessionPreference(key) {
				return nil, svcerrors.InvalidArgumentf("invalid preference: %s", key)
			}
		}
		sessionPrefs := copySessionPreferences(original.SessionPreferences)
		entry, ok := sessionPrefs[sessionID]
		if !ok {
			// Session entry is created lazily on first access.
			entry = s.registry.DefaultSessionPreferences()
		}
		for key, value := range req.SessionPreferences {
			entry[key] = value
		}
		sessionPrefs[sessionID] = entry
		original.SessionPreferences = sessionPrefs
		update.SessionPreferences = &sessionPrefs
	}

	if req.Desk != nil {
		original.Desk = *req.Desk
	}

	if err := s.stampPrivileges(ctx, original, update); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateUser(ctx, update)
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, svcerrors.Conflict("user document was modified concurrently", err)
		}
		return nil, svcerrors.Internal("failed to persist preferences", err)
	}

	sessionPrefs := updated.SessionPreferences[sessionID]
	return &Document{
		ID:                 sessionID,
		UserPreferences:    updated.UserPreferences,
		SessionPreferences: sessionPrefs,
		ActivePrivileges:   updated.ActivePrivileges,
		AllowedActions:     updated.AllowedActions,
	}, nil
}

// stampPrivileges recomputes the derived privilege and action fields from the
// about-to-be-persisted user document and writes them into the update set.
// This always runs as the final step of a write so the derived fields are
// never stale relative to the document that produced them.
func (s *Service) stampPrivileges(ctx context.Context, user *store.User, update *store.UpdateUser) error {
	role, err := s.resolver.GetRole(ctx, user)
	if err != nil {
		return svcerrors.Internal("failed to resolve role", err)
	}
	privileges := s.resolver.SetPrivileges(user, role)
	actions := s.resolver.PrivilegedActions(privileges)

	update.ActivePrivileges = &privileges
	update.AllowedActions = &actions
	return nil
}

// GetUserPreference returns the user's preferences with registry defaults
// and legacy values merged in underneath any explicitly stored settings.
func (s *Service) GetUserPreference(ctx context.Context, userID string) (store.PreferenceMap, error) {
	user, err := s.store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return nil, svcerrors.Internal("failed to load user", err)
	}
	if user == nil {
		return nil, svcerrors.NotFoundf("user %s not found", userID)
	}

	merged := s.registry.DefaultUserPreferences()
	for key, value := range user.LegacyPreferences {
		merged[key] = value
	}
	for key, value := range user.UserPreferences {
		merged[key] = value
	}
	return merged, nil
}

// EmailNotificationIsEnabled reports whether the user has email notifications
// switched on.
func (s *Service) EmailNotificationIsEnabled(ctx context.Context, userID string) (bool, error) {
	prefs, err := s.GetUserPreference(ctx, userID)
	if err != nil {
		return false, err
	}
	setting, ok := prefs[UserPreferenceEmailNotification].(map[string]any)
	if !ok {
		if m, isPrefMap := prefs[UserPreferenceEmailNotification].(store.PreferenceMap); isPrefMap {
			setting = m
		} else {
			return false, nil
		}
	}
	enabled, _ := setting["enabled"].(bool)
	return enabled, nil
}

// IsAuthorized reports whether callerUserID owns the session identified by
// sessionID. A caller may only modify their own session's preferences.
func (s *Service) IsAuthorized(ctx context.Context, callerUserID, sessionID string) (bool, error) {
	if callerUserID == "" || sessionID == "" {
		return false, nil
	}
	session, err := s.resolveSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}
	return session.UserID == callerUserID, nil
}

func copySessionPreferences(m map[string]store.PreferenceMap) map[string]store.PreferenceMap {
	clone := make(map[string]store.PreferenceMap, len(m))
	for sessionID, prefs := range m {
		clone[sessionID] = clonePreferenceMap(prefs)
	}
	return clone
}
