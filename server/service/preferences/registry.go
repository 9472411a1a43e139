// Package preferences manages per-user and per-session preference documents.
//
// A preference is a registered key with a default value and metadata. Two
// independent registries exist: user-scoped preferences persist against the
// user and are shared by all sessions; session-scoped preferences live under
// the owning session's id inside the same user document and die with the
// session. Only registered keys are accepted on update.
package preferences

import (
	"github.com/newsroomhq/newsdesk/store"
)

// Registry holds the allowed preference keys and their defaults. It is built
// once during single-threaded startup and treated as read-only afterwards, so
// no synchronization is needed.
type Registry struct {
	userDefaults    map[string]store.PreferenceMap
	sessionDefaults map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		userDefaults:    make(map[string]store.PreferenceMap),
		sessionDefaults: make(map[string]any),
	}
}

// RegisterDefaultUserPreference registers a user-scoped preference key with
// its default definition. Re-registering the same key overwrites the entry.
func (r *Registry) RegisterDefaultUserPreference(key string, definition store.PreferenceMap) {
	r.userDefaults[key] = definition
}

// RegisterDefaultSessionPreference registers a session-scoped preference key
// with its default value. Re-registering the same key overwrites the entry.
func (r *Registry) RegisterDefaultSessionPreference(key string, defaultValue any) {
	r.sessionDefaults[key] = defaultValue
}

// HasUserPreference reports whether key is a registered user preference.
func (r *Registry) HasUserPreference(key string) bool {
	_, ok := r.userDefaults[key]
	return ok
}

// HasSessionPreference reports whether key is a registered session preference.
func (r *Registry) HasSessionPreference(key string) bool {
	_, ok := r.sessionDefaults[key]
	return ok
}

// DefaultUserPreferences returns a fresh preference map seeded with every
// registered user preference's definition. The copy is shallow but the map
// itself is the caller's to mutate.
func (r *Registry) DefaultUserPreferences() store.PreferenceMap {
	defaults := make(store.PreferenceMap, len(r.userDefaults))
	for key, definition := range r.userDefaults {
		defaults[key] = clonePreferenceMap(definition)
	}
	return defaults
}

// DefaultSessionPreferences returns a fresh preference map seeded with every
// registered session preference's default value.
func (r *Registry) DefaultSessionPreferences() store.PreferenceMap {
	defaults := make(store.PreferenceMap, len(r.sessionDefaults))
	for key, value := range r.sessionDefaults {
		defaults[key] = value
	}
	return defaults
}

func clonePreferenceMap(m store.PreferenceMap) store.PreferenceMap {
	clone := make(store.PreferenceMap, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// NewDefaultRegistry creates a registry populated with the stock editorial
// preference keys.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterDefaultUserPreference("feature:preview", store.PreferenceMap{
		"type":     "bool",
		"enabled":  false,
		"default":  false,
		"label":    "Enable Feature Preview",
		"category": "feature",
	})

	r.RegisterDefaultUserPreference("archive:view", store.PreferenceMap{
		"type":     "string",
		"allowed":  []string{"mgrid", "compact"},
		"view":     "mgrid",
		"default":  "mgrid",
		"label":    "Users archive view format",
		"category": "archive",
	})

	r.RegisterDefaultUserPreference("editor:theme", store.PreferenceMap{
		"type":     "string",
		"theme":    "",
		"label":    "Users article edit screen editor theme",
		"category": "editor",
	})

	r.RegisterDefaultUserPreference("workqueue:items", store.PreferenceMap{
		"items": []any{},
	})

	r.RegisterDefaultUserPreference("email:notification", store.PreferenceMap{
		"type":     "bool",
		"enabled":  true,
		"default":  true,
		"label":    "Send notifications via email",
		"category": "notifications",
	})

	r.RegisterDefaultSessionPreference("scratchpad:items", []any{})
	r.RegisterDefaultSessionPreference(SessionPreferenceLastWorkedDesk, "")
	r.RegisterDefaultSessionPreference("desk:items", []any{})
	r.RegisterDefaultSessionPreference("stage:items", []any{})
	r.RegisterDefaultSessionPreference("pinned:items", []any{})

	return r
}
