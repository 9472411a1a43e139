package preferences

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsroomhq/newsdesk/store"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.RegisterDefaultUserPreference("feature:preview", store.PreferenceMap{"default": false})
	r.RegisterDefaultSessionPreference("pinned:items", []any{})

	assert.True(t, r.HasUserPreference("feature:preview"))
	assert.False(t, r.HasUserPreference("pinned:items"))
	assert.True(t, r.HasSessionPreference("pinned:items"))
	assert.False(t, r.HasSessionPreference("feature:preview"))
}

func TestRegistryReRegistrationOverwrites(t *testing.T) {
	r := NewRegistry()
	r.RegisterDefaultUserPreference("archive:view", store.PreferenceMap{"default": "mgrid"})
	r.RegisterDefaultUserPreference("archive:view", store.PreferenceMap{"default": "compact"})

	defaults := r.DefaultUserPreferences()
	def, ok := defaults["archive:view"].(store.PreferenceMap)
	require.True(t, ok)
	assert.Equal(t, "compact", def["default"])
}

func TestRegistryReadsReturnCopies(t *testing.T) {
	r := NewRegistry()
	r.RegisterDefaultUserPreference("archive:view", store.PreferenceMap{"default": "mgrid"})
	r.RegisterDefaultSessionPreference("desk:last_worked", "")

	userDefaults := r.DefaultUserPreferences()
	def := userDefaults["archive:view"].(store.PreferenceMap)
	def["default"] = "mutated"
	userDefaults["injected"] = true

	fresh := r.DefaultUserPreferences()
	assert.NotContains(t, fresh, "injected")
	assert.Equal(t, "mgrid", fresh["archive:view"].(store.PreferenceMap)["default"])

	sessionDefaults := r.DefaultSessionPreferences()
	sessionDefaults["desk:last_worked"] = "desk1"
	assert.Equal(t, "", r.DefaultSessionPreferences()["desk:last_worked"])
}

func TestDefaultRegistryStockKeys(t *testing.T) {
	r := NewDefaultRegistry()

	for _, key := range []string{"feature:preview", "archive:view", "editor:theme", "workqueue:items", "email:notification"} {
		assert.True(t, r.HasUserPreference(key), "missing user preference %s", key)
	}
	for _, key := range []string{"scratchpad:items", "desk:last_worked", "desk:items", "stage:items", "pinned:items"} {
		assert.True(t, r.HasSessionPreference(key), "missing session preference %s", key)
	}
}
