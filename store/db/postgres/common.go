package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/newsroomhq/newsdesk/store"
)

// placeholder returns a numbered placeholder for PostgreSQL (uses $1, $2, ...)
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns n placeholders for PostgreSQL
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

func marshalJSON(v any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal json column")
	}
	return string(raw), nil
}

func marshalJSONList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal json column")
	}
	return string(raw), nil
}

func unmarshalPreferenceMap(raw string) (store.PreferenceMap, error) {
	if raw == "" {
		return store.PreferenceMap{}, nil
	}
	m := store.PreferenceMap{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal preference map")
	}
	return m, nil
}

func unmarshalSessionPreferences(raw string) (map[string]store.PreferenceMap, error) {
	if raw == "" {
		return map[string]store.PreferenceMap{}, nil
	}
	m := map[string]store.PreferenceMap{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session preferences")
	}
	return m, nil
}

func unmarshalPrivilegeMap(raw string) (store.PrivilegeMap, error) {
	if raw == "" {
		return store.PrivilegeMap{}, nil
	}
	m := store.PrivilegeMap{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal privilege map")
	}
	return m, nil
}

func unmarshalStringList(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	list := []string{}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal string list")
	}
	return list, nil
}
