package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/newsroomhq/newsdesk/store"
)

func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	legacyPreferences, err := marshalJSON(create.LegacyPreferences)
	if err != nil {
		return nil, err
	}
	userPreferences, err := marshalJSON(create.UserPreferences)
	if err != nil {
		return nil, err
	}
	sessionPreferences, err := marshalJSON(create.SessionPreferences)
	if err != nil {
		return nil, err
	}
	privileges, err := marshalJSON(create.Privileges)
	if err != nil {
		return nil, err
	}
	activePrivileges, err := marshalJSON(create.ActivePrivileges)
	if err != nil {
		return nil, err
	}
	allowedActions, err := marshalJSONList(create.AllowedActions)
	if err != nil {
		return nil, err
	}

	fields := []string{
		"id", "username", "role", "desk",
		"legacy_preferences", "user_preferences", "session_preferences",
		"privileges", "active_privileges", "allowed_actions", "version",
	}
	placeholderValues := []any{
		create.ID, create.Username, create.Role, create.Desk,
		legacyPreferences, userPreferences, sessionPreferences,
		privileges, activePrivileges, allowedActions, int64(1),
	}

	stmt := `INSERT INTO "user" (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING created_ts, updated_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}

	create.Version = 1
	return create, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, `"user".id = `+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Username; v != nil {
		where, args = append(where, `"user".username = `+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, username, role, desk,
			legacy_preferences, user_preferences, session_preferences,
			privileges, active_privileges, allowed_actions,
			version, created_ts, updated_ts
		FROM "user"
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY "user".created_ts ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query users")
	}
	defer rows.Close()

	list := make([]*store.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate users")
	}

	return list, nil
}

func (d *DB) UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error) {
	set, args := []string{}, []any{}

	if v := update.Desk; v != nil {
		set, args = append(set, "desk = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.UserPreferences; v != nil {
		raw, err := marshalJSON(*v)
		if err != nil {
			return nil, err
		}
		set, args = append(set, "user_preferences = "+placeholder(len(args)+1)), append(args, raw)
	}
	if v := update.SessionPreferences; v != nil {
		raw, err := marshalJSON(*v)
		if err != nil {
			return nil, err
		}
		set, args = append(set, "session_preferences = "+placeholder(len(args)+1)), append(args, raw)
	}
	if v := update.ActivePrivileges; v != nil {
		raw, err := marshalJSON(*v)
		if err != nil {
			return nil, err
		}
		set, args = append(set, "active_privileges = "+placeholder(len(args)+1)), append(args, raw)
	}
	if v := update.AllowedActions; v != nil {
		raw, err := marshalJSONList(*v)
		if err != nil {
			return nil, err
		}
		set, args = append(set, "allowed_actions = "+placeholder(len(args)+1)), append(args, raw)
	}

	updatedTs := time.Now().Unix()
	if v := update.UpdatedTs; v != nil {
		updatedTs = *v
	}
	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, updatedTs)
	set = append(set, "version = version + 1")

	// The version predicate implements the optimistic-concurrency check: the
	// update only lands when nobody else has written since the caller read.
	args = append(args, update.ID, update.Version)
	stmt := `UPDATE "user" SET ` + strings.Join(set, ", ") + `
		WHERE id = ` + placeholder(len(args)-1) + ` AND version = ` + placeholder(len(args)) + `
		RETURNING
			id, username, role, desk,
			legacy_preferences, user_preferences, session_preferences,
			privileges, active_privileges, allowed_actions,
			version, created_ts, updated_ts`

	user, err := scanUser(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrVersionConflict
		}
		return nil, errors.Wrap(err, "failed to update user")
	}

	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var user store.User
	var legacyPreferences, userPreferences, sessionPreferences string
	var privileges, activePrivileges, allowedActions string

	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Role,
		&user.Desk,
		&legacyPreferences,
		&userPreferences,
		&sessionPreferences,
		&privileges,
		&activePrivileges,
		&allowedActions,
		&user.Version,
		&user.CreatedTs,
		&user.UpdatedTs,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, errors.Wrap(err, "failed to scan user")
	}

	var err error
	if user.LegacyPreferences, err = unmarshalPreferenceMap(legacyPreferences); err != nil {
		return nil, err
	}
	if user.UserPreferences, err = unmarshalPreferenceMap(userPreferences); err != nil {
		return nil, err
	}
	if user.SessionPreferences, err = unmarshalSessionPreferences(sessionPreferences); err != nil {
		return nil, err
	}
	if user.Privileges, err = unmarshalPrivilegeMap(privileges); err != nil {
		return nil, err
	}
	if user.ActivePrivileges, err = unmarshalPrivilegeMap(activePrivileges); err != nil {
		return nil, err
	}
	if user.AllowedActions, err = unmarshalStringList(allowedActions); err != nil {
		return nil, err
	}

	return &user, nil
}
