package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/newsroomhq/newsdesk/store"
)

func (d *DB) UpsertRole(ctx context.Context, upsert *store.Role) (*store.Role, error) {
	privileges, err := marshalJSON(upsert.Privileges)
	if err != nil {
		return nil, err
	}

	stmt := `INSERT INTO role (name, privileges, updated_ts)
		VALUES (` + placeholders(3) + `)
		ON CONFLICT (name) DO UPDATE SET
			privileges = EXCLUDED.privileges,
			updated_ts = EXCLUDED.updated_ts
		RETURNING created_ts, updated_ts`

	if err := d.db.QueryRowContext(ctx, stmt, upsert.Name, privileges, time.Now().Unix()).Scan(
		&upsert.CreatedTs,
		&upsert.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert role")
	}

	return upsert, nil
}

func (d *DB) ListRoles(ctx context.Context, find *store.FindRole) ([]*store.Role, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.Name; v != nil {
		where, args = append(where, "role.name = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT name, privileges, created_ts, updated_ts
		FROM role
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY role.name ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query roles")
	}
	defer rows.Close()

	list := make([]*store.Role, 0)
	for rows.Next() {
		var role store.Role
		var privileges string
		if err := rows.Scan(&role.Name, &privileges, &role.CreatedTs, &role.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan role")
		}
		if role.Privileges, err = unmarshalPrivilegeMap(privileges); err != nil {
			return nil, err
		}
		list = append(list, &role)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate roles")
	}

	return list, nil
}
